package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

const errorPageHTML = `<html>
<head><title>%[1]d %[2]s</title></head>
<body>
<center><h1>%[1]d %[2]s</h1></center>
<hr><center>privatemedia</center>
</body>
</html>`

// prefersHTML reports whether a browser is asking; API clients get JSON.
func prefersHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}

func writeErrorPage(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, fmt.Sprintf(errorPageHTML, code, http.StatusText(code)))
}
