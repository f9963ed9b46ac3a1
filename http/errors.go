package http

import (
	"net/http"

	"github.com/sagarc03/privatemedia"
)

// statusError is the JSON error code and message for a failed descriptor.
func statusError(status privatemedia.Status) (string, string) {
	switch status {
	case privatemedia.StatusNotFound:
		return "not_found", "File not found"
	case privatemedia.StatusDenied:
		return "forbidden", "Permission denied"
	default:
		return "internal_error", "Internal server error"
	}
}

// isErrorStatus reports whether the descriptor should be replaced by an error body.
func isErrorStatus(status privatemedia.Status) bool {
	switch status {
	case privatemedia.StatusNotFound, privatemedia.StatusDenied, privatemedia.StatusServerError:
		return true
	default:
		return false
	}
}

// writeStatusError renders a failed descriptor as JSON or as an HTML page.
func writeStatusError(w http.ResponseWriter, r *http.Request, status privatemedia.Status) {
	code := status.HTTPCode()
	if prefersHTML(r) {
		writeErrorPage(w, code)
		return
	}

	errCode, message := statusError(status)
	WriteError(w, code, errCode, message)
}
