package privatemedia

import "strings"

// Disposition marks responses as downloads instead of inline content.
type Disposition struct {
	// ForceDownload is the default used when a request carries no override.
	ForceDownload bool
}

// Apply sets "Content-Disposition: attachment" on resp when the effective
// force-download flag is true. A non-nil override wins over the default.
// When the flag is false the header is left alone and the client decides how
// to render the content.
func (d Disposition) Apply(resp *ResponseDescriptor, res ResolvedResource, override *bool) {
	force := d.ForceDownload
	if override != nil {
		force = *override
	}

	if !force {
		return
	}

	resp.Headers.Set("Content-Disposition", attachment(SanitizeFilename(res.Filename)))
}

// attachment formats the header value. Token names stay bare; other names
// are quoted, and names outside printable ASCII also get an RFC 5987
// filename* parameter with an ASCII fallback in filename.
func attachment(name string) string {
	if isToken(name) {
		return "attachment; filename=" + name
	}

	var fallback strings.Builder
	ascii := true
	for _, r := range name {
		switch {
		case r == '\\':
			fallback.WriteString(`\\`)
		case r < 0x20 || r > 0x7e:
			fallback.WriteByte('_')
			ascii = false
		default:
			fallback.WriteRune(r)
		}
	}

	v := `attachment; filename="` + fallback.String() + `"`
	if !ascii {
		v += "; filename*=UTF-8''" + encodeExtValue(name)
	}
	return v
}

// isToken reports whether s is a non-empty RFC 7230 token.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}

// encodeExtValue percent-encodes everything outside the RFC 5987 attr-char set.
func encodeExtValue(s string) string {
	const upperHex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isTokenChar(c) && c != '%' && c != '\'' && c != '*' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}
