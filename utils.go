package privatemedia

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// IsValidPath validates that a request path may be joined onto the root directory.
// It checks that the path:
//   - is not empty, "." or "/"
//   - is relative (no leading "/" or "\", no volume name)
//   - does not contain backslashes
//   - does not contain a ".." segment
//   - is valid UTF-8
//   - does not contain null bytes, control characters (< 0x20) or DEL (0x7f)
//
// Returns true if the path is valid, false otherwise.
func IsValidPath(p string) bool {
	if p == "" || p == "/" || p == "." {
		return false
	}

	if p[0] == '/' || p[0] == '\\' {
		return false
	}

	if filepath.VolumeName(p) != "" {
		return false
	}

	if strings.ContainsRune(p, '\\') {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	for segment := range strings.SplitSeq(p, "/") {
		if segment == ".." {
			return false
		}
	}

	return true
}

// SanitizeFilename makes a filename safe to embed in a Content-Disposition header.
// CR, LF and every other control character are dropped along with double quotes
// and semicolons. An empty result becomes "download".
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			continue
		case r == '"' || r == ';':
			continue
		case r == utf8.RuneError:
			continue
		}
		b.WriteRune(r)
	}

	sanitized := strings.TrimSpace(b.String())
	if sanitized == "" {
		return "download"
	}
	return sanitized
}
