package privatemedia

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// "<http-date>" optionally followed by "; length=<n>", as sent by some older browsers.
var ifModifiedSinceRegex = regexp.MustCompile(`^([^;]+)(?:;\s*length=([0-9]+))?$`)

// ParseConditionalHeaders parses an If-Modified-Since header value.
// An empty or unparsable value yields the zero ConditionalHeaders, so the
// request is treated as unconditional.
func ParseConditionalHeaders(ifModifiedSince string) ConditionalHeaders {
	value := strings.TrimSpace(ifModifiedSince)
	if value == "" {
		return ConditionalHeaders{}
	}

	m := ifModifiedSinceRegex.FindStringSubmatch(value)
	if m == nil {
		return ConditionalHeaders{}
	}

	t, err := http.ParseTime(strings.TrimSpace(m[1]))
	if err != nil {
		return ConditionalHeaders{}
	}

	cond := ConditionalHeaders{IfModifiedSince: t.UTC()}
	if m[2] != "" {
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return ConditionalHeaders{}
		}
		cond.Length = n
		cond.HasLength = true
	}

	return cond
}

// IsConditional reports whether an If-Modified-Since validator was supplied.
func (c ConditionalHeaders) IsConditional() bool {
	return !c.IfModifiedSince.IsZero()
}

// wasModifiedSince reports whether a file with the given modification time and
// size has to be sent again. Modification times are compared at whole seconds
// because HTTP dates carry no sub-second part.
func wasModifiedSince(c ConditionalHeaders, modTime time.Time, size int64) bool {
	if !c.IsConditional() {
		return true
	}

	if c.HasLength && c.Length != size {
		return true
	}

	return modTime.Truncate(time.Second).After(c.IfModifiedSince)
}
