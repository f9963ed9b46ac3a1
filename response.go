package privatemedia

import (
	"io"
	"net/http"
)

// Status is the outcome of a request as seen by the HTTP host.
type Status int

const (
	StatusOK Status = iota
	StatusNotModified
	StatusNotFound
	StatusDenied
	StatusServerError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotModified:
		return "not_modified"
	case StatusNotFound:
		return "not_found"
	case StatusDenied:
		return "denied"
	case StatusServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// HTTPCode maps the status onto an HTTP status code.
func (s Status) HTTPCode() int {
	switch s {
	case StatusOK:
		return http.StatusOK
	case StatusNotModified:
		return http.StatusNotModified
	case StatusNotFound:
		return http.StatusNotFound
	case StatusDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ResponseDescriptor is what the core hands back to the HTTP host. The core
// never writes to a socket itself.
type ResponseDescriptor struct {
	Status  Status
	Headers Headers
	// Body is nil when the response has no body. The host must close it.
	Body io.ReadCloser
	// ContentLength is the size of Body, or -1 when unknown.
	ContentLength int64
}

func newResponse(status Status) ResponseDescriptor {
	return ResponseDescriptor{Status: status, ContentLength: -1}
}

// Close releases the body, if any.
func (r *ResponseDescriptor) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
