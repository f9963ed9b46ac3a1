package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sagarc03/privatemedia"
	"github.com/sagarc03/privatemedia/auth"
)

// Identity methods recorded on privatemedia.Identity.
const (
	MethodSignature = "signature"
	MethodHeader    = "header"
)

// IdentityResolver works out who is making a request. An error wrapping
// privatemedia.ErrUnauthorized rejects the request with 401.
type IdentityResolver interface {
	Resolve(r *http.Request) (privatemedia.Identity, error)
}

// RequestVerifier checks a presigned request and returns the access key it
// was signed with.
type RequestVerifier interface {
	Verify(method, path string, query url.Values, headers http.Header) (string, error)
}

// AnonymousResolver treats every caller as anonymous.
type AnonymousResolver struct{}

func (AnonymousResolver) Resolve(*http.Request) (privatemedia.Identity, error) {
	return privatemedia.Identity{}, nil
}

// SignatureResolver authenticates AWS Signature V4 presigned URLs. Requests
// that carry no signature parameters are anonymous.
type SignatureResolver struct {
	Verifier RequestVerifier
}

func (s SignatureResolver) Resolve(r *http.Request) (privatemedia.Identity, error) {
	query := r.URL.Query()
	if !auth.HasSignature(query) {
		return privatemedia.Identity{}, nil
	}

	// Go keeps Host outside of Header.
	headers := r.Header.Clone()
	headers.Set("Host", r.Host)

	subject, err := s.Verifier.Verify(r.Method, r.URL.Path, query, headers)
	if err != nil {
		return privatemedia.Identity{}, fmt.Errorf("verify signature: %w", err)
	}

	return privatemedia.Identity{Subject: subject, Method: MethodSignature}, nil
}

// HeaderResolver takes the subject from a header set by a trusted
// authenticating proxy. Only use it when clients cannot reach the server
// directly.
type HeaderResolver struct {
	Header string
}

func (h HeaderResolver) Resolve(r *http.Request) (privatemedia.Identity, error) {
	subject := strings.TrimSpace(r.Header.Get(h.Header))
	if subject == "" {
		return privatemedia.Identity{}, nil
	}
	return privatemedia.Identity{Subject: subject, Method: MethodHeader}, nil
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id privatemedia.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by IdentityMiddleware, or the
// anonymous identity.
func IdentityFromContext(ctx context.Context) privatemedia.Identity {
	id, _ := ctx.Value(identityKey{}).(privatemedia.Identity)
	return id
}

// IdentityMiddleware resolves the caller once per request and stores the
// result in the request context. A nil resolver means anonymous access.
func IdentityMiddleware(resolver IdentityResolver) func(http.Handler) http.Handler {
	if resolver == nil {
		resolver = AnonymousResolver{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(r)
			if err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
