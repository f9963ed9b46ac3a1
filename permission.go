package privatemedia

import (
	"context"
	"fmt"
	"strings"
)

// PermissionChecker decides whether an identity may read a path. It is
// consulted once per request, before any backend runs.
//
// Returning false denies the request. Returning an error means the checker
// itself failed (for example its database is unreachable); the request is
// then answered with StatusServerError instead of being silently denied.
type PermissionChecker interface {
	HasReadPermission(ctx context.Context, identity Identity, relativePath string) (bool, error)
}

// PermissionFunc adapts a function to PermissionChecker.
type PermissionFunc func(ctx context.Context, identity Identity, relativePath string) (bool, error)

func (f PermissionFunc) HasReadPermission(ctx context.Context, identity Identity, relativePath string) (bool, error) {
	return f(ctx, identity, relativePath)
}

// AllowAll grants every request, anonymous ones included.
func AllowAll() PermissionChecker {
	return PermissionFunc(func(context.Context, Identity, string) (bool, error) {
		return true, nil
	})
}

// Authenticated grants every request made by a known identity.
func Authenticated() PermissionChecker {
	return PermissionFunc(func(_ context.Context, identity Identity, _ string) (bool, error) {
		return !identity.IsAnonymous(), nil
	})
}

// WildcardSubject is the grant subject that matches every caller, anonymous
// ones included.
const WildcardSubject = "*"

// GrantRepo persists read grants.
//
// All methods accept a context for cancellation and timeout control.
type GrantRepo interface {
	// Add creates a grant. Adding an existing (subject, prefix) pair returns
	// the existing grant.
	Add(ctx context.Context, subject, pathPrefix string) (Grant, error)

	// Remove deletes a grant. Returns ErrNotFound if the grant does not exist.
	Remove(ctx context.Context, subject, pathPrefix string) error

	// List returns the grants of subject, or every grant when subject is empty,
	// ordered by subject and path prefix.
	List(ctx context.Context, subject string) ([]Grant, error)

	// ListForSubjects returns the grants of any of the given subjects.
	ListForSubjects(ctx context.Context, subjects []string) ([]Grant, error)
}

// GrantPermissions allows a request when a grant for the caller's subject, or
// for WildcardSubject, covers the requested path.
type GrantPermissions struct {
	repo GrantRepo
}

func NewGrantPermissions(repo GrantRepo) *GrantPermissions {
	return &GrantPermissions{repo: repo}
}

func (p *GrantPermissions) HasReadPermission(ctx context.Context, identity Identity, relativePath string) (bool, error) {
	subjects := []string{WildcardSubject}
	if !identity.IsAnonymous() {
		subjects = append(subjects, identity.Subject)
	}

	grants, err := p.repo.ListForSubjects(ctx, subjects)
	if err != nil {
		return false, fmt.Errorf("has read permission: %w", err)
	}

	for _, g := range grants {
		if PrefixCovers(g.PathPrefix, relativePath) {
			return true, nil
		}
	}

	return false, nil
}

// NormalizeGrant validates a subject and path prefix and returns both in the
// form they are stored in.
func NormalizeGrant(subject, pathPrefix string) (string, string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", "", fmt.Errorf("normalize grant: subject cannot be empty: %w", ErrInvalidGrant)
	}

	prefix := NormalizePrefix(pathPrefix)
	if prefix != "" && !IsValidPath(prefix) {
		return "", "", fmt.Errorf("normalize grant: invalid path prefix %q: %w", pathPrefix, ErrInvalidGrant)
	}

	return subject, prefix, nil
}

// NormalizePrefix trims surrounding slashes from a grant prefix.
func NormalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

// PrefixCovers reports whether a grant prefix covers a path. The empty prefix
// covers everything; otherwise the prefix must equal the path or name one of
// its parent directories, so "docs" covers "docs/a.pdf" but not "docs2/a.pdf".
func PrefixCovers(prefix, relativePath string) bool {
	prefix = NormalizePrefix(prefix)
	relativePath = strings.Trim(relativePath, "/")

	if prefix == "" {
		return true
	}

	if relativePath == prefix {
		return true
	}

	return strings.HasPrefix(relativePath, prefix+"/")
}
