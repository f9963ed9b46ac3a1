package privatemedia

import (
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
)

const defaultContentType = "application/octet-stream"

// Resolve maps a request path onto a file below cfg.RootDirectory.
//
// The path is validated before anything else happens, so a path that would
// escape the root is rejected with ErrInvalidPath without touching the
// filesystem. Resolve never stats or opens the file; whether it exists is for
// the backend to find out.
func Resolve(relativePath string, cfg ServerConfig) (ResolvedResource, error) {
	if !IsValidPath(relativePath) {
		return ResolvedResource{}, fmt.Errorf("resolve %q: %w", relativePath, ErrInvalidPath)
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+relativePath), "/")
	if cleaned == "" {
		return ResolvedResource{}, fmt.Errorf("resolve %q: %w", relativePath, ErrInvalidPath)
	}

	root := filepath.Clean(cfg.RootDirectory)
	absolute := filepath.Join(root, filepath.FromSlash(cleaned))

	rel, err := filepath.Rel(root, absolute)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return ResolvedResource{}, fmt.Errorf("resolve %q: escapes root: %w", relativePath, ErrInvalidPath)
	}

	return ResolvedResource{
		RelativePath: cleaned,
		AbsolutePath: absolute,
		ContentType:  detectContentType(cleaned),
		Filename:     SanitizeFilename(path.Base(cleaned)),
	}, nil
}

// detectContentType guesses the MIME type from the file extension.
func detectContentType(p string) string {
	contentType := mime.TypeByExtension(path.Ext(p))

	if contentType == "" {
		return defaultContentType
	}

	return contentType
}
