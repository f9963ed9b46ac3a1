package privatemedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileStorage gives read access to the files below the root directory.
// Paths are the cleaned relative paths of ResolvedResource.
type FileStorage interface {
	// Stat returns ErrNotFound when the path does not exist.
	Stat(ctx context.Context, path string) (fs.FileInfo, error)

	// Open returns ErrNotFound when the path does not exist. The caller closes
	// the returned reader.
	Open(ctx context.Context, path string) (io.ReadSeekCloser, error)
}

// Backend delivers a resource once permission has been granted.
type Backend interface {
	Kind() BackendKind
	Serve(ctx context.Context, req ResourceRequest, res ResolvedResource) (ResponseDescriptor, error)
}

// SizeObserver receives the size of every file the direct backend sends.
// A prometheus.Histogram satisfies it.
type SizeObserver interface {
	Observe(float64)
}

type backendOptions struct {
	sizeObserver SizeObserver
}

// BackendOption configures NewBackend.
type BackendOption func(*backendOptions)

// WithSizeObserver reports served file sizes to o.
func WithSizeObserver(o SizeObserver) BackendOption {
	return func(opts *backendOptions) {
		opts.sizeObserver = o
	}
}

// NewBackend builds the backend selected by cfg.Backend. storage is only used
// by BackendDirect and may be nil for the proxy backends.
func NewBackend(cfg ServerConfig, storage FileStorage, opts ...BackendOption) (Backend, error) {
	var o backendOptions
	for _, opt := range opts {
		opt(&o)
	}

	disposition := Disposition{ForceDownload: cfg.ForceDownloadDefault}

	switch cfg.Backend {
	case BackendDirect:
		if storage == nil {
			return nil, errors.New("new backend: direct backend requires file storage")
		}
		return &DirectBackend{storage: storage, disposition: disposition, sizeObserver: o.sizeObserver}, nil
	case BackendXAccelRedirect:
		if cfg.InternalURLPrefix == "" {
			return nil, errors.New("new backend: x-accel-redirect requires an internal url prefix")
		}
		return &XAccelRedirectBackend{internalURL: cfg.InternalURLPrefix, disposition: disposition}, nil
	case BackendXSendfile:
		return &XSendfileBackend{disposition: disposition}, nil
	default:
		return nil, fmt.Errorf("new backend: invalid backend: %s", cfg.Backend)
	}
}

// DirectBackend reads files itself. It answers If-Modified-Since and streams
// the file body; it is meant for development and small deployments.
type DirectBackend struct {
	storage      FileStorage
	disposition  Disposition
	sizeObserver SizeObserver
}

func (b *DirectBackend) Kind() BackendKind { return BackendDirect }

// Serve returns ErrNotFound when the file is missing or is not a regular file,
// and an error wrapping ErrBackendIO for any other read failure.
func (b *DirectBackend) Serve(ctx context.Context, req ResourceRequest, res ResolvedResource) (ResponseDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return ResponseDescriptor{}, fmt.Errorf("serve %s: %w", res.RelativePath, err)
	}

	info, err := b.storage.Stat(ctx, res.RelativePath)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ResponseDescriptor{}, fmt.Errorf("serve %s: %w", res.RelativePath, ErrNotFound)
		}
		return ResponseDescriptor{}, fmt.Errorf("serve %s: stat: %w: %w", res.RelativePath, ErrBackendIO, err)
	}

	// Directories, devices and sockets are not served.
	if !info.Mode().IsRegular() {
		return ResponseDescriptor{}, fmt.Errorf("serve %s: not a regular file: %w", res.RelativePath, ErrNotFound)
	}

	// An unknown extension is sniffed before the conditional check so a 304
	// carries the same Content-Type as the 200 for the same file.
	var f io.ReadSeekCloser
	contentType := res.ContentType
	if contentType == defaultContentType {
		if f, err = b.open(ctx, res); err != nil {
			return ResponseDescriptor{}, err
		}

		if contentType, err = sniffContentType(f); err != nil {
			closeFile(f, res)
			return ResponseDescriptor{}, fmt.Errorf("serve %s: sniff: %w: %w", res.RelativePath, ErrBackendIO, err)
		}
	}

	if !wasModifiedSince(req.Conditional, info.ModTime(), info.Size()) {
		if f != nil {
			closeFile(f, res)
		}
		resp := newResponse(StatusNotModified)
		resp.Headers.Set("Content-Type", contentType)
		return resp, nil
	}

	if f == nil {
		if f, err = b.open(ctx, res); err != nil {
			return ResponseDescriptor{}, err
		}
	}

	if b.sizeObserver != nil {
		b.sizeObserver.Observe(float64(info.Size()))
	}

	resp := newResponse(StatusOK)
	resp.Headers.Set("Content-Type", contentType)
	resp.Headers.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	b.disposition.Apply(&resp, res, req.ForceDownload)
	resp.Body = f
	resp.ContentLength = info.Size()

	return resp, nil
}

func (b *DirectBackend) open(ctx context.Context, res ResolvedResource) (io.ReadSeekCloser, error) {
	f, err := b.storage.Open(ctx, res.RelativePath)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("serve %s: %w", res.RelativePath, ErrNotFound)
		}
		return nil, fmt.Errorf("serve %s: open: %w: %w", res.RelativePath, ErrBackendIO, err)
	}
	return f, nil
}

func closeFile(f io.Closer, res ResolvedResource) {
	if err := f.Close(); err != nil {
		slog.Warn("failed to close file", "path", res.RelativePath, "err", err)
	}
}

// sniffContentType detects the type from the start of f and rewinds it.
func sniffContentType(f io.ReadSeeker) (string, error) {
	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return detected.String(), nil
}

// XAccelRedirectBackend hands delivery to nginx. The response body is empty;
// nginx replaces it with the file found at the internal location, including
// conditional GET handling.
type XAccelRedirectBackend struct {
	internalURL string
	disposition Disposition
}

func (b *XAccelRedirectBackend) Kind() BackendKind { return BackendXAccelRedirect }

func (b *XAccelRedirectBackend) Serve(_ context.Context, req ResourceRequest, res ResolvedResource) (ResponseDescriptor, error) {
	resp := newResponse(StatusOK)
	resp.Headers.Set("X-Accel-Redirect", internalURL(b.internalURL, res.RelativePath))
	resp.Headers.Set("Content-Type", res.ContentType)
	b.disposition.Apply(&resp, res, req.ForceDownload)
	return resp, nil
}

// internalURL joins the internal prefix and the escaped relative path.
func internalURL(prefix, relativePath string) string {
	escaped := (&url.URL{Path: relativePath}).EscapedPath()
	return strings.TrimSuffix(prefix, "/") + "/" + escaped
}

// XSendfileBackend hands delivery to Apache mod_xsendfile or lighttpd using
// the absolute filesystem path.
type XSendfileBackend struct {
	disposition Disposition
}

func (b *XSendfileBackend) Kind() BackendKind { return BackendXSendfile }

func (b *XSendfileBackend) Serve(_ context.Context, req ResourceRequest, res ResolvedResource) (ResponseDescriptor, error) {
	resp := newResponse(StatusOK)
	resp.Headers.Set("X-Sendfile", res.AbsolutePath)
	// lighttpd needs the content type even though it serves the body.
	resp.Headers.Set("Content-Type", res.ContentType)
	b.disposition.Apply(&resp, res, req.ForceDownload)
	return resp, nil
}
