package privatemedia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Dispatcher turns a ResourceRequest into a ResponseDescriptor. It holds no
// mutable state and is safe for concurrent use.
type Dispatcher struct {
	config      ServerConfig
	permissions PermissionChecker
	backend     Backend
	logger      *slog.Logger
}

// DispatcherOption configures NewDispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sends the dispatcher's logs to l instead of slog.Default().
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher validates cfg and wires the permission checker and backend.
func NewDispatcher(cfg ServerConfig, permissions PermissionChecker, backend Backend, opts ...DispatcherOption) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new dispatcher: %w", err)
	}

	if permissions == nil {
		return nil, errors.New("new dispatcher: permission checker is required")
	}

	if backend == nil {
		return nil, errors.New("new dispatcher: backend is required")
	}

	if backend.Kind() != cfg.Backend {
		return nil, fmt.Errorf("new dispatcher: backend %s does not match configured backend %s", backend.Kind(), cfg.Backend)
	}

	d := &Dispatcher{
		config:      cfg,
		permissions: permissions,
		backend:     backend,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Config returns the configuration the dispatcher was built with.
func (d *Dispatcher) Config() ServerConfig {
	return d.config
}

// Handle answers a request. It never returns an error: every failure is
// converted into a well-formed descriptor.
//
// The request moves through these steps:
//  1. Resolve the path. Paths escaping the root become StatusNotFound and the
//     permission checker is never asked.
//  2. Ask the PermissionChecker. A denial becomes StatusNotFound, or
//     StatusDenied when the server runs in debug mode. A checker error
//     becomes StatusServerError.
//  3. Let the configured backend serve the resource. A missing file becomes
//     StatusNotFound; any other failure becomes StatusServerError and is
//     logged.
//
// The caller must Close the returned descriptor.
func (d *Dispatcher) Handle(ctx context.Context, req ResourceRequest) ResponseDescriptor {
	res, err := Resolve(req.RelativePath, d.config)
	if err != nil {
		d.logger.DebugContext(ctx, "rejected request path", "path", req.RelativePath, "err", err)
		return newResponse(StatusNotFound)
	}

	allowed, err := d.permissions.HasReadPermission(ctx, req.Identity, res.RelativePath)
	if err != nil {
		d.logger.ErrorContext(ctx, "permission check failed", "path", res.RelativePath, "subject", req.Identity.Subject, "err", err)
		return newResponse(StatusServerError)
	}

	if !allowed {
		d.logger.DebugContext(ctx, "permission denied", "path", res.RelativePath, "subject", req.Identity.Subject)
		return d.denied()
	}

	resp, err := d.backend.Serve(ctx, req, res)
	if err != nil {
		return d.backendFailure(ctx, res, err)
	}

	return resp
}

// denied hides the difference between "forbidden" and "absent" outside debug mode.
func (d *Dispatcher) denied() ResponseDescriptor {
	if d.config.Debug {
		return newResponse(StatusDenied)
	}
	return newResponse(StatusNotFound)
}

func (d *Dispatcher) backendFailure(ctx context.Context, res ResolvedResource, err error) ResponseDescriptor {
	switch {
	case errors.Is(err, ErrNotFound):
		d.logger.DebugContext(ctx, "resource not found", "path", res.RelativePath)
		return newResponse(StatusNotFound)
	case errors.Is(err, ErrPermissionDenied):
		return d.denied()
	default:
		d.logger.ErrorContext(ctx, "backend failed", "path", res.RelativePath, "backend", d.backend.Kind(), "err", err)
		return newResponse(StatusServerError)
	}
}
