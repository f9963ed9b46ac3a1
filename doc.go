// Package privatemedia serves files that live outside the public web root to
// callers that have been granted read permission.
//
// A request names a file relative to a configured root directory. The
// Dispatcher resolves that path, asks a PermissionChecker whether the caller
// may read it and, when allowed, hands the request to one of three backends:
//
//   - BackendDirect: reads the file itself and honours If-Modified-Since
//   - BackendXAccelRedirect: answers with an X-Accel-Redirect header so nginx
//     serves the file from an internal location
//   - BackendXSendfile: answers with an X-Sendfile header carrying the absolute
//     filesystem path for Apache or lighttpd
//
// The result is always a ResponseDescriptor. Errors never escape Handle: a path
// that escapes the root, a denied request and a missing file are all reported
// as StatusNotFound so callers cannot discover which files exist. When
// ServerConfig.Debug is set a denied request is reported as StatusDenied instead.
//
// # Example Usage
//
//	cfg := privatemedia.ServerConfig{
//	    RootDirectory:        "/srv/private",
//	    Backend:              privatemedia.BackendXSendfile,
//	    ForceDownloadDefault: true,
//	}
//
//	backend, err := privatemedia.NewBackend(cfg, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	dispatcher, err := privatemedia.NewDispatcher(cfg, privatemedia.Authenticated(), backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp := dispatcher.Handle(ctx, privatemedia.ResourceRequest{
//	    RelativePath: "reports/2024.pdf",
//	    Identity:     privatemedia.Identity{Subject: "alice"},
//	})
//
// See the http package for the HTTP host and the database package for the
// grant-backed PermissionChecker.
package privatemedia
