package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sagarc03/privatemedia"
	"github.com/sagarc03/privatemedia/filesystem"
	mediahttp "github.com/sagarc03/privatemedia/http"
	"github.com/sagarc03/privatemedia/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDispatcher is a mock implementation of http.Dispatcher
type MockDispatcher struct {
	mock.Mock
	config privatemedia.ServerConfig
}

func (m *MockDispatcher) Handle(ctx context.Context, req privatemedia.ResourceRequest) privatemedia.ResponseDescriptor {
	args := m.Called(ctx, req)
	return args.Get(0).(privatemedia.ResponseDescriptor)
}

func (m *MockDispatcher) Config() privatemedia.ServerConfig {
	return m.config
}

func newMockDispatcher() *MockDispatcher {
	return &MockDispatcher{config: privatemedia.ServerConfig{
		RootDirectory: "/data",
		Backend:       privatemedia.BackendDirect,
	}}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func boolPtr(b bool) *bool { return &b }

func okResponse(body string) (privatemedia.ResponseDescriptor, *closeTracker) {
	tracker := &closeTracker{Reader: strings.NewReader(body)}
	resp := privatemedia.ResponseDescriptor{
		Status:        privatemedia.StatusOK,
		Body:          tracker,
		ContentLength: int64(len(body)),
	}
	resp.Headers.Set("Last-Modified", "Mon, 01 Jan 2024 00:00:00 GMT")
	resp.Headers.Set("Content-Type", "application/pdf")
	return resp, tracker
}

func TestHandler_Get_WritesDescriptor(t *testing.T) {
	dispatcher := newMockDispatcher()
	resp, body := okResponse("%PDF-1.4")

	dispatcher.On("Handle", mock.Anything, mock.MatchedBy(func(req privatemedia.ResourceRequest) bool {
		return req.RelativePath == "docs/report.pdf" && req.Identity.IsAnonymous() && req.ForceDownload == nil
	})).Return(resp)

	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/private-media"}, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/private-media/docs/report.pdf", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Mon, 01 Jan 2024 00:00:00 GMT", rec.Header().Get("Last-Modified"))
	assert.Equal(t, "8", rec.Header().Get("Content-Length"))
	assert.True(t, body.closed)
	dispatcher.AssertExpectations(t)
}

func TestHandler_Head_HasNoBody(t *testing.T) {
	dispatcher := newMockDispatcher()
	resp, body := okResponse("%PDF-1.4")
	dispatcher.On("Handle", mock.Anything, mock.Anything).Return(resp)

	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/private-media"}, dispatcher)

	req := httptest.NewRequest(http.MethodHead, "/private-media/docs/report.pdf", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "8", rec.Header().Get("Content-Length"))
	assert.True(t, body.closed)
}

func TestHandler_URLPrefixNormalization(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		target string
	}{
		{name: "no prefix", prefix: "", target: "/docs/a.pdf"},
		{name: "slash prefix", prefix: "/", target: "/docs/a.pdf"},
		{name: "trailing slash", prefix: "/private-media/", target: "/private-media/docs/a.pdf"},
		{name: "no leading slash", prefix: "media", target: "/media/docs/a.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := newMockDispatcher()
			dispatcher.On("Handle", mock.Anything, mock.MatchedBy(func(req privatemedia.ResourceRequest) bool {
				return req.RelativePath == "docs/a.pdf"
			})).Return(privatemedia.ResponseDescriptor{Status: privatemedia.StatusOK, ContentLength: -1})

			handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: tt.prefix}, dispatcher)

			rec := httptest.NewRecorder()
			handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			dispatcher.AssertExpectations(t)
		})
	}
}

func TestHandler_OutsidePrefix(t *testing.T) {
	dispatcher := newMockDispatcher()
	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/private-media"}, dispatcher)

	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other/a.pdf", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	dispatcher.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	dispatcher := newMockDispatcher()
	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/private-media"}, dispatcher)

	for _, method := range []string{http.MethodPut, http.MethodPost, http.MethodDelete} {
		rec := httptest.NewRecorder()
		handler.Router().ServeHTTP(rec, httptest.NewRequest(method, "/private-media/a.pdf", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
	dispatcher.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestHandler_BuildsConditionalRequest(t *testing.T) {
	dispatcher := newMockDispatcher()
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	dispatcher.On("Handle", mock.Anything, mock.MatchedBy(func(req privatemedia.ResourceRequest) bool {
		return req.Conditional.IfModifiedSince.Equal(want) &&
			req.Conditional.HasLength && req.Conditional.Length == 42
	})).Return(privatemedia.ResponseDescriptor{Status: privatemedia.StatusNotModified, ContentLength: -1})

	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/private-media"}, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/private-media/a.pdf", nil)
	req.Header.Set("If-Modified-Since", "Mon, 01 Jan 2024 00:00:00 GMT; length=42")
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
	dispatcher.AssertExpectations(t)
}

func TestHandler_DownloadOverride(t *testing.T) {
	tests := []struct {
		query string
		want  *bool
	}{
		{query: "", want: nil},
		{query: "?download=1", want: boolPtr(true)},
		{query: "?download=true", want: boolPtr(true)},
		{query: "?download=0", want: boolPtr(false)},
		{query: "?download=false", want: boolPtr(false)},
		{query: "?download=maybe", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			dispatcher := newMockDispatcher()
			dispatcher.On("Handle", mock.Anything, mock.MatchedBy(func(req privatemedia.ResourceRequest) bool {
				if tt.want == nil {
					return req.ForceDownload == nil
				}
				return req.ForceDownload != nil && *req.ForceDownload == *tt.want
			})).Return(privatemedia.ResponseDescriptor{Status: privatemedia.StatusOK, ContentLength: -1})

			handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/m"}, dispatcher)

			rec := httptest.NewRecorder()
			handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/m/a.pdf"+tt.query, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			dispatcher.AssertExpectations(t)
		})
	}
}

func TestHandler_ErrorStatuses(t *testing.T) {
	tests := []struct {
		status   privatemedia.Status
		wantCode int
		wantErr  string
	}{
		{status: privatemedia.StatusNotFound, wantCode: http.StatusNotFound, wantErr: "not_found"},
		{status: privatemedia.StatusDenied, wantCode: http.StatusForbidden, wantErr: "forbidden"},
		{status: privatemedia.StatusServerError, wantCode: http.StatusInternalServerError, wantErr: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			dispatcher := newMockDispatcher()
			dispatcher.On("Handle", mock.Anything, mock.Anything).
				Return(privatemedia.ResponseDescriptor{Status: tt.status, ContentLength: -1})

			handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{}, dispatcher)

			rec := httptest.NewRecorder()
			handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/a.pdf", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body mediahttp.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantErr, body.Error)
		})
	}
}

func TestHandler_ErrorPageForBrowsers(t *testing.T) {
	dispatcher := newMockDispatcher()
	dispatcher.On("Handle", mock.Anything, mock.Anything).
		Return(privatemedia.ResponseDescriptor{Status: privatemedia.StatusNotFound, ContentLength: -1})

	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{}, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/a.pdf", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "404 Not Found")
}

func TestHandler_Health(t *testing.T) {
	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{}, newMockDispatcher())

	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandler_Metrics(t *testing.T) {
	m := metrics.New()
	dispatcher := newMockDispatcher()
	dispatcher.On("Handle", mock.Anything, mock.Anything).
		Return(privatemedia.ResponseDescriptor{Status: privatemedia.StatusNotFound, ContentLength: -1})

	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{
		URLPrefix:   "/private-media",
		Metrics:     m,
		MetricsPath: "/metrics",
	}, dispatcher)
	router := handler.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private-media/a.pdf", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Responses.WithLabelValues("not_found", "direct")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "404")))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `privatemedia_responses_total{backend="direct",status="not_found"} 1`)
}

func TestHandler_MetricsPathDisabled(t *testing.T) {
	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/private-media"}, newMockDispatcher())

	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CORS(t *testing.T) {
	dispatcher := newMockDispatcher()
	dispatcher.On("Handle", mock.Anything, mock.Anything).
		Return(privatemedia.ResponseDescriptor{Status: privatemedia.StatusOK, ContentLength: -1})

	handler := mediahttp.NewHandler(&mediahttp.HandlerConfig{
		CORS: mediahttp.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://app.example.com"},
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
		},
	}, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/a.pdf", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

// newMediaStack builds a real dispatcher over a temporary root.
func newMediaStack(t *testing.T, backend privatemedia.BackendKind, perms privatemedia.PermissionChecker) *privatemedia.Dispatcher {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))

	file := filepath.Join(dir, "docs", "report.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4 report"), 0o644))
	modTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(file, modTime, modTime))

	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	cfg := privatemedia.ServerConfig{
		RootDirectory:     dir,
		InternalURLPrefix: "/protected",
		Backend:           backend,
	}

	b, err := privatemedia.NewBackend(cfg, filesystem.NewFileStorage(root))
	require.NoError(t, err)

	d, err := privatemedia.NewDispatcher(cfg, perms, b)
	require.NoError(t, err)
	return d
}

func TestHandler_DirectBackend(t *testing.T) {
	d := newMediaStack(t, privatemedia.BackendDirect, privatemedia.AllowAll())
	router := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/private-media"}, d).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private-media/docs/report.pdf?download=1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 report", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Mon, 01 Jan 2024 00:00:00 GMT", rec.Header().Get("Last-Modified"))
	assert.Equal(t, "attachment; filename=report.pdf", rec.Header().Get("Content-Disposition"))

	req := httptest.NewRequest(http.MethodGet, "/private-media/docs/report.pdf", nil)
	req.Header.Set("If-Modified-Since", "Mon, 01 Jan 2024 00:00:00 GMT")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private-media/../etc/passwd", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_XSendfileBackend(t *testing.T) {
	d := newMediaStack(t, privatemedia.BackendXSendfile, privatemedia.AllowAll())
	router := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/private-media"}, d).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private-media/docs/report.pdf", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, filepath.Join(d.Config().RootDirectory, "docs", "report.pdf"), rec.Header().Get("X-Sendfile"))
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestHandler_DeniedLooksLikeMissing(t *testing.T) {
	d := newMediaStack(t, privatemedia.BackendXAccelRedirect, privatemedia.Authenticated())
	router := mediahttp.NewHandler(&mediahttp.HandlerConfig{URLPrefix: "/private-media"}, d).Router()

	existing := httptest.NewRecorder()
	router.ServeHTTP(existing, httptest.NewRequest(http.MethodGet, "/private-media/docs/report.pdf", nil))

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/private-media/docs/missing.pdf", nil))

	assert.Equal(t, http.StatusNotFound, existing.Code)
	assert.Equal(t, missing.Code, existing.Code)
	assert.Equal(t, missing.Body.String(), existing.Body.String())
	assert.Empty(t, existing.Header().Get("X-Accel-Redirect"))
}
