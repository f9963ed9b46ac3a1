package privatemedia_test

import (
	"context"
	"io"
	"io/fs"
	"time"

	"github.com/sagarc03/privatemedia"
	"github.com/stretchr/testify/mock"
)

type SpyFileStorage struct {
	mock.Mock
}

func (s *SpyFileStorage) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	args := s.Called(ctx, path)
	info, _ := args.Get(0).(fs.FileInfo)
	return info, args.Error(1)
}

func (s *SpyFileStorage) Open(ctx context.Context, path string) (io.ReadSeekCloser, error) {
	args := s.Called(ctx, path)
	f, _ := args.Get(0).(io.ReadSeekCloser)
	return f, args.Error(1)
}

type SpyPermissionChecker struct {
	mock.Mock
}

func (s *SpyPermissionChecker) HasReadPermission(ctx context.Context, identity privatemedia.Identity, relativePath string) (bool, error) {
	args := s.Called(ctx, identity, relativePath)
	return args.Bool(0), args.Error(1)
}

type SpyBackend struct {
	mock.Mock
	kind privatemedia.BackendKind
}

func (s *SpyBackend) Kind() privatemedia.BackendKind {
	return s.kind
}

func (s *SpyBackend) Serve(ctx context.Context, req privatemedia.ResourceRequest, res privatemedia.ResolvedResource) (privatemedia.ResponseDescriptor, error) {
	args := s.Called(ctx, req, res)
	return args.Get(0).(privatemedia.ResponseDescriptor), args.Error(1)
}

type SpyGrantRepo struct {
	mock.Mock
}

func (s *SpyGrantRepo) Add(ctx context.Context, subject, pathPrefix string) (privatemedia.Grant, error) {
	args := s.Called(ctx, subject, pathPrefix)
	return args.Get(0).(privatemedia.Grant), args.Error(1)
}

func (s *SpyGrantRepo) Remove(ctx context.Context, subject, pathPrefix string) error {
	args := s.Called(ctx, subject, pathPrefix)
	return args.Error(0)
}

func (s *SpyGrantRepo) List(ctx context.Context, subject string) ([]privatemedia.Grant, error) {
	args := s.Called(ctx, subject)
	return args.Get(0).([]privatemedia.Grant), args.Error(1)
}

func (s *SpyGrantRepo) ListForSubjects(ctx context.Context, subjects []string) ([]privatemedia.Grant, error) {
	args := s.Called(ctx, subjects)
	return args.Get(0).([]privatemedia.Grant), args.Error(1)
}

type fakeFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return f.size }
func (f fakeFileInfo) Mode() fs.FileMode  { return f.mode }
func (f fakeFileInfo) ModTime() time.Time { return f.modTime }
func (f fakeFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeFileInfo) Sys() any           { return nil }

type closeTracker struct {
	io.ReadSeeker
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}
