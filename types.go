package privatemedia

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// BackendKind selects how an allowed request is delivered.
type BackendKind string

const (
	BackendDirect         BackendKind = "direct"
	BackendXAccelRedirect BackendKind = "x-accel-redirect"
	BackendXSendfile      BackendKind = "x-sendfile"
)

func (k BackendKind) IsValid() bool {
	switch k {
	case BackendDirect, BackendXAccelRedirect, BackendXSendfile:
		return true
	default:
		return false
	}
}

func ParseBackendKind(s string) (BackendKind, error) {
	kind := BackendKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid backend: %s (valid backends: direct, x-accel-redirect, x-sendfile)", s)
	}
	return kind, nil
}

// ServerConfig is the process-wide configuration of the core. It is built once
// at startup and passed by value; nothing mutates it afterwards.
type ServerConfig struct {
	RootDirectory        string
	InternalURLPrefix    string
	ForceDownloadDefault bool
	Backend              BackendKind
	Debug                bool
}

// Validate checks that the configuration can serve requests.
func (c ServerConfig) Validate() error {
	if c.RootDirectory == "" {
		return errors.New("validate server config: root directory cannot be empty")
	}

	if !filepath.IsAbs(c.RootDirectory) {
		return fmt.Errorf("validate server config: root directory must be absolute: %s", c.RootDirectory)
	}

	if !c.Backend.IsValid() {
		return fmt.Errorf("validate server config: invalid backend: %s", c.Backend)
	}

	if c.Backend == BackendXAccelRedirect && c.InternalURLPrefix == "" {
		return errors.New("validate server config: internal url prefix is required for x-accel-redirect")
	}

	return nil
}

// Identity is the caller context handed to the PermissionChecker.
// An empty Subject means the caller is anonymous.
type Identity struct {
	Subject string
	// Method records how the subject was established ("signature", "header").
	Method string
}

func (i Identity) IsAnonymous() bool {
	return i.Subject == ""
}

// ConditionalHeaders carries the request's cache validators.
type ConditionalHeaders struct {
	// IfModifiedSince is the zero time when the header was absent or unparsable.
	IfModifiedSince time.Time
	// Length is the optional "length=" parameter of If-Modified-Since.
	Length    int64
	HasLength bool
}

// ResourceRequest is built per incoming request and discarded once the
// response has been produced.
type ResourceRequest struct {
	RelativePath string
	Identity     Identity
	Conditional  ConditionalHeaders
	// ForceDownload overrides ServerConfig.ForceDownloadDefault when non-nil.
	ForceDownload *bool
}

// ResolvedResource is derived from a request path and the ServerConfig.
type ResolvedResource struct {
	// RelativePath is the cleaned, slash separated path below the root.
	RelativePath string
	AbsolutePath string
	ContentType  string
	Filename     string
}

// Grant allows Subject to read every file at or below PathPrefix.
type Grant struct {
	ID         uuid.UUID `json:"id"`
	Subject    string    `json:"subject"`
	PathPrefix string    `json:"path_prefix"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tables holds configurable table names for grant storage.
type Tables struct {
	Grants string `mapstructure:"grants"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Grants == "" {
		return errors.New("validate tables: grants table name cannot be empty")
	}

	if !IsValidTableName(t.Grants) {
		return fmt.Errorf("validate tables: invalid grants table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Grants)
	}

	return nil
}
