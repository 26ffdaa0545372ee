// Package providers defines the capability every content provider adapter implements and the
// error taxonomy a sync pass reports.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// Provider is a content source adapter.
type Provider interface {
	// Name is the stable provider tag carried by every entity it reports.
	Name() string
	// Title is a display name.
	Title() string
	// ListFolder browses one level of the provider hierarchy. The empty path is the root.
	ListFolder(ctx context.Context, path string) (models.ProviderFolder, error)
	// Sync reports the provider's entities to sink. Calling sink.Scope marks the pass incremental.
	Sync(ctx context.Context, sink Sink) error
}

// Scoper is implemented by providers that can rescan a subset of their folders.
type Scoper interface {
	// Scoped returns a provider whose Sync only walks folders and calls sink.Scope with them.
	Scoped(folders ...string) Provider
}

// Sink receives the entities discovered during one sync pass.
type Sink interface {
	SyncTrack(ctx context.Context, t models.Track) error
	SyncAlbum(ctx context.Context, a models.Album) error
	SyncArtist(ctx context.Context, a models.Artist) error
	SyncPlaylist(ctx context.Context, p models.Playlist) error
	// Scope restricts removal reconciliation to entities whose path lies under one of folders.
	// Without a call to Scope the pass is a full scan.
	Scope(folders ...string)
}

// ErrorKind classifies a [SyncError].
type ErrorKind int

const (
	// Configuration means the provider is misconfigured or unauthenticated. Retrying will not help.
	Configuration ErrorKind = iota
	// LibraryAccess means the catalog refused a write, usually because it is poisoned.
	LibraryAccess
	// Fetch is a transient remote failure.
	Fetch
)

func (k ErrorKind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case LibraryAccess:
		return "library access"
	case Fetch:
		return "fetch"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case Configuration:
		return shared.ErrConfiguration
	case LibraryAccess:
		return shared.ErrLibraryAccess
	default:
		return shared.ErrFetch
	}
}

// SyncError is the failure of one provider sync pass.
type SyncError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error", e.Provider, e.Kind)
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error { return e.Err }

// Is matches the shared sentinel for the error kind.
func (e *SyncError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// NewConfigurationError creates a [SyncError] of kind [Configuration].
func NewConfigurationError(provider string, err error) *SyncError {
	return &SyncError{Provider: provider, Kind: Configuration, Err: err}
}

// NewFetchError creates a [SyncError] of kind [Fetch].
func NewFetchError(provider string, err error) *SyncError {
	return &SyncError{Provider: provider, Kind: Fetch, Err: err}
}

// NewLibraryAccessError creates a [SyncError] of kind [LibraryAccess].
func NewLibraryAccessError(provider string, err error) *SyncError {
	return &SyncError{Provider: provider, Kind: LibraryAccess, Err: err}
}

// AsSyncError classifies any error returned from a sync pass. Errors that are already a
// [SyncError] pass through, catalog failures become [LibraryAccess], configuration sentinels
// become [Configuration] and everything else is treated as [Fetch].
func AsSyncError(provider string, err error) *SyncError {
	if err == nil {
		return nil
	}

	var se *SyncError
	if errors.As(err, &se) {
		return se
	}

	switch {
	case errors.Is(err, shared.ErrLibraryAccess):
		return NewLibraryAccessError(provider, err)
	case errors.Is(err, shared.ErrConfiguration), errors.Is(err, shared.ErrMissingConfig), errors.Is(err, shared.ErrInvalidConfig):
		return NewConfigurationError(provider, err)
	default:
		return NewFetchError(provider, err)
	}
}

// UnderFolder reports whether path equals folder or lies beneath it. Both use "/" separators.
// An empty path is never under any folder.
func UnderFolder(path, folder string) bool {
	if path == "" {
		return false
	}
	path = strings.TrimSuffix(path, "/")
	folder = strings.TrimSuffix(folder, "/")
	if folder == "" {
		return true
	}
	return path == folder || strings.HasPrefix(path, folder+"/")
}
