package core

import (
	"context"
	"io"
	"time"

	"github.com/desertthunder/medley/internal/events"
	"github.com/desertthunder/medley/internal/extensions"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/tasks"
)

// Sync runs one cycle of every registered provider. Provider failures are reported through
// [Engine.SyncState] and joined into the returned error.
func (e *Engine) Sync(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
	return e.sync.SyncAll(ctx, progress)
}

// SyncProvider runs one cycle of a single provider.
func (e *Engine) SyncProvider(ctx context.Context, name string, progress chan<- tasks.ProgressUpdate) error {
	return e.sync.Sync(ctx, name, progress)
}

// SyncFolders rescans only folders of a provider that supports incremental sync, such as the
// local provider. Entities outside folders are left untouched.
func (e *Engine) SyncFolders(ctx context.Context, name string, folders []string, progress chan<- tasks.ProgressUpdate) error {
	return e.sync.SyncFolders(ctx, name, folders, progress)
}

// Schedule syncs every provider each interval until ctx is done.
func (e *Engine) Schedule(ctx context.Context, interval time.Duration) {
	e.sync.Schedule(ctx, interval, nil)
}

// SyncState returns the aggregate synchronization state.
func (e *Engine) SyncState() tasks.SyncState {
	return e.sync.State()
}

// SyncItems returns the state of every provider, idle ones included.
func (e *Engine) SyncItems() []tasks.SyncItem {
	return e.sync.Items()
}

// SubscribeSyncState streams state changes, starting with the current state.
func (e *Engine) SubscribeSyncState() *events.Subscription[tasks.SyncState] {
	return e.sync.Subscribe()
}

// ResetProvider moves a finished provider back to Idle.
func (e *Engine) ResetProvider(name string) error {
	return e.sync.Reset(name)
}

// SyncHistory returns the most recent recorded runs of provider, newest first. It is empty
// when the engine was built without a database.
func (e *Engine) SyncHistory(provider string, limit int) ([]models.SyncRun, error) {
	if e.runs == nil {
		return nil, nil
	}
	return e.runs.List(provider, limit)
}

// ProviderNames lists registered providers in registration order.
func (e *Engine) ProviderNames() []string {
	var names []string
	for _, p := range e.sync.Providers() {
		names = append(names, p.Name())
	}
	return names
}

// Extensions lists the registered extensions, disabled ones included.
func (e *Engine) Extensions() []extensions.HostedExtension {
	return e.host.Extensions()
}

// ResetExtension re-enables a disabled extension.
func (e *Engine) ResetExtension(id string) error {
	return e.host.Reset(id)
}

// AttachExtension registers an extension over an already connected transport.
func (e *Engine) AttachExtension(ctx context.Context, name string, rw io.ReadWriteCloser) (extensions.HostedExtension, error) {
	return e.host.Attach(ctx, name, rw)
}
