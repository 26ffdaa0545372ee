// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/providers"
)

// MockProvider is a test double for [providers.Provider].
//
// Each Sync reports the configured entities. Err, Panic and Block change what the next syncs do.
type MockProvider struct {
	ProviderName string

	mu       sync.Mutex
	entities []models.Entity
	scope    []string
	folders  map[string]models.ProviderFolder
	err      error
	panicMsg any
	block    chan struct{}
	started  chan struct{}
	calls    int
}

// NewMockProvider creates a provider named name reporting entities on every sync.
func NewMockProvider(name string, entities ...models.Entity) *MockProvider {
	return &MockProvider{ProviderName: name, entities: entities, folders: map[string]models.ProviderFolder{}}
}

func (m *MockProvider) Name() string  { return m.ProviderName }
func (m *MockProvider) Title() string { return "Mock " + m.ProviderName }

// SetEntities replaces what the next syncs report.
func (m *MockProvider) SetEntities(entities ...models.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities = entities
}

// SetScope makes the next syncs incremental over folders. No folders means a full scan.
func (m *MockProvider) SetScope(folders ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scope = folders
}

// SetError makes the next syncs fail with err after reporting their entities.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetPanic makes the next syncs panic with v.
func (m *MockProvider) SetPanic(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = v
}

// Block makes the next syncs wait until the returned release function is called.
// Started receives once per sync that reached the blocking point.
func (m *MockProvider) Block() (started <-chan struct{}, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = make(chan struct{})
	m.started = make(chan struct{}, 16)
	block := m.block
	var once sync.Once
	return m.started, func() { once.Do(func() { close(block) }) }
}

// SetFolder registers the listing returned for path.
func (m *MockProvider) SetFolder(path string, folder models.ProviderFolder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[path] = folder
}

// Calls returns how many syncs ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) ListFolder(ctx context.Context, path string) (models.ProviderFolder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	folder, ok := m.folders[path]
	if !ok {
		return models.ProviderFolder{}, providers.NewFetchError(m.ProviderName, errors.New("no such folder: "+path))
	}
	return folder, nil
}

func (m *MockProvider) Sync(ctx context.Context, sink providers.Sink) error {
	return m.sync(ctx, sink, nil)
}

// Scoped returns a view of m whose syncs are incremental over folders.
func (m *MockProvider) Scoped(folders ...string) providers.Provider {
	return &scopedMock{MockProvider: m, folders: folders}
}

type scopedMock struct {
	*MockProvider
	folders []string
}

func (s *scopedMock) Sync(ctx context.Context, sink providers.Sink) error {
	return s.sync(ctx, sink, s.folders)
}

func (m *MockProvider) sync(ctx context.Context, sink providers.Sink, scope []string) error {
	m.mu.Lock()
	m.calls++
	entities := append([]models.Entity(nil), m.entities...)
	if scope == nil {
		scope = m.scope
	}
	err, panicMsg := m.err, m.panicMsg
	block, started := m.block, m.started
	m.mu.Unlock()

	if block != nil {
		started <- struct{}{}
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if panicMsg != nil {
		panic(panicMsg)
	}

	if len(scope) > 0 {
		sink.Scope(scope...)
	}

	for _, e := range entities {
		var werr error
		switch v := models.Deref(e).(type) {
		case models.Track:
			werr = sink.SyncTrack(ctx, v)
		case models.Album:
			werr = sink.SyncAlbum(ctx, v)
		case models.Artist:
			werr = sink.SyncArtist(ctx, v)
		case models.Playlist:
			werr = sink.SyncPlaylist(ctx, v)
		}
		if werr != nil {
			return werr
		}
	}

	return err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// FReadWriteCloser fails every read and write. Used to simulate a dead extension transport.
type FReadWriteCloser struct{}

func (f *FReadWriteCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FReadWriteCloser) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func (f *FReadWriteCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
