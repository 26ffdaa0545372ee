package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/medley/internal/cursor"
	"github.com/desertthunder/medley/internal/library"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/providers"
	"github.com/desertthunder/medley/internal/repositories"
	"github.com/desertthunder/medley/internal/shared"
	tu "github.com/desertthunder/medley/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func track(provider, uri, path string) models.Track {
	return models.Track{URI: uri, Provider: provider, Path: path, Title: uri, ArtistName: "Artist"}
}

func newEngine(t *testing.T, settle bool) (*SyncEngine, *library.Catalog) {
	t.Helper()
	catalog := library.New(library.Options{})
	engine := NewSyncEngine(Options{Catalog: catalog, Settle: settle, Rate: 1000, Logger: shared.NopLogger()})
	t.Cleanup(engine.Close)
	return engine, catalog
}

// unscoped hides the Scoped method of the wrapped provider.
type unscoped struct{ providers.Provider }

func uris(tracks []models.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.URI)
	}
	return out
}

func TestSyncEndToEnd(t *testing.T) {
	engine, catalog := newEngine(t, false)
	p1 := tu.NewMockProvider("p1", track("p1", "p1:t1", "/"))
	require.NoError(t, engine.Register(p1))

	ctx := context.Background()
	require.NoError(t, engine.Sync(ctx, "p1", nil))

	tracks := catalog.Tracks(library.Filter{})
	require.Len(t, tracks, 1)
	token := cursor.EncodeString(tracks[0].URI)
	uri, err := cursor.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "p1:t1", uri)

	require.NoError(t, engine.Sync(ctx, "p1", nil))
	again := catalog.Tracks(library.Filter{})
	require.Len(t, again, 1, "re-sync must not duplicate")
	assert.Equal(t, tracks[0].ID, again[0].ID)
	assert.Equal(t, token, cursor.EncodeString(again[0].URI))

	item, ok := engine.Item("p1")
	require.True(t, ok)
	assert.Equal(t, Done, item.State)
	assert.True(t, engine.State().Synchronizing(), "Done is not Idle until reset")
}

func TestSyncReconcile(t *testing.T) {
	t.Run("full scan removes unreported entities", func(t *testing.T) {
		engine, catalog := newEngine(t, false)
		p1 := tu.NewMockProvider("p1", track("p1", "p1:t1", "/a"), track("p1", "p1:t2", "/b"))
		p2 := tu.NewMockProvider("p2", track("p2", "p2:t1", "/a"))
		require.NoError(t, engine.Register(p1))
		require.NoError(t, engine.Register(p2))

		ctx := context.Background()
		require.NoError(t, engine.Sync(ctx, "p1", nil))
		require.NoError(t, engine.Sync(ctx, "p2", nil))

		p1.SetEntities(track("p1", "p1:t1", "/a"))
		require.NoError(t, engine.Sync(ctx, "p1", nil))

		assert.Equal(t, []string{"p1:t1", "p2:t1"}, uris(catalog.Tracks(library.Filter{})))
		run, ok := engine.LastRun("p1")
		require.True(t, ok)
		assert.Equal(t, 1, run.Removed)
	})

	t.Run("incremental scan only reconciles scoped folders", func(t *testing.T) {
		engine, catalog := newEngine(t, false)
		p1 := tu.NewMockProvider("p1",
			track("p1", "p1:a1", "/music/a"),
			track("p1", "p1:a2", "/music/a/live"),
			track("p1", "p1:b1", "/music/b"),
			track("p1", "p1:ab", "/music/ab"),
		)
		require.NoError(t, engine.Register(p1))

		ctx := context.Background()
		require.NoError(t, engine.Sync(ctx, "p1", nil))

		p1.SetEntities(track("p1", "p1:a1", "/music/a"))
		p1.SetScope("/music/a")
		require.NoError(t, engine.Sync(ctx, "p1", nil))

		assert.Equal(t, []string{"p1:a1", "p1:b1", "p1:ab"}, uris(catalog.Tracks(library.Filter{})))
	})

	t.Run("SyncFolders rescans only the given folders", func(t *testing.T) {
		engine, catalog := newEngine(t, false)
		p1 := tu.NewMockProvider("p1", track("p1", "p1:a1", "/music/a"), track("p1", "p1:b1", "/music/b"))
		require.NoError(t, engine.Register(p1))

		ctx := context.Background()
		require.NoError(t, engine.Sync(ctx, "p1", nil))

		p1.SetEntities(track("p1", "p1:a2", "/music/a"))
		require.NoError(t, engine.SyncFolders(ctx, "p1", []string{"/music/a"}, nil))
		assert.ElementsMatch(t, []string{"p1:a2", "p1:b1"}, uris(catalog.Tracks(library.Filter{})))

		run, ok := engine.LastRun("p1")
		require.True(t, ok)
		assert.Equal(t, 1, run.Upserted)
		assert.Equal(t, 1, run.Removed)

		require.NoError(t, engine.Sync(ctx, "p1", nil))
		assert.Equal(t, []string{"p1:a2"}, uris(catalog.Tracks(library.Filter{})), "the next plain sync is a full scan")
	})

	t.Run("SyncFolders argument errors", func(t *testing.T) {
		engine, _ := newEngine(t, false)
		require.NoError(t, engine.Register(tu.NewMockProvider("p1")))
		require.NoError(t, engine.Register(unscoped{tu.NewMockProvider("p2")}))

		ctx := context.Background()
		assert.ErrorIs(t, engine.SyncFolders(ctx, "nope", []string{"/x"}, nil), shared.ErrUnknownProvider)
		assert.ErrorIs(t, engine.SyncFolders(ctx, "p1", nil, nil), shared.ErrMissingArgument)
		assert.ErrorIs(t, engine.SyncFolders(ctx, "p2", []string{"/x"}, nil), shared.ErrInvalidArgument)

		item, _ := engine.Item("p2")
		assert.Equal(t, Idle, item.State, "rejected calls do not start a cycle")
	})

	t.Run("failed sync does not reconcile", func(t *testing.T) {
		engine, catalog := newEngine(t, false)
		p1 := tu.NewMockProvider("p1", track("p1", "p1:t1", "/"), track("p1", "p1:t2", "/"))
		require.NoError(t, engine.Register(p1))

		ctx := context.Background()
		require.NoError(t, engine.Sync(ctx, "p1", nil))

		p1.SetEntities()
		p1.SetError(errors.New("connection reset"))
		err := engine.Sync(ctx, "p1", nil)
		assert.ErrorIs(t, err, shared.ErrFetch)
		assert.Equal(t, 2, catalog.Len())
	})

	t.Run("invalid entities are skipped", func(t *testing.T) {
		engine, catalog := newEngine(t, false)
		p1 := tu.NewMockProvider("p1", models.Track{URI: "p1:broken"}, track("p1", "p1:t1", "/"))
		require.NoError(t, engine.Register(p1))

		require.NoError(t, engine.Sync(context.Background(), "p1", nil))
		assert.Equal(t, 1, catalog.Len())
	})
}

func TestSyncErrors(t *testing.T) {
	t.Run("configuration error", func(t *testing.T) {
		engine, _ := newEngine(t, false)
		p1 := tu.NewMockProvider("p1")
		p1.SetError(providers.NewConfigurationError("p1", errors.New("no token")))
		require.NoError(t, engine.Register(p1))

		err := engine.Sync(context.Background(), "p1", nil)
		require.ErrorIs(t, err, shared.ErrConfiguration)

		item, _ := engine.Item("p1")
		assert.Equal(t, Error, item.State)
		assert.Contains(t, item.Error, "no token")
		assert.ErrorIs(t, engine.LastError("p1"), shared.ErrConfiguration)
	})

	t.Run("provider panic is contained", func(t *testing.T) {
		engine, _ := newEngine(t, false)
		p1 := tu.NewMockProvider("p1")
		p1.SetPanic("boom")
		require.NoError(t, engine.Register(p1))

		err := engine.Sync(context.Background(), "p1", nil)
		require.ErrorIs(t, err, shared.ErrFetch)
		item, _ := engine.Item("p1")
		assert.Equal(t, Error, item.State)
	})

	t.Run("poisoned catalog is a library access error", func(t *testing.T) {
		catalog := library.New(library.Options{Store: &panickingStore{}})
		engine := NewSyncEngine(Options{Catalog: catalog})
		defer engine.Close()

		require.NoError(t, engine.Register(tu.NewMockProvider("p1", track("p1", "p1:t1", "/"))))
		err := engine.Sync(context.Background(), "p1", nil)
		require.ErrorIs(t, err, shared.ErrLibraryAccess)

		var se *providers.SyncError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, providers.LibraryAccess, se.Kind)
		assert.True(t, catalog.Poisoned())
	})

	t.Run("next cycle heals a poisoned catalog", func(t *testing.T) {
		store := &flakyStore{}
		catalog := library.New(library.Options{Store: store})
		engine := NewSyncEngine(Options{Catalog: catalog, Rate: 1000, Logger: shared.NopLogger()})
		defer engine.Close()

		require.NoError(t, engine.Register(tu.NewMockProvider("p1", track("p1", "p1:t1", "/"))))
		require.NoError(t, engine.Register(tu.NewMockProvider("p2", track("p2", "p2:t1", "/"))))

		ctx := context.Background()
		err := engine.Sync(ctx, "p1", nil)
		require.ErrorIs(t, err, shared.ErrLibraryAccess)
		assert.True(t, catalog.Poisoned())

		require.NoError(t, engine.Sync(ctx, "p2", nil), "another provider is not blocked")
		require.NoError(t, engine.SyncAll(ctx, nil))
		require.NoError(t, engine.SyncAll(ctx, nil))

		for _, name := range []string{"p1", "p2"} {
			item, _ := engine.Item(name)
			assert.Equal(t, Done, item.State, name)
		}
		_, ok := catalog.Track("p1:t1")
		assert.True(t, ok)
		assert.False(t, catalog.Poisoned())
	})

	t.Run("unknown and duplicate providers", func(t *testing.T) {
		engine, _ := newEngine(t, false)
		require.NoError(t, engine.Register(tu.NewMockProvider("p1")))

		assert.ErrorIs(t, engine.Register(tu.NewMockProvider("p1")), shared.ErrInvalidArgument)
		assert.ErrorIs(t, engine.Register(nil), shared.ErrInvalidArgument)
		assert.ErrorIs(t, engine.Sync(context.Background(), "nope", nil), shared.ErrUnknownProvider)
		assert.ErrorIs(t, engine.Reset("nope"), shared.ErrUnknownProvider)
		_, err := engine.Provider("nope")
		assert.ErrorIs(t, err, shared.ErrUnknownProvider)
	})
}

type panickingStore struct{}

func (panickingStore) Upsert(models.Entity) (int64, error) {
	panic("store exploded")
}

func (panickingStore) Remove(models.Identifier) error { return nil }

func (panickingStore) LoadAll() ([]models.Entity, error) { return nil, nil }

// flakyStore panics on its first Upsert and behaves from then on.
type flakyStore struct {
	mu       sync.Mutex
	panicked bool
	seq      int64
	ids      map[string]int64
}

func (s *flakyStore) Upsert(e models.Entity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.panicked {
		s.panicked = true
		panic("transient store failure")
	}
	if s.ids == nil {
		s.ids = make(map[string]int64)
	}
	if id, ok := s.ids[e.Key()]; ok {
		return id, nil
	}
	s.seq++
	s.ids[e.Key()] = s.seq
	return s.seq, nil
}

func (s *flakyStore) Remove(models.Identifier) error { return nil }

func (s *flakyStore) LoadAll() ([]models.Entity, error) { return nil, nil }

func TestSyncIsolation(t *testing.T) {
	engine, catalog := newEngine(t, false)
	good := tu.NewMockProvider("good", track("good", "good:t1", "/"))
	bad := tu.NewMockProvider("bad", track("bad", "bad:t1", "/"))
	bad.SetError(providers.NewConfigurationError("bad", errors.New("misconfigured")))
	require.NoError(t, engine.Register(bad))
	require.NoError(t, engine.Register(good))

	err := engine.SyncAll(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConfiguration)

	goodItem, _ := engine.Item("good")
	badItem, _ := engine.Item("bad")
	assert.Equal(t, Done, goodItem.State)
	assert.Equal(t, Error, badItem.State)
	_, ok := catalog.Track("good:t1")
	assert.True(t, ok)

	require.NoError(t, engine.Reset("good"))
	require.NoError(t, engine.Sync(context.Background(), "good", nil), "an errored provider never blocks another")
	badItem, _ = engine.Item("bad")
	assert.Equal(t, Error, badItem.State)
}

func TestSyncSerialization(t *testing.T) {
	engine, _ := newEngine(t, false)
	slow := tu.NewMockProvider("slow", track("slow", "slow:t1", "/"))
	other := tu.NewMockProvider("other", track("other", "other:t1", "/"))
	require.NoError(t, engine.Register(slow))
	require.NoError(t, engine.Register(other))

	started, release := slow.Block()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, engine.Sync(ctx, "slow", nil))
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first sync never started")
	}

	go func() {
		defer wg.Done()
		assert.NoError(t, engine.Sync(ctx, "slow", nil))
	}()

	require.NoError(t, engine.Sync(ctx, "other", nil), "other providers are independent")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, slow.Calls(), "second cycle waits for the first")
	item, _ := engine.Item("slow")
	assert.Equal(t, Syncing, item.State)

	release()
	wg.Wait()
	assert.Equal(t, 2, slow.Calls())
}

func TestSyncCancelledWhileWaiting(t *testing.T) {
	engine, _ := newEngine(t, false)
	slow := tu.NewMockProvider("slow")
	require.NoError(t, engine.Register(slow))

	started, release := slow.Block()
	defer release()

	go func() { _ = engine.Sync(context.Background(), "slow", nil) }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, engine.Sync(ctx, "slow", nil), context.DeadlineExceeded)
}

func TestSettle(t *testing.T) {
	engine, _ := newEngine(t, true)
	ok := tu.NewMockProvider("ok")
	require.NoError(t, engine.Register(ok))

	require.NoError(t, engine.SyncAll(context.Background(), nil))
	assert.False(t, engine.State().Synchronizing())
	assert.Equal(t, "idle", engine.State().String())

	failing := tu.NewMockProvider("failing")
	failing.SetError(errors.New("timeout"))
	require.NoError(t, engine.Register(failing))

	require.Error(t, engine.SyncAll(context.Background(), nil))
	state := engine.State()
	require.True(t, state.Synchronizing(), "errors keep the aggregate state synchronizing")
	assert.Equal(t, []SyncItem{
		{Provider: "ok", State: Idle},
		{Provider: "failing", State: Error, Error: "failing: fetch error: timeout"},
	}, state.Items)

	require.NoError(t, engine.Reset("failing"))
	assert.False(t, engine.State().Synchronizing())
	assert.Len(t, engine.Items(), 2)
}

func TestSubscribe(t *testing.T) {
	engine, _ := newEngine(t, false)
	require.NoError(t, engine.Register(tu.NewMockProvider("p1")))

	sub := engine.Subscribe()
	defer sub.Close()

	next := func() SyncState {
		t.Helper()
		select {
		case s := <-sub.C():
			return s
		case <-time.After(time.Second):
			t.Fatal("no state received")
			return SyncState{}
		}
	}

	assert.False(t, next().Synchronizing(), "primed with the current state")

	require.NoError(t, engine.Sync(context.Background(), "p1", nil))
	assert.Equal(t, Syncing, next().Items[0].State)
	assert.Equal(t, Done, next().Items[0].State)

	require.NoError(t, engine.Reset("p1"))
	assert.False(t, next().Synchronizing())
}

func TestProgressAndRuns(t *testing.T) {
	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, shared.RunMigrations(db))

	runs := repositories.NewSyncRunRepository(db)
	catalog := library.New(library.Options{Store: repositories.NewEntityRepository(db)})
	engine := NewSyncEngine(Options{Catalog: catalog, Runs: runs, Rate: 1000})
	defer engine.Close()

	require.NoError(t, engine.Register(tu.NewMockProvider("p1", track("p1", "p1:t1", "/"), track("p1", "p1:t2", "/"))))

	progress := make(chan ProgressUpdate, 64)
	require.NoError(t, engine.SyncAll(context.Background(), progress))
	close(progress)

	var phases []Phase
	for update := range progress {
		phases = append(phases, update.Phase)
	}
	assert.Equal(t, SyncStarted, phases[0])
	assert.Contains(t, phases, SyncEntities)
	assert.Contains(t, phases, Reconcile)
	assert.Contains(t, phases, SyncCompleted)
	assert.Equal(t, CycleCompleted, phases[len(phases)-1])

	latest, err := runs.Latest("p1")
	require.NoError(t, err)
	assert.Equal(t, "done", latest.State)
	assert.Equal(t, 2, latest.Upserted)

	t.Run("a full progress channel never blocks", func(t *testing.T) {
		blocked := make(chan ProgressUpdate)
		done := make(chan error, 1)
		go func() { done <- engine.Sync(context.Background(), "p1", blocked) }()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("sync blocked on progress")
		}
	})
}

func TestSchedule(t *testing.T) {
	engine, _ := newEngine(t, true)
	p1 := tu.NewMockProvider("p1")
	require.NoError(t, engine.Register(p1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Schedule(ctx, 5*time.Millisecond, nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return p1.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("schedule did not stop")
	}
}
