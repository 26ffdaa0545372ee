package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/events"
	"github.com/desertthunder/medley/internal/library"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/providers"
	"github.com/desertthunder/medley/internal/shared"
	"golang.org/x/time/rate"
)

// RunRecorder stores the outcome of finished cycles (see repositories.SyncRunRepository).
type RunRecorder interface {
	Record(run models.SyncRun) error
}

// Options configures a [SyncEngine].
type Options struct {
	Catalog *library.Catalog
	Runs    RunRecorder // optional
	Workers int         // concurrent provider cycles in SyncAll (default: 4)
	Rate    float64     // provider cycle starts per second in SyncAll (default: 2)
	// Settle moves Done providers back to Idle once a SyncAll cycle finishes so the aggregate
	// state returns to Idle. Error providers keep their state until the next cycle or Reset.
	Settle bool
	Buffer int // per-subscriber buffer of the state stream
	Logger *log.Logger
}

type registered struct {
	provider providers.Provider
	slot     chan struct{} // one in-flight cycle per provider
	state    ItemState
	err      error
	last     models.SyncRun
}

// SyncEngine is the process-wide registry of providers and their sync state.
type SyncEngine struct {
	catalog *library.Catalog
	runs    RunRecorder
	workers int
	rate    float64
	settle  bool
	logger  *log.Logger

	mu    sync.RWMutex
	order []string
	items map[string]*registered

	publishMu sync.Mutex // keeps snapshots in transition order
	states    *events.Broadcaster[SyncState]
}

// NewSyncEngine creates an engine writing into opts.Catalog.
func NewSyncEngine(opts Options) *SyncEngine {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Rate <= 0 {
		opts.Rate = 2.0
	}

	e := &SyncEngine{
		catalog: opts.Catalog,
		runs:    opts.Runs,
		workers: opts.Workers,
		rate:    opts.Rate,
		settle:  opts.Settle,
		logger:  shared.WithLogger(opts.Logger, "component", "sync"),
		items:   make(map[string]*registered),
	}
	e.states = events.NewBroadcaster(
		events.WithBuffer[SyncState](opts.Buffer),
		events.WithLogger[SyncState](e.logger),
		events.WithPrime(func() []SyncState { return []SyncState{e.State()} }),
	)
	return e
}

// Register adds a provider. Names must be unique.
func (e *SyncEngine) Register(p providers.Provider) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("%w: provider must have a name", shared.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.items[p.Name()]; ok {
		return fmt.Errorf("%w: provider %s is already registered", shared.ErrInvalidArgument, p.Name())
	}
	e.items[p.Name()] = &registered{provider: p, slot: make(chan struct{}, 1)}
	e.order = append(e.order, p.Name())
	e.logger.Debug("provider registered", "provider", p.Name())
	return nil
}

// Providers returns the registered providers in registration order.
func (e *SyncEngine) Providers() []providers.Provider {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]providers.Provider, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.items[name].provider)
	}
	return out
}

// Provider returns the provider registered under name.
func (e *SyncEngine) Provider(name string) (providers.Provider, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r, ok := e.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownProvider, name)
	}
	return r.provider, nil
}

// Sync runs one cycle for the named provider and returns its [providers.SyncError], if any.
// If a cycle of the same provider is in flight Sync waits for it to finish first.
func (e *SyncEngine) Sync(ctx context.Context, name string, progress chan<- ProgressUpdate) error {
	e.mu.RLock()
	r, ok := e.items[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownProvider, name)
	}

	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.slot }()

	return e.cycle(ctx, r, r.provider, progress)
}

// SyncFolders runs one incremental cycle of the named provider over folders. Only entities
// beneath folders are reconciled. The provider must implement [providers.Scoper].
func (e *SyncEngine) SyncFolders(ctx context.Context, name string, folders []string, progress chan<- ProgressUpdate) error {
	if len(folders) == 0 {
		return fmt.Errorf("%w: at least one folder is required", shared.ErrMissingArgument)
	}

	e.mu.RLock()
	r, ok := e.items[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownProvider, name)
	}

	scoper, ok := r.provider.(providers.Scoper)
	if !ok {
		return fmt.Errorf("%w: provider %s cannot sync individual folders", shared.ErrInvalidArgument, name)
	}

	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.slot }()

	return e.cycle(ctx, r, scoper.Scoped(folders...), progress)
}

// cycle runs p, which is r's provider or a scoped view of it, and records the outcome on r.
func (e *SyncEngine) cycle(ctx context.Context, r *registered, p providers.Provider, progress chan<- ProgressUpdate) error {
	name := r.provider.Name()
	logger := e.logger.With("provider", name)
	started := time.Now()

	// A write that panicked in an earlier cycle failed before touching the arena.
	if e.catalog.Poisoned() {
		logger.Warn("healing catalog poisoned by an earlier cycle")
		e.catalog.Heal()
	}

	e.setState(name, Syncing, nil)
	sendProgress(progress, syncStartedUpdate(name))
	logger.Info("sync started")

	sink := newCatalogSink(name, e.catalog, progress, logger)
	err := runProvider(ctx, p, sink)
	if err == nil {
		err = sink.reconcile(ctx)
	}

	var syncErr *providers.SyncError
	state := Done
	if err != nil {
		syncErr = providers.AsSyncError(name, err)
		state = Error
	}

	run := models.SyncRun{
		ID:         shared.GenerateID(),
		Provider:   name,
		State:      state.String(),
		Upserted:   sink.stats.upserted,
		Removed:    sink.stats.removed,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	if syncErr != nil {
		run.Error = syncErr.Error()
		e.setState(name, Error, syncErr)
		logger.Error("sync failed", "kind", syncErr.Kind, "error", syncErr.Err, "elapsed", run.Elapsed())
	} else {
		e.setState(name, Done, nil)
		logger.Info("sync finished", "upserted", run.Upserted, "removed", run.Removed, "skipped", sink.stats.skipped, "elapsed", run.Elapsed())
	}

	e.mu.Lock()
	r.last = run
	e.mu.Unlock()

	if e.runs != nil {
		if recErr := e.runs.Record(run); recErr != nil {
			logger.Warn("failed to record sync run", "error", recErr)
		}
	}

	if syncErr != nil {
		return syncErr
	}
	return nil
}

// runProvider calls p.Sync and turns a panic into a fetch error.
func runProvider(ctx context.Context, p providers.Provider, sink providers.Sink) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = providers.NewFetchError(p.Name(), fmt.Errorf("provider panicked: %v", rec))
		}
	}()
	return p.Sync(ctx, sink)
}

// SyncAll runs one cycle per registered provider on a worker pool. Failures are isolated: every
// provider runs regardless of the others and the returned error joins the individual failures.
func (e *SyncEngine) SyncAll(ctx context.Context, progress chan<- ProgressUpdate) error {
	names := e.names()
	if len(names) == 0 {
		return nil
	}

	workers := min(e.workers, len(names))
	limiter := rate.NewLimiter(rate.Limit(e.rate), 1)

	type result struct {
		name string
		err  error
	}

	jobs := make(chan string, len(names))
	results := make(chan result, len(names))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				results <- result{name: name, err: e.Sync(ctx, name, progress)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, name := range names {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- name
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			errs = append(errs, res.err)
			sendProgress(progress, syncFailedUpdate(completed, len(names), res.name, res.err))
			continue
		}
		sendProgress(progress, syncCompletedUpdate(completed, len(names), res.name, e.lastStats(res.name)))
	}

	if completed < len(names) {
		errs = append(errs, ctx.Err())
	}

	if e.settle {
		e.settleDone()
	}

	sendProgress(progress, cycleCompletedUpdate(len(names), len(errs)))
	return errors.Join(errs...)
}

func (e *SyncEngine) lastStats(name string) cycleStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	last := e.items[name].last
	return cycleStats{upserted: last.Upserted, removed: last.Removed}
}

// Schedule runs SyncAll immediately and then every interval until ctx is done.
func (e *SyncEngine) Schedule(ctx context.Context, interval time.Duration, progress chan<- ProgressUpdate) {
	if interval <= 0 {
		e.logger.Warn("schedule disabled", "interval", interval)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := e.SyncAll(ctx, progress); err != nil && ctx.Err() == nil {
			e.logger.Warn("scheduled sync finished with errors", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Reset moves a Done or Error provider back to Idle.
func (e *SyncEngine) Reset(name string) error {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	e.mu.Lock()
	r, ok := e.items[name]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrUnknownProvider, name)
	}
	if r.state == Syncing {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s is syncing", shared.ErrInvalidArgument, name)
	}
	r.state = Idle
	r.err = nil
	snapshot := e.stateLocked()
	e.mu.Unlock()

	e.states.Publish(snapshot)
	return nil
}

// settleDone moves every Done provider back to Idle.
func (e *SyncEngine) settleDone() {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	e.mu.Lock()
	changed := false
	for _, r := range e.items {
		if r.state == Done {
			r.state = Idle
			changed = true
		}
	}
	snapshot := e.stateLocked()
	e.mu.Unlock()

	if changed {
		e.states.Publish(snapshot)
	}
}

func (e *SyncEngine) setState(name string, state ItemState, err error) {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	e.mu.Lock()
	r := e.items[name]
	r.state = state
	r.err = err
	snapshot := e.stateLocked()
	e.mu.Unlock()

	e.states.Publish(snapshot)
}

// State returns the aggregate sync state.
func (e *SyncEngine) State() SyncState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stateLocked()
}

// stateLocked builds the aggregate state. The caller holds e.mu.
func (e *SyncEngine) stateLocked() SyncState {
	items := e.itemsLocked()
	for _, item := range items {
		if item.State != Idle {
			return SyncState{Items: items}
		}
	}
	return SyncState{}
}

// Items returns one [SyncItem] per provider in registration order, idle ones included.
func (e *SyncEngine) Items() []SyncItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.itemsLocked()
}

func (e *SyncEngine) itemsLocked() []SyncItem {
	items := make([]SyncItem, 0, len(e.order))
	for _, name := range e.order {
		items = append(items, itemOf(name, e.items[name]))
	}
	return items
}

// Item returns the state of one provider.
func (e *SyncEngine) Item(name string) (SyncItem, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r, ok := e.items[name]
	if !ok {
		return SyncItem{}, false
	}
	return itemOf(name, r), true
}

// LastError returns the error of the provider's latest cycle, or nil.
func (e *SyncEngine) LastError(name string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if r, ok := e.items[name]; ok && r.err != nil {
		return r.err
	}
	return nil
}

// LastRun returns the provider's latest cycle in this process.
func (e *SyncEngine) LastRun(name string) (models.SyncRun, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r, ok := e.items[name]
	if !ok || r.last.ID == "" {
		return models.SyncRun{}, false
	}
	return r.last, true
}

// Subscribe returns a stream of aggregate state snapshots, starting with the current one.
func (e *SyncEngine) Subscribe() *events.Subscription[SyncState] {
	return e.states.Subscribe()
}

// Close ends every state subscription.
func (e *SyncEngine) Close() {
	e.states.Close()
}

func (e *SyncEngine) names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.order...)
}

func itemOf(name string, r *registered) SyncItem {
	item := SyncItem{Provider: name, State: r.state}
	if r.err != nil {
		item.Error = r.err.Error()
	}
	return item
}
