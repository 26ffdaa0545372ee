package player

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/events"
	"github.com/desertthunder/medley/internal/extensions"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// restartThreshold is how far into a track Previous restarts it instead of going back.
const restartThreshold = 3 * time.Second

// QueueHook transforms tracks before they enter a queue. [extensions.Host] implements it.
type QueueHook interface {
	Dispatch(ctx context.Context, hook extensions.Hook, tracks []models.Track) []models.Track
}

// Options configures players created by [New] and [NewManager].
type Options struct {
	Store  QueueStore // nil keeps queues in memory only
	Hooks  QueueHook  // nil queues tracks unchanged
	Buffer int        // per-subscriber event buffer
	Volume *float32   // initial volume, 1 when nil
	Logger *log.Logger
}

// Player owns one queue and its transport state and publishes every transition as an [Event].
type Player struct {
	id     string
	store  QueueStore
	hooks  QueueHook
	logger *log.Logger

	opMu sync.Mutex // serializes operations so events leave in transition order

	mu       sync.RWMutex
	queue    []models.QueuedTrack
	current  int
	state    models.PlayerState
	volume   float32
	position time.Duration

	events *events.Broadcaster[Event]
}

// New creates a stopped player with an empty queue.
func New(id string, opts Options) *Player {
	volume := float32(1)
	if v := opts.Volume; v != nil && !math.IsNaN(float64(*v)) {
		volume = min(max(*v, 0), 1)
	}

	p := &Player{
		id:      id,
		store:   opts.Store,
		hooks:   opts.Hooks,
		logger:  shared.WithLogger(opts.Logger, "component", "player", "player", id),
		current: -1,
		state:   models.StateStop,
		volume:  volume,
	}
	p.events = events.NewBroadcaster(
		events.WithBuffer[Event](opts.Buffer),
		events.WithLogger[Event](p.logger),
		events.WithPrime(p.prime),
	)
	return p
}

// Restore replaces the queue with the stored snapshot. The player stays stopped.
func (p *Player) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	queue, err := p.store.Load(ctx, p.id)
	if err != nil {
		return err
	}

	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	p.queue = queue
	p.current = -1
	for i, q := range queue {
		if q.Playing {
			p.current = i
		}
	}
	p.markLocked()
	evs := []Event{QueueUpdated(p.queue)}
	if p.current >= 0 {
		evs = append(evs, TrackChanged(p.queue[p.current].Track))
	}
	p.mu.Unlock()

	p.emit(evs...)
	p.logger.Debug("queue restored", "tracks", len(queue))
	return nil
}

// ID returns the player id.
func (p *Player) ID() string { return p.id }

// QueueTracks passes tracks through the add_to_queue hook and appends the result.
// It returns the entries that were added.
func (p *Player) QueueTracks(ctx context.Context, tracks ...models.Track) ([]models.QueuedTrack, error) {
	if len(tracks) == 0 {
		return nil, nil
	}

	filtered := tracks
	if p.hooks != nil {
		filtered = p.hooks.Dispatch(ctx, extensions.HookAddToQueue, tracks)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	added := make([]models.QueuedTrack, 0, len(filtered))
	for _, t := range filtered {
		q := models.QueuedTrack{ID: shared.GenerateID(), Track: t}
		p.queue = append(p.queue, q)
		added = append(added, q)
	}
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	if len(added) == 0 {
		p.logger.Debug("hooks dropped every track", "requested", len(tracks))
		return added, nil
	}

	p.emit(QueueUpdated(snapshot))
	p.persist(ctx, snapshot)
	p.logger.Debug("tracks queued", "requested", len(tracks), "added", len(added))
	return added, nil
}

// ClearQueue empties the queue and stops playback.
func (p *Player) ClearQueue(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	var evs []Event
	if len(p.queue) > 0 {
		p.queue = nil
		evs = append(evs, QueueUpdated(nil))
	}
	p.current = -1
	p.position = 0
	if ev, ok := p.setStateLocked(models.StateStop); ok {
		evs = append(evs, ev)
	}
	p.mu.Unlock()

	p.emit(evs...)
	if p.store != nil {
		if err := p.store.Clear(ctx, p.id); err != nil {
			p.logger.Warn("failed to clear stored queue", "error", err)
		}
	}
	return nil
}

// Play starts or resumes playback, starting at the head of the queue when nothing is current.
func (p *Player) Play(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: player %s", shared.ErrQueueEmpty, p.id)
	}

	var evs []Event
	moved := false
	if p.current < 0 {
		evs = append(evs, p.moveLocked(0)...)
		moved = true
	}
	if ev, ok := p.setStateLocked(models.StatePlay); ok {
		evs = append(evs, ev)
	}
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(evs...)
	if moved {
		p.persist(ctx, snapshot)
	}
	return nil
}

// Pause pauses a playing player. It is a no-op otherwise.
func (p *Player) Pause() error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	var evs []Event
	if p.state == models.StatePlay {
		ev, _ := p.setStateLocked(models.StatePause)
		evs = append(evs, ev)
	}
	p.mu.Unlock()

	p.emit(evs...)
	return nil
}

// Stop stops playback and rewinds the current track.
func (p *Player) Stop() error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	var evs []Event
	if ev, ok := p.setStateLocked(models.StateStop); ok {
		p.position = 0
		evs = append(evs, ev)
	}
	p.mu.Unlock()

	p.emit(evs...)
	return nil
}

// Next advances to the following track. Past the end of the queue the player stops with no
// current track.
func (p *Player) Next(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: player %s", shared.ErrQueueEmpty, p.id)
	}

	var evs []Event
	if next := p.current + 1; next < len(p.queue) {
		evs = p.moveLocked(next)
	} else {
		p.current = -1
		p.position = 0
		p.markLocked()
		evs = append(evs, QueueUpdated(p.queue))
		if ev, ok := p.setStateLocked(models.StateStop); ok {
			evs = append(evs, ev)
		}
	}
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(evs...)
	p.persist(ctx, snapshot)
	return nil
}

// Previous goes back one track. Within the first seconds of a track, or on the first track,
// it restarts the current track instead. With no current track it moves to the last one.
func (p *Player) Previous(ctx context.Context) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: player %s", shared.ErrQueueEmpty, p.id)
	}

	var evs []Event
	moved := true
	switch {
	case p.current < 0:
		evs = p.moveLocked(len(p.queue) - 1)
	case p.current == 0 || p.position > restartThreshold:
		p.position = 0
		evs = append(evs, Seek(0))
		moved = false
	default:
		evs = p.moveLocked(p.current - 1)
	}
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(evs...)
	if moved {
		p.persist(ctx, snapshot)
	}
	return nil
}

// SetVolume sets the volume, clamped to [0, 1].
func (p *Player) SetVolume(v float32) error {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return fmt.Errorf("%w: volume %v", shared.ErrInvalidArgument, v)
	}
	v = max(0, min(1, v))

	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	changed := p.volume != v
	p.volume = v
	p.mu.Unlock()

	if changed {
		p.emit(VolumeChanged(v))
	}
	return nil
}

// Seek moves within the current track. Positions past a known duration are clamped to it.
func (p *Player) Seek(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: negative position %s", shared.ErrInvalidArgument, d)
	}

	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	if p.current < 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: player %s has no current track", shared.ErrInvalidArgument, p.id)
	}
	if total := p.queue[p.current].Track.Duration; total > 0 && d > total {
		d = total
	}
	p.position = d
	p.mu.Unlock()

	p.emit(Seek(d))
	return nil
}

// State returns the transport state.
func (p *Player) State() models.PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Queue returns a snapshot of the queue.
func (p *Player) Queue() []models.QueuedTrack {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// Current returns the current track, if any.
func (p *Player) Current() (models.Track, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current < 0 {
		return models.Track{}, false
	}
	return p.queue[p.current].Track, true
}

// Volume returns the volume in [0, 1].
func (p *Player) Volume() float32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

// Position returns the position within the current track.
func (p *Player) Position() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

// Subscribe returns an event subscription. It starts with the current state, volume, track and queue.
func (p *Player) Subscribe() *events.Subscription[Event] {
	return p.events.Subscribe()
}

// Close disconnects every subscriber.
func (p *Player) Close() {
	p.events.Close()
}

func (p *Player) prime() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()

	evs := []Event{StateChanged(p.state), VolumeChanged(p.volume)}
	if p.current >= 0 {
		evs = append(evs, TrackChanged(p.queue[p.current].Track))
	}
	return append(evs, QueueUpdated(p.queue))
}

// moveLocked makes index i current and returns the resulting events.
func (p *Player) moveLocked(i int) []Event {
	p.current = i
	p.position = 0
	p.markLocked()
	return []Event{Buffering(), TrackChanged(p.queue[i].Track), QueueUpdated(p.queue)}
}

// setStateLocked reports the StateChanged event when s differs from the current state.
func (p *Player) setStateLocked(s models.PlayerState) (Event, bool) {
	if p.state == s {
		return Event{}, false
	}
	p.state = s
	return StateChanged(s), true
}

func (p *Player) markLocked() {
	for i := range p.queue {
		p.queue[i].Playing = i == p.current
	}
}

func (p *Player) snapshotLocked() []models.QueuedTrack {
	return append([]models.QueuedTrack{}, p.queue...)
}

func (p *Player) emit(evs ...Event) {
	for _, ev := range evs {
		p.events.Publish(ev)
	}
}

func (p *Player) persist(ctx context.Context, snapshot []models.QueuedTrack) {
	if p.store == nil {
		return
	}
	if err := p.store.Save(ctx, p.id, snapshot); err != nil {
		p.logger.Warn("failed to persist queue", "error", err)
	}
}
