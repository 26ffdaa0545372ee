package core

import (
	"context"
	"sync"

	"github.com/desertthunder/medley/internal/models"
)

// QueueTrack queues the track behind cursor on a player. An empty player id selects the default player.
func (e *Engine) QueueTrack(ctx context.Context, playerID, token string) ([]QueueEntryView, error) {
	return e.QueueTracks(ctx, playerID, token)
}

// QueueTracks resolves every cursor first and queues the tracks in one batch, so the
// add_to_queue hook sees them together. Nothing is queued when a cursor is malformed or unknown.
func (e *Engine) QueueTracks(ctx context.Context, playerID string, tokens ...string) ([]QueueEntryView, error) {
	tracks := make([]models.Track, 0, len(tokens))
	for _, token := range tokens {
		uri, err := decode(token)
		if err != nil {
			return nil, err
		}
		t, ok := e.catalog.Track(uri)
		if !ok {
			return nil, notFound(models.KindTrack, token)
		}
		tracks = append(tracks, t)
	}

	added, err := e.players.Get(ctx, playerID).QueueTracks(ctx, tracks...)
	if err != nil {
		return nil, err
	}
	return queueViews(added), nil
}

// ClearQueue empties a player's queue.
func (e *Engine) ClearQueue(ctx context.Context, playerID string) error {
	return e.players.Get(ctx, playerID).ClearQueue(ctx)
}

func (e *Engine) Play(ctx context.Context, playerID string) error {
	return e.players.Get(ctx, playerID).Play(ctx)
}

func (e *Engine) Pause(ctx context.Context, playerID string) error {
	return e.players.Get(ctx, playerID).Pause()
}

func (e *Engine) Stop(ctx context.Context, playerID string) error {
	return e.players.Get(ctx, playerID).Stop()
}

func (e *Engine) Next(ctx context.Context, playerID string) error {
	return e.players.Get(ctx, playerID).Next(ctx)
}

func (e *Engine) Previous(ctx context.Context, playerID string) error {
	return e.players.Get(ctx, playerID).Previous(ctx)
}

// SetVolume sets a player's volume, clamped to [0, 1].
func (e *Engine) SetVolume(ctx context.Context, playerID string, volume float32) error {
	return e.players.Get(ctx, playerID).SetVolume(volume)
}

// Player returns a snapshot of a player.
func (e *Engine) Player(ctx context.Context, playerID string) PlayerView {
	return playerView(e.players.Get(ctx, playerID))
}

// Players lists the ids of the players created so far.
func (e *Engine) Players() []string {
	return e.players.Players()
}

// PlayerSubscription streams one player's events as views.
type PlayerSubscription struct {
	ch   chan PlayerEvent
	done chan struct{}
	once sync.Once
}

// C returns the event channel. It is closed when the subscription ends.
func (s *PlayerSubscription) C() <-chan PlayerEvent { return s.ch }

// Close ends the subscription.
func (s *PlayerSubscription) Close() {
	s.once.Do(func() { close(s.done) })
}

// SubscribePlayer subscribes to a player's events. The stream starts with the current state.
// A subscriber that stops reading is disconnected once its buffer is full.
func (e *Engine) SubscribePlayer(ctx context.Context, playerID string) *PlayerSubscription {
	src := e.players.Get(ctx, playerID).Subscribe()
	sub := &PlayerSubscription{
		ch:   make(chan PlayerEvent, cap(src.C())),
		done: make(chan struct{}),
	}

	go func() {
		defer close(sub.ch)
		defer src.Close()
		for {
			select {
			case ev, ok := <-src.C():
				if !ok {
					return
				}
				select {
				case sub.ch <- playerEvent(ev):
				default:
					e.logger.Debug("player subscriber fell behind, disconnecting", "player", playerID)
					return
				}
			case <-sub.done:
				return
			}
		}
	}()
	return sub
}
