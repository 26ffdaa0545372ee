package player

import (
	"fmt"
	"time"

	"github.com/desertthunder/medley/internal/models"
)

// EventType tags an [Event].
type EventType int

const (
	EventStateChanged EventType = iota + 1
	EventSeek
	EventTrackChanged
	EventQueueUpdated
	EventBuffering
	EventVolumeChanged
)

func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state_changed"
	case EventSeek:
		return "seek"
	case EventTrackChanged:
		return "track_changed"
	case EventQueueUpdated:
		return "queue_updated"
	case EventBuffering:
		return "buffering"
	case EventVolumeChanged:
		return "volume_changed"
	default:
		return "unknown"
	}
}

// Event is one player transition. Only the field matching Type is set.
type Event struct {
	Type     EventType            `json:"type"`
	State    models.PlayerState   `json:"state,omitempty"`
	Position time.Duration        `json:"position,omitempty"`
	Track    *models.Track        `json:"track,omitempty"`
	Queue    []models.QueuedTrack `json:"queue,omitempty"`
	Volume   float32              `json:"volume,omitempty"`
}

func StateChanged(s models.PlayerState) Event { return Event{Type: EventStateChanged, State: s} }
func Seek(d time.Duration) Event             { return Event{Type: EventSeek, Position: d} }
func Buffering() Event                       { return Event{Type: EventBuffering} }
func VolumeChanged(v float32) Event          { return Event{Type: EventVolumeChanged, Volume: v} }

func TrackChanged(t models.Track) Event { return Event{Type: EventTrackChanged, Track: &t} }

// QueueUpdated carries a copy of the full queue.
func QueueUpdated(q []models.QueuedTrack) Event {
	return Event{Type: EventQueueUpdated, Queue: append([]models.QueuedTrack{}, q...)}
}

func (e Event) String() string {
	switch e.Type {
	case EventStateChanged:
		return fmt.Sprintf("%s(%s)", e.Type, e.State)
	case EventSeek:
		return fmt.Sprintf("%s(%s)", e.Type, e.Position)
	case EventTrackChanged:
		return fmt.Sprintf("%s(%s)", e.Type, e.Track.URI)
	case EventQueueUpdated:
		return fmt.Sprintf("%s(%d)", e.Type, len(e.Queue))
	case EventVolumeChanged:
		return fmt.Sprintf("%s(%.2f)", e.Type, e.Volume)
	default:
		return e.Type.String()
	}
}
