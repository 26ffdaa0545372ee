package tasks

import "strings"

// ItemState is the state of one provider.
type ItemState int

const (
	Idle ItemState = iota
	Syncing
	Done
	Error
)

func (s ItemState) String() string {
	switch s {
	case Syncing:
		return "syncing"
	case Done:
		return "done"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// SyncItem is the state of one registered provider.
type SyncItem struct {
	Provider string    `json:"provider"`
	State    ItemState `json:"state"`
	Error    string    `json:"error,omitempty"`
}

// SyncState is the aggregate state reported to observers. It is Idle when Items is empty
// and Synchronizing otherwise.
type SyncState struct {
	// Items lists every provider in registration order while at least one of them is not Idle.
	Items []SyncItem `json:"items,omitempty"`
}

// Synchronizing reports whether any provider is not Idle.
func (s SyncState) Synchronizing() bool { return len(s.Items) > 0 }

func (s SyncState) String() string {
	if !s.Synchronizing() {
		return "idle"
	}
	parts := make([]string, len(s.Items))
	for i, item := range s.Items {
		parts[i] = item.Provider + "=" + item.State.String()
	}
	return "synchronizing(" + strings.Join(parts, ", ") + ")"
}
