package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Provider string // Provider the update is about, empty for cycle-wide updates
	Phase    Phase  // Operation phase
	Step     int    // Current step number within phase
	Total    int    // Total steps in this phase, 0 when unknown
	Message  string // Human-readable message for display
	Data     any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	SyncStarted Phase = iota
	SyncEntities
	Reconcile
	SyncCompleted
	SyncFailed
	CycleCompleted
)

func (p Phase) String() string {
	switch p {
	case SyncStarted:
		return "sync_started"
	case SyncEntities:
		return "sync_entities"
	case Reconcile:
		return "reconcile"
	case SyncCompleted:
		return "sync_completed"
	case SyncFailed:
		return "sync_failed"
	case CycleCompleted:
		return "cycle_completed"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func syncStartedUpdate(provider string) ProgressUpdate {
	return ProgressUpdate{
		Provider: provider,
		Phase:    SyncStarted,
		Message:  fmt.Sprintf("Syncing %s...", provider),
	}
}

func entityUpdate(provider string, step int, uri string) ProgressUpdate {
	return ProgressUpdate{
		Provider: provider,
		Phase:    SyncEntities,
		Step:     step,
		Message:  fmt.Sprintf("[%d] %s", step, uri),
		Data:     uri,
	}
}

func reconcileUpdate(provider string, step, total int, scope []string) ProgressUpdate {
	msg := fmt.Sprintf("Reconciling %d entities of %s...", total, provider)
	if len(scope) > 0 {
		msg = fmt.Sprintf("Reconciling %d entities of %s under %d folders...", total, provider, len(scope))
	}
	return ProgressUpdate{
		Provider: provider,
		Phase:    Reconcile,
		Step:     step,
		Total:    total,
		Message:  msg,
	}
}

func syncCompletedUpdate(step, total int, provider string, stats cycleStats) ProgressUpdate {
	return ProgressUpdate{
		Provider: provider,
		Phase:    SyncCompleted,
		Step:     step,
		Total:    total,
		Message:  fmt.Sprintf("✓ %s (%d synced, %d removed)", provider, stats.upserted, stats.removed),
		Data:     stats,
	}
}

func syncFailedUpdate(step, total int, provider string, err error) ProgressUpdate {
	return ProgressUpdate{
		Provider: provider,
		Phase:    SyncFailed,
		Step:     step,
		Total:    total,
		Message:  fmt.Sprintf("✗ %s: %v", provider, err),
		Data:     err,
	}
}

func cycleCompletedUpdate(total, failed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CycleCompleted,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Sync cycle finished: %d providers, %d failed", total, failed),
	}
}
