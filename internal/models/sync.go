package models

import "time"

// SyncRun records the outcome of one provider sync cycle.
type SyncRun struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	State      string    `json:"state"`
	Error      string    `json:"error,omitempty"`
	Upserted   int       `json:"upserted"`
	Removed    int       `json:"removed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Elapsed returns how long the cycle ran.
func (r SyncRun) Elapsed() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
