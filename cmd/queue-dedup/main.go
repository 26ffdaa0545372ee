// Command queue-dedup is a medley extension that drops tracks already present earlier in the
// batch being queued.
//
// Register it in config.toml:
//
//	[[extensions.plugins]]
//	name = "queue-dedup"
//	command = "queue-dedup"
package main

import (
	"context"
	"os"

	"github.com/desertthunder/medley/internal/extensions"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

const version = "0.1.0"

type dedup struct{}

func (dedup) Metadata() extensions.ExtensionMetadata {
	return extensions.ExtensionMetadata{
		ID:      "queue-dedup",
		Name:    "Queue dedup",
		Version: version,
		Hooks:   []extensions.Hook{extensions.HookAddToQueue},
	}
}

// Handle keeps the first track for every uri and for every normalized title and artist pair.
func (dedup) Handle(ctx context.Context, hook extensions.Hook, tracks []models.Track) ([]models.Track, error) {
	seen := make(map[string]bool, len(tracks)*2)
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		key := shared.NormalizeTrackKey(t.Title, t.ArtistName)
		if seen[t.URI] || seen[key] {
			continue
		}
		seen[t.URI] = true
		seen[key] = true
		out = append(out, t)
	}
	return out, nil
}

func main() {
	logger := shared.NewLogger(os.Stderr)
	if err := extensions.ServeStdio(dedup{}); err != nil {
		logger.Fatal("extension stopped", "error", err)
	}
}
