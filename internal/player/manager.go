package player

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/shared"
)

// DefaultPlayerID names the player used when a caller does not pick one.
const DefaultPlayerID = "default"

// Manager creates players on first use and keeps them by id.
type Manager struct {
	mu      sync.Mutex
	players map[string]*Player
	order   []string
	opts    Options
	logger  *log.Logger
}

func NewManager(opts Options) *Manager {
	return &Manager{
		players: make(map[string]*Player),
		opts:    opts,
		logger:  shared.WithLogger(opts.Logger, "component", "players"),
	}
}

// Get returns the player with id, creating it and restoring its stored queue when it does not exist.
// An empty id selects [DefaultPlayerID]. A failed restore is logged and the player starts empty.
func (m *Manager) Get(ctx context.Context, id string) *Player {
	if id == "" {
		id = DefaultPlayerID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.players[id]; ok {
		return p
	}

	p := New(id, m.opts)
	if err := p.Restore(ctx); err != nil {
		m.logger.Warn("failed to restore queue", "player", id, "error", err)
	}
	m.players[id] = p
	m.order = append(m.order, id)
	return p
}

// Lookup returns an existing player without creating one.
func (m *Manager) Lookup(id string) (*Player, bool) {
	if id == "" {
		id = DefaultPlayerID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	return p, ok
}

// Players returns the ids of every player in creation order.
func (m *Manager) Players() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

// Close closes every player.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		m.players[id].Close()
	}
	m.players = make(map[string]*Player)
	m.order = nil
}
