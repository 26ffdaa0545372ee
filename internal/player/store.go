package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/redis/go-redis/v9"
)

const queueKeyPrefix = "medley:queue:"

// QueueStore persists queue snapshots per player.
type QueueStore interface {
	Load(ctx context.Context, playerID string) ([]models.QueuedTrack, error)
	Save(ctx context.Context, playerID string, queue []models.QueuedTrack) error
	Clear(ctx context.Context, playerID string) error
}

// MemoryQueueStore keeps snapshots in process memory.
type MemoryQueueStore struct {
	mu     sync.RWMutex
	queues map[string][]models.QueuedTrack
}

func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{queues: make(map[string][]models.QueuedTrack)}
}

func (s *MemoryQueueStore) Load(_ context.Context, playerID string) ([]models.QueuedTrack, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id", shared.ErrMissingArgument)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.queues[playerID]), nil
}

func (s *MemoryQueueStore) Save(_ context.Context, playerID string, queue []models.QueuedTrack) error {
	if playerID == "" {
		return fmt.Errorf("%w: player id", shared.ErrMissingArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[playerID] = slices.Clone(queue)
	return nil
}

func (s *MemoryQueueStore) Clear(_ context.Context, playerID string) error {
	if playerID == "" {
		return fmt.Errorf("%w: player id", shared.ErrMissingArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, playerID)
	return nil
}

// RedisQueueStore keeps each snapshot as a JSON array under medley:queue:<player id>.
type RedisQueueStore struct {
	client *redis.Client
}

func NewRedisQueueStore(client *redis.Client) *RedisQueueStore {
	return &RedisQueueStore{client: client}
}

// OpenRedisQueueStore connects to redis and pings it once.
func OpenRedisQueueStore(ctx context.Context, cfg shared.RedisConfig) (*RedisQueueStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis.addr", shared.ErrMissingConfig)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", shared.ErrServiceUnavailable, cfg.Addr, err)
	}
	return NewRedisQueueStore(client), nil
}

func (s *RedisQueueStore) Load(ctx context.Context, playerID string) ([]models.QueuedTrack, error) {
	if playerID == "" {
		return nil, fmt.Errorf("%w: player id", shared.ErrMissingArgument)
	}

	raw, err := s.client.Get(ctx, queueKey(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading queue %s: %v", shared.ErrServiceUnavailable, playerID, err)
	}
	return decodeQueue(raw)
}

func (s *RedisQueueStore) Save(ctx context.Context, playerID string, queue []models.QueuedTrack) error {
	if playerID == "" {
		return fmt.Errorf("%w: player id", shared.ErrMissingArgument)
	}
	if len(queue) == 0 {
		return s.Clear(ctx, playerID)
	}

	payload, err := encodeQueue(queue)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, queueKey(playerID), payload, 0).Err(); err != nil {
		return fmt.Errorf("%w: saving queue %s: %v", shared.ErrServiceUnavailable, playerID, err)
	}
	return nil
}

func (s *RedisQueueStore) Clear(ctx context.Context, playerID string) error {
	if playerID == "" {
		return fmt.Errorf("%w: player id", shared.ErrMissingArgument)
	}
	if err := s.client.Del(ctx, queueKey(playerID)).Err(); err != nil {
		return fmt.Errorf("%w: clearing queue %s: %v", shared.ErrServiceUnavailable, playerID, err)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisQueueStore) Close() error {
	return s.client.Close()
}

func queueKey(playerID string) string {
	return queueKeyPrefix + playerID
}

func encodeQueue(queue []models.QueuedTrack) ([]byte, error) {
	payload, err := json.Marshal(queue)
	if err != nil {
		return nil, fmt.Errorf("encoding queue: %w", err)
	}
	return payload, nil
}

func decodeQueue(raw []byte) ([]models.QueuedTrack, error) {
	var queue []models.QueuedTrack
	if err := json.Unmarshal(raw, &queue); err != nil {
		return nil, fmt.Errorf("%w: queue payload: %v", shared.ErrDecode, err)
	}
	return queue, nil
}
