package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "mailgate/internal/domain/oauth"
)

// ErrStateNotFound is returned when a state is unknown, expired or already used.
var ErrStateNotFound = errors.New("oauth state not found")

// StateStore keeps pending OAuth logins keyed by their state parameter.
type StateStore interface {
	// Save stores a pending login for ttl.
	Save(ctx context.Context, state string, pending domain.PendingLogin, ttl time.Duration) error

	// Take returns and removes a pending login. A state can be taken once.
	Take(ctx context.Context, state string) (*domain.PendingLogin, error)
}

// RedisStateStore implements StateStore using Redis as the backing store.
type RedisStateStore struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisStateStore creates a new Redis-backed state store.
func NewRedisStateStore(client *redis.Client, log *zap.Logger) StateStore {
	return &RedisStateStore{
		client: client,
		log:    log,
	}
}

// stateKey generates a Redis key for an OAuth state.
func (s *RedisStateStore) stateKey(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

// Save stores a pending login in Redis with TTL.
func (s *RedisStateStore) Save(ctx context.Context, state string, pending domain.PendingLogin, ttl time.Duration) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending login: %w", err)
	}

	if err := s.client.Set(ctx, s.stateKey(state), data, ttl).Err(); err != nil {
		s.log.Error("failed to store oauth state", zap.String("provider", pending.Provider), zap.Error(err))
		return err
	}

	s.log.Debug("stored oauth state", zap.String("provider", pending.Provider), zap.Duration("ttl", ttl))
	return nil
}

// Take atomically reads and deletes a pending login from Redis.
func (s *RedisStateStore) Take(ctx context.Context, state string) (*domain.PendingLogin, error) {
	data, err := s.client.GetDel(ctx, s.stateKey(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		s.log.Error("failed to take oauth state", zap.Error(err))
		return nil, err
	}

	var pending domain.PendingLogin
	if err := json.Unmarshal(data, &pending); err != nil {
		s.log.Error("failed to unmarshal oauth state", zap.Error(err))
		return nil, err
	}
	return &pending, nil
}

type memoryEntry struct {
	pending   domain.PendingLogin
	expiresAt time.Time
}

// DefaultMaxPendingStates bounds a MemoryStateStore when no limit is given.
const DefaultMaxPendingStates = 10000

// ErrStateStoreFull is returned when the in-memory store holds its maximum of
// unexpired pending logins.
var ErrStateStoreFull = errors.New("too many pending oauth logins")

// MemoryStateStore implements StateStore in process memory.
// It is used when Redis is disabled and only works for a single instance.
type MemoryStateStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryStateStore creates an empty in-memory state store holding at most
// maxEntries pending logins. A non-positive maxEntries uses DefaultMaxPendingStates.
func NewMemoryStateStore(maxEntries int) *MemoryStateStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxPendingStates
	}
	return &MemoryStateStore{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Save stores a pending login until ttl elapses.
// Expired entries are swept only once the store is full.
func (s *MemoryStateStore) Save(_ context.Context, state string, pending domain.PendingLogin, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.entries) >= s.maxEntries {
		for k, e := range s.entries {
			if !now.Before(e.expiresAt) {
				delete(s.entries, k)
			}
		}
		if len(s.entries) >= s.maxEntries {
			return ErrStateStoreFull
		}
	}
	s.entries[state] = memoryEntry{pending: pending, expiresAt: now.Add(ttl)}
	return nil
}

// Take returns and removes a pending login if it has not expired.
func (s *MemoryStateStore) Take(_ context.Context, state string) (*domain.PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state]
	if !ok {
		return nil, ErrStateNotFound
	}
	delete(s.entries, state)
	if !s.now().Before(e.expiresAt) {
		return nil, ErrStateNotFound
	}
	pending := e.pending
	return &pending, nil
}
