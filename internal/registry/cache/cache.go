// Package cache provides a redis read-through decorator for the registry
// store. Profiles are immutable once written, so cached entries can never go
// stale; the TTL only bounds memory on the cache side.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"partnerd/internal/registry"
	id "partnerd/pkg/domain"
)

const keyPrefix = "partnerd:profile:"

// Store decorates a registry.Store with redis profile caching. Only Find is
// cached; Create and List always hit the backing store.
type Store struct {
	inner  registry.Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(inner registry.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{inner: inner, client: client, ttl: ttl, logger: logger}
}

type cachedProfile struct {
	Address      string    `json:"address"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (s *Store) Create(ctx context.Context, participant registry.Participant) error {
	return s.inner.Create(ctx, participant)
}

func (s *Store) Find(ctx context.Context, addr id.Address) (registry.Participant, error) {
	raw, err := s.client.Get(ctx, keyPrefix+addr.String()).Bytes()
	if err == nil {
		var cached cachedProfile
		if err := json.Unmarshal(raw, &cached); err == nil {
			role, roleErr := id.ParseRole(cached.Role)
			if roleErr == nil {
				return registry.Participant{
					Address:      id.Address(cached.Address),
					DisplayName:  cached.DisplayName,
					Role:         role,
					RegisteredAt: cached.RegisteredAt,
				}, nil
			}
		}
		// Corrupt entry: fall through to the backing store and overwrite.
	} else if !errors.Is(err, redis.Nil) && s.logger != nil {
		s.logger.WarnContext(ctx, "profile cache read failed", "error", err.Error())
	}

	participant, err := s.inner.Find(ctx, addr)
	if err != nil {
		return registry.Participant{}, err
	}
	s.put(ctx, participant)
	return participant, nil
}

func (s *Store) List(ctx context.Context) ([]registry.Participant, error) {
	return s.inner.List(ctx)
}

func (s *Store) put(ctx context.Context, participant registry.Participant) {
	payload, err := json.Marshal(cachedProfile{
		Address:      participant.Address.String(),
		DisplayName:  participant.DisplayName,
		Role:         participant.Role.String(),
		RegisteredAt: participant.RegisteredAt,
	})
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, keyPrefix+participant.Address.String(), payload, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "profile cache write failed", "error", err.Error())
	}
}

var _ registry.Store = (*Store)(nil)
