// Package redis provides a Redis-backed implementation of the storage
// interfaces for deployments where cart state is shared across
// processes. The event log uses a Redis list trimmed to the cap, so an
// append is a single atomic pipeline.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/security"
	"github.com/shopkit/storefront/storage"
)

// Config holds Redis store configuration.
type Config struct {
	// Address is the Redis server address, e.g. "localhost:6379".
	Address string

	// Password authenticates against the server (optional).
	Password string

	// DB selects the Redis logical database.
	DB int

	// KeyPrefix namespaces all keys written by this store (optional).
	KeyPrefix string

	// CartTTL expires the cart key after inactivity. Zero keeps the
	// cart forever.
	CartTTL time.Duration

	// Logger for structured logging (optional).
	Logger *slog.Logger
}

// Store is a Redis-backed implementation of storage.Store.
type Store struct {
	client  *redis.Client
	prefix  string
	cartTTL time.Duration
	logger  *slog.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Store{
		client:  client,
		prefix:  cfg.KeyPrefix,
		cartTTL: cfg.CartTTL,
		logger:  cfg.Logger,
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// LoadCart returns the persisted cart, or an empty cart when the key
// is missing.
func (s *Store) LoadCart(ctx context.Context) (cart.Items, error) {
	data, err := s.client.Get(ctx, s.cartKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	var items cart.Items
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return items, nil
}

// SaveCart replaces the persisted cart. SET is atomic, so a concurrent
// LoadCart sees either the previous or the new cart.
func (s *Store) SaveCart(ctx context.Context, items cart.Items) error {
	if items == nil {
		items = cart.Items{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.cartKey(), data, s.cartTTL).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// AppendEvent pushes the event onto the log list and trims it to the
// cap in one pipeline.
func (s *Store) AppendEvent(ctx context.Context, event security.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.logKey(), data)
	pipe.LTrim(ctx, s.logKey(), 0, storage.MaxEventLogEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Events returns the buffered events, oldest first. Entries that fail
// to decode are skipped rather than surfaced.
func (s *Store) Events(ctx context.Context) ([]security.Event, error) {
	raw, err := s.client.LRange(ctx, s.logKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read security log: %w", err)
	}

	// LPUSH stores newest first; reverse to oldest first.
	events := make([]security.Event, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var event security.Event
		if err := json.Unmarshal([]byte(raw[i]), &event); err != nil {
			s.logger.Warn("Skipping undecodable security event", "error", err)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *Store) cartKey() string {
	return s.prefix + storage.DefaultCartKey
}

func (s *Store) logKey() string {
	return s.prefix + storage.DefaultEventLogKey
}
