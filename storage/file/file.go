// Package file provides a file-backed implementation of the storage
// interfaces. State is kept as JSON documents under well-known keys in
// a single directory, the durable local storage of the storefront.
// Writes go through a temp file and rename so a reader never observes
// a partial document. Payloads can optionally be encrypted at rest.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopkit/storefront/cart"
	"github.com/shopkit/storefront/security"
	"github.com/shopkit/storefront/storage"
)

// Config holds file store configuration.
type Config struct {
	// Dir is the directory holding the persisted documents (required).
	Dir string

	// CartKey overrides storage.DefaultCartKey.
	CartKey string

	// EventLogKey overrides storage.DefaultEventLogKey.
	EventLogKey string

	// EncryptionKey enables AES-256-GCM encryption at rest when set.
	// Must be 32 bytes; see security.GenerateKey and security.DeriveKey.
	EncryptionKey []byte

	// Logger for structured logging (optional).
	Logger *slog.Logger
}

// Store is a file-backed implementation of storage.Store.
type Store struct {
	mu        sync.Mutex
	dir       string
	cartKey   string
	logKey    string
	encryptor *security.Encryptor
	logger    *slog.Logger
}

// New creates a file store, creating the directory if needed.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("file store requires a directory")
	}
	if cfg.CartKey == "" {
		cfg.CartKey = storage.DefaultCartKey
	}
	if cfg.EventLogKey == "" {
		cfg.EventLogKey = storage.DefaultEventLogKey
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	encryptor, err := security.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{
		dir:       cfg.Dir,
		cartKey:   cfg.CartKey,
		logKey:    cfg.EventLogKey,
		encryptor: encryptor,
		logger:    cfg.Logger,
	}, nil
}

// LoadCart returns the persisted cart. A missing document is an empty
// cart; a corrupt one is an error for the caller to handle.
func (s *Store) LoadCart(_ context.Context) (cart.Items, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items cart.Items
	found, err := s.read(s.cartKey, &items)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return items, nil
}

// SaveCart replaces the persisted cart.
func (s *Store) SaveCart(_ context.Context, items cart.Items) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if items == nil {
		items = cart.Items{}
	}
	return s.write(s.cartKey, items)
}

// AppendEvent reads the buffered events, appends the new entry,
// truncates to the newest storage.MaxEventLogEntries and writes the
// buffer back, all under one lock. A corrupt buffer is treated as
// empty rather than surfaced.
func (s *Store) AppendEvent(_ context.Context, event security.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.readEvents()
	events = append(events, event)
	if overflow := len(events) - storage.MaxEventLogEntries; overflow > 0 {
		events = events[overflow:]
	}
	return s.write(s.logKey, events)
}

// Events returns the buffered events, oldest first.
func (s *Store) Events(_ context.Context) ([]security.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readEvents(), nil
}

func (s *Store) readEvents() []security.Event {
	var events []security.Event
	found, err := s.read(s.logKey, &events)
	if err != nil {
		s.logger.Warn("Discarding unreadable security log", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return events
}

// read unmarshals the document stored under key into v. It reports
// whether a document existed.
func (s *Store) read(key string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	plain, err := s.encryptor.Decrypt(string(data))
	if err != nil {
		return false, fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// write marshals v and atomically replaces the document under key.
func (s *Store) write(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	payload, err := s.encryptor.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	if _, err := tmp.WriteString(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
