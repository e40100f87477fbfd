// Package persistence is the only component that reads and writes domain data
// in the key-value store. Values are sanitized, serialized to canonical JSON,
// encrypted and written; reads reverse the pipeline and recover from corrupt or
// legacy plaintext values without surfacing errors.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/tutorledger/internal/codec"
	"github.com/mmynk/tutorledger/internal/storage"
)

// jsonAPI produces canonical JSON: sorted object keys, exact numbers.
var jsonAPI = sonic.Config{
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// Cipher is the codec used for stored values.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext string) string
	Decrypt(ctx context.Context, opaque string) (string, error)
}

// Ensure codec.Cipher satisfies Cipher
var _ Cipher = (*codec.Cipher)(nil)

// Options configures a Service.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Registerer receives the persistence metrics. Nil disables registration.
	Registerer prometheus.Registerer

	// Quarantine moves corrupt values under QuarantinePrefix instead of
	// deleting them outright.
	Quarantine bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is the sanitizing, encrypting persistence layer.
// Its migration state is per instance; nothing is global.
type Service struct {
	store   storage.Store
	cipher  Cipher
	logger  *slog.Logger
	metrics *metrics
	opts    Options

	migrateMu sync.Mutex
	migrated  bool
}

// New creates a Service over store and cipher.
func New(store storage.Store, cipher Cipher, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:   store,
		cipher:  cipher,
		logger:  opts.Logger,
		metrics: newMetrics(opts.Registerer),
		opts:    opts,
	}
}

// Save sanitizes, encrypts and stores value under key.
func (s *Service) Save(ctx context.Context, key string, value any) error {
	return s.SaveMany(ctx, map[string]any{key: value})
}

// SaveMany stores several values in one atomic write.
func (s *Service) SaveMany(ctx context.Context, values map[string]any) error {
	batch := storage.Batch{Sets: make(map[string]string, len(values))}
	for key, value := range values {
		encoded, err := s.encode(ctx, value)
		if err != nil {
			s.metrics.writes.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		batch.Sets[key] = encoded
	}

	if err := s.store.Apply(ctx, batch); err != nil {
		s.metrics.writes.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to save: %w", err)
	}
	s.metrics.writes.WithLabelValues("ok").Inc()
	return nil
}

func (s *Service) encode(ctx context.Context, value any) (string, error) {
	clean, err := Sanitize(value)
	if err != nil {
		return "", err
	}
	data, err := jsonAPI.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("failed to serialize value: %w", err)
	}
	return s.cipher.Encrypt(ctx, string(data)), nil
}

// Get reads the value under key into a T, returning def when the key is absent
// or unreadable. Legacy plaintext values are re-saved encrypted. Corrupt values
// are removed (or quarantined) and def is returned.
func Get[T any](ctx context.Context, s *Service, key string, def T) T {
	label := collectionLabel(key)

	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		s.metrics.reads.WithLabelValues(label, outcomeMiss).Inc()
		return def
	}
	if err != nil {
		s.logger.Warn("Storage read failed, using default", "key", key, "error", err)
		s.metrics.reads.WithLabelValues(label, outcomeReadError).Inc()
		return def
	}

	if !codec.IsEncrypted(raw) {
		var value T
		if err := jsonAPI.UnmarshalFromString(raw, &value); err != nil {
			s.discardCorrupt(ctx, key, raw, err)
			return def
		}
		if err := s.Save(ctx, key, value); err != nil {
			s.logger.Warn("Failed to migrate plaintext value", "key", key, "error", err)
		} else {
			s.logger.Info("Migrated plaintext value", "key", key)
			s.metrics.migrated.WithLabelValues(label).Inc()
		}
		s.metrics.reads.WithLabelValues(label, outcomeMigrated).Inc()
		return value
	}

	plain, err := s.cipher.Decrypt(ctx, raw)
	if errors.Is(err, codec.ErrKeyUnavailable) {
		// The value may be fine; only the key is missing right now.
		s.logger.Error("Encryption key unavailable, using default", "key", key, "error", err)
		s.metrics.reads.WithLabelValues(label, outcomeReadError).Inc()
		return def
	}
	if err != nil {
		s.discardCorrupt(ctx, key, raw, err)
		return def
	}

	var value T
	if err := jsonAPI.UnmarshalFromString(plain, &value); err != nil {
		s.discardCorrupt(ctx, key, raw, err)
		return def
	}
	s.metrics.reads.WithLabelValues(label, outcomeHit).Inc()
	return value
}

// discardCorrupt removes a value that failed to decode so later reads do not
// trip over it again.
func (s *Service) discardCorrupt(ctx context.Context, key, raw string, cause error) {
	label := collectionLabel(key)
	s.metrics.reads.WithLabelValues(label, outcomeCorrupt).Inc()
	s.metrics.corrupt.WithLabelValues(label).Inc()

	batch := storage.Batch{Removes: []string{key}}
	quarantineKey := ""
	if s.opts.Quarantine {
		quarantineKey = QuarantinePrefix + key + "/" + strconv.FormatInt(s.opts.Now().UnixNano(), 10)
		batch.Sets = map[string]string{quarantineKey: raw}
	}

	if err := s.store.Apply(ctx, batch); err != nil {
		s.logger.Error("Failed to discard corrupt value", "key", key, "error", err)
		return
	}
	s.logger.Error("Discarded corrupt value",
		"key", key,
		"quarantine_key", quarantineKey,
		"error", cause,
	)
}

// EnsureMigrated runs the eager plaintext migration once per install: every
// collection is read (triggering lazy migration) and a flag is stored. A failed
// flag write only means the pass runs again next start.
func (s *Service) EnsureMigrated(ctx context.Context) {
	s.migrateMu.Lock()
	defer s.migrateMu.Unlock()

	if s.migrated {
		return
	}
	if _, err := s.store.Get(ctx, KeyMigrated); err == nil {
		s.migrated = true
		return
	}

	for _, key := range CollectionKeys {
		Get[any](ctx, s, key, nil)
	}

	if err := s.store.Set(ctx, KeyMigrated, strconv.FormatInt(s.opts.Now().Unix(), 10)); err != nil {
		s.logger.Warn("Failed to record migration, will retry next start", "error", err)
		return
	}
	s.migrated = true
	s.logger.Info("Storage migration complete")
}

// ClearAll removes every collection, the migration flag and quarantined values.
func (s *Service) ClearAll(ctx context.Context) error {
	keys := append([]string{KeyMigrated}, CollectionKeys...)

	quarantined, err := s.store.Keys(ctx, QuarantinePrefix)
	if err != nil {
		return fmt.Errorf("failed to list quarantined values: %w", err)
	}
	keys = append(keys, quarantined...)

	if err := s.store.Apply(ctx, storage.Batch{Removes: keys}); err != nil {
		return fmt.Errorf("failed to clear storage: %w", err)
	}
	s.logger.Info("Cleared all data", "keys", len(keys))
	return nil
}
