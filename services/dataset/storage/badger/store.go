// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger implements the serialized value store on BadgerDB:
// a durable key -> (bytes, expiry) table with TTL-bounded entries.
//
// Every committed dataset version lives under a fresh key and is
// written exactly once; the only slot that may be overwritten is the
// reserved active-key indicator. Expiry is enforced lazily on read
// with an injectable clock, so tests advance time without sleeping.
// BadgerDB's native TTL is applied as a real-time reclamation
// backstop; correctness never depends on it or on any sweeper.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
// This package follows Apache 2.0 guidelines for attribution and usage.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// IndicatorKey is the reserved slot mirroring the active dataset key.
// It is the only key Set may overwrite.
const IndicatorKey = "active::dataset-key"

// envelopeHeader is the 8-byte big-endian expiry prefix (unix nanos,
// zero means never).
const envelopeHeader = 8

var (
	// ErrNotFound indicates the key is absent or its TTL has elapsed.
	ErrNotFound = errors.New("key not found")

	// ErrKeyExists indicates a write targeted an existing dataset key.
	// Dataset payloads are write-once; only the indicator slot may be
	// overwritten.
	ErrKeyExists = errors.New("key already exists")
)

var storeTracer = otel.Tracer("dataset.storage.badger")

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_store_ops_total",
		Help: "Store operations by op and status",
	}, []string{"op", "status"})

	expiredReadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dataset_store_expired_reads_total",
		Help: "Reads that found an entry past its TTL",
	})

	payloadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dataset_store_payload_bytes",
		Help:    "Payload size of written entries",
		Buckets: prometheus.ExponentialBuckets(256, 4, 10),
	})
)

// Config holds configuration for the store.
type Config struct {
	// Path is the directory for BadgerDB files. Required unless
	// InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful
	// for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger is used for store events and BadgerDB's internal logs.
	// If nil, slog.Default() is used and BadgerDB logging is disabled.
	Logger *slog.Logger

	// Clock supplies the current time for expiry decisions.
	// Default: time.Now.
	Clock func() time.Time

	// GCInterval is how often to run value log garbage collection.
	// Default: 5 minutes. Set to 0 to disable. Reclamation is an
	// operational concern only; expiry is enforced lazily on read.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before
	// GC rewrites a value log file. Default: 0.5.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration optimized for testing.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
		GCInterval: 0,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the serialized value store.
//
// Thread Safety: safe for concurrent use. BadgerDB serializes
// conflicting writes internally; dataset keys are never contended
// because every publish targets a freshly issued key.
type Store struct {
	db       *badger.DB
	clock    func() time.Time
	logger   *slog.Logger
	gcRunner *gcRunner
}

// Open creates and opens a store with the given configuration.
//
// Description:
//
//	Opens a BadgerDB database at the configured path, or in memory if
//	InMemory is true. Creates the directory if it doesn't exist and
//	starts the GC runner when GCInterval is configured.
//
// Outputs:
//
//	*Store - The opened store. Caller must call Close() when done.
//	error - Non-nil if path is invalid or the database cannot open.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		logger = slog.Default()
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &Store{db: db, clock: clock, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gcRunner = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, logger)
		s.gcRunner.Start()
	}
	return s, nil
}

// OpenInMemory opens an in-memory store for testing. Data is lost
// when closed.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.gcRunner != nil {
		s.gcRunner.Stop()
	}
	return s.db.Close()
}

// Set persists payload under key with the given TTL.
//
// Description:
//
//	The write is all-or-nothing: either the full envelope commits or
//	nothing is visible. A key is never exposed to readers before it is
//	fully written. ttl=0 means the entry never expires. Writing to an
//	existing key fails with ErrKeyExists unless key is IndicatorKey,
//	the one slot that is overwritten on every pointer switch.
//
// Inputs:
//
//	ctx - Context for cancellation checks before the write.
//	key - Opaque entry key. Must not be empty.
//	payload - Serialized value. Stored and returned verbatim.
//	ttl - Time to live; 0 for no expiry.
//
// Outputs:
//
//	error - ErrKeyExists on a forbidden overwrite, or a wrapped
//	storage error. Never silently swallowed.
func (s *Store) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	ctx, span := storeTracer.Start(ctx, "store.Set")
	defer span.End()
	span.SetAttributes(attribute.Int("payload_bytes", len(payload)))

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if key == "" {
		opsTotal.WithLabelValues("set", "error").Inc()
		return errors.New("key must not be empty")
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.clock().Add(ttl).UnixNano()
	}
	env := make([]byte, envelopeHeader+len(payload))
	binary.BigEndian.PutUint64(env, uint64(expiresAt))
	copy(env[envelopeHeader:], payload)

	err := s.db.Update(func(txn *badger.Txn) error {
		if key != IndicatorKey {
			_, getErr := txn.Get([]byte(key))
			switch {
			case getErr == nil:
				return ErrKeyExists
			case !errors.Is(getErr, badger.ErrKeyNotFound):
				return getErr
			}
		}
		entry := badger.NewEntry([]byte(key), env)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		if errors.Is(err, ErrKeyExists) {
			opsTotal.WithLabelValues("set", "exists").Inc()
			return fmt.Errorf("set %s: %w", key, ErrKeyExists)
		}
		opsTotal.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("set %s: %w", key, err)
	}

	opsTotal.WithLabelValues("set", "ok").Inc()
	payloadBytes.Observe(float64(len(payload)))
	return nil
}

// Get returns the payload stored under key.
//
// Description:
//
//	An entry past its TTL is treated as absent and lazily deleted; no
//	background sweeper is required for correctness. A corrupt envelope
//	is logged and reported as absent, never a panic.
//
// Outputs:
//
//	[]byte - The payload, owned by the caller.
//	error - ErrNotFound when absent or expired; a wrapped storage
//	error otherwise.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := storeTracer.Start(ctx, "store.Get")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var payload []byte
	var expired bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < envelopeHeader {
				s.logger.Error("corrupt cache envelope; treating as absent",
					slog.String("key", key), slog.Int("len", len(val)))
				expired = true
				return nil
			}
			expiresAt := int64(binary.BigEndian.Uint64(val))
			if expiresAt != 0 && s.clock().UnixNano() >= expiresAt {
				expired = true
				return nil
			}
			payload = append([]byte(nil), val[envelopeHeader:]...)
			return nil
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		opsTotal.WithLabelValues("get", "miss").Inc()
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	case err != nil:
		opsTotal.WithLabelValues("get", "error").Inc()
		return nil, fmt.Errorf("get %s: %w", key, err)
	case expired:
		expiredReadsTotal.Inc()
		opsTotal.WithLabelValues("get", "expired").Inc()
		if delErr := s.Delete(ctx, key); delErr != nil {
			s.logger.Warn("lazy delete of expired entry failed",
				slog.String("key", key), slog.String("error", delErr.Error()))
		}
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}

	opsTotal.WithLabelValues("get", "ok").Inc()
	return payload, nil
}

// Has reports whether key exists and is fresh.
//
// Only the envelope header is inspected; the payload is not copied
// out for the caller.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	fresh := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < envelopeHeader {
				return nil
			}
			expiresAt := int64(binary.BigEndian.Uint64(val))
			fresh = expiresAt == 0 || s.clock().UnixNano() < expiresAt
			return nil
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("has %s: %w", key, err)
	}
	return fresh, nil
}

// Delete removes key. Removing an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		opsTotal.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("delete %s: %w", key, err)
	}
	opsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

// Clear removes every entry. Maintenance and testing only.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if err := s.db.DropAll(); err != nil {
		opsTotal.WithLabelValues("clear", "error").Inc()
		return fmt.Errorf("clear store: %w", err)
	}
	opsTotal.WithLabelValues("clear", "ok").Inc()
	return nil
}

// -----------------------------------------------------------------------------
// Value log GC
// -----------------------------------------------------------------------------

// gcRunner runs periodic value log garbage collection. Purely an
// operational control: lazy-on-read expiry already keeps reads
// correct without it.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   *slog.Logger
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) *gcRunner {
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (r *gcRunner) Start() {
	go r.run()
}

func (r *gcRunner) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite when nothing needed
			// collecting; that is not an error.
			err := r.db.RunValueLogGC(r.ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				r.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// TempDir creates a temporary directory for testing persistent stores.
func TempDir(prefix string) (string, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return dir, nil
}

// CleanupDir removes a store directory and all its contents. Safe to
// call with an empty string (no-op).
func CleanupDir(path string) error {
	if path == "" {
		return nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	return os.RemoveAll(absPath)
}
