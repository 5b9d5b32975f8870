// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stage implements the versioning protocol every pipeline
// stage follows against the cache.
//
// A stage run either publishes a complete new dataset version under a
// freshly issued key and retargets the session pointer, or it fails
// with no visible side effects. The previous version's key is never
// touched, so stepping back is just the pointer never having moved.
package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianData/services/dataset/dataerr"
	"github.com/AleutianAI/AleutianData/services/dataset/frame"
	"github.com/AleutianAI/AleutianData/services/dataset/keys"
	"github.com/AleutianAI/AleutianData/services/dataset/session"
	"github.com/AleutianAI/AleutianData/services/dataset/storage/badger"
)

// Default TTLs, matching the product's cache windows.
const (
	DefaultCommittedTTL = time.Hour
	DefaultPreviewTTL   = 10 * time.Minute
)

var stageTracer = otel.Tracer("dataset.stage")

var (
	publishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_stage_publishes_total",
		Help: "Published dataset versions by stage",
	}, []string{"stage"})

	computeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_stage_compute_failures_total",
		Help: "Stage runs that failed in compute, pointer unchanged",
	}, []string{"stage"})
)

// Adapter runs pipeline stages against a store and a session pointer.
//
// Thread Safety: safe for concurrent use. Publishes never collide
// because every run targets a fresh key; pointer races are
// last-write-wins by design.
type Adapter struct {
	store        *badger.Store
	pointer      *session.Pointer
	indicator    *session.Indicator
	committedTTL time.Duration
	previewTTL   time.Duration
	logger       *slog.Logger
}

// Config holds the adapter's tunables.
type Config struct {
	// CommittedTTL bounds the lifetime of published dataset versions.
	// Default: 1 hour.
	CommittedTTL time.Duration

	// PreviewTTL bounds the lifetime of join previews. Default: 10
	// minutes.
	PreviewTTL time.Duration

	// Logger for stage events. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// New wires an adapter to its store, pointer and indicator.
// indicator may be nil when no diagnostic mirroring is wanted.
func New(store *badger.Store, pointer *session.Pointer, indicator *session.Indicator, cfg Config) *Adapter {
	if cfg.CommittedTTL <= 0 {
		cfg.CommittedTTL = DefaultCommittedTTL
	}
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = DefaultPreviewTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Adapter{
		store:        store,
		pointer:      pointer,
		indicator:    indicator,
		committedTTL: cfg.CommittedTTL,
		previewTTL:   cfg.PreviewTTL,
		logger:       cfg.Logger,
	}
}

// Resolve loads and decodes the dataset stored under key.
//
// Outputs:
//
//	*frame.Dataset - The decoded dataset.
//	error - dataerr.ErrDataExpired when the key is absent or past its
//	TTL; a wrapped error on store or decode failure.
func (a *Adapter) Resolve(ctx context.Context, key string) (*frame.Dataset, error) {
	payload, err := a.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, badger.ErrNotFound) {
			return nil, dataerr.ErrDataExpired
		}
		return nil, fmt.Errorf("resolve %s: %w", key, err)
	}
	d, err := frame.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return d, nil
}

// Current resolves the main pointer's dataset.
//
// Outputs:
//
//	string - The key the pointer named.
//	*frame.Dataset - The decoded dataset.
//	error - dataerr.ErrNoDataLoaded with the pointer unset;
//	dataerr.ErrDataExpired when the pointed-to entry is gone.
func (a *Adapter) Current(ctx context.Context) (string, *frame.Dataset, error) {
	key, ok := a.pointer.Main()
	if !ok {
		return "", nil, dataerr.ErrNoDataLoaded
	}
	d, err := a.Resolve(ctx, key)
	if err != nil {
		return key, nil, err
	}
	return key, d, nil
}

// publish encodes d and writes it under a fresh committed key.
// Nothing is visible to readers until the write commits.
func (a *Adapter) publish(ctx context.Context, d *frame.Dataset, ttl time.Duration, freshKey func() string) (string, error) {
	payload, err := frame.Encode(d)
	if err != nil {
		return "", fmt.Errorf("encode dataset: %w", err)
	}
	key := freshKey()
	if err := a.store.Set(ctx, key, payload, ttl); err != nil {
		return "", fmt.Errorf("publish %s: %w", key, err)
	}
	return key, nil
}

// retarget moves the main pointer to key and mirrors the indicator.
func (a *Adapter) retarget(ctx context.Context, key string) {
	a.pointer.SetMain(key)
	if a.indicator != nil {
		a.indicator.Publish(ctx, key)
	}
}

// Ingest publishes an upstream-supplied snapshot as a new version and
// retargets the pointer. No existing pointer is required: ingest is
// how a session gets its first dataset.
func (a *Adapter) Ingest(ctx context.Context, d *frame.Dataset) (string, error) {
	ctx, span := stageTracer.Start(ctx, "stage.Ingest")
	defer span.End()

	key, err := a.publish(ctx, d, a.committedTTL, keys.New)
	if err != nil {
		return "", err
	}
	a.retarget(ctx, key)
	publishesTotal.WithLabelValues("ingest").Inc()
	a.logger.Info("dataset ingested",
		slog.String("key", key),
		slog.Int("rows", d.NumRows()),
		slog.Int("cols", d.NumCols()))
	return key, nil
}

// Transform runs op against the current dataset and publishes the
// result as a new version.
//
// Description:
//
//	Follows the stage protocol: resolve the pointer, compute, publish
//	under a fresh key, retarget. A compute failure returns a
//	ComputationError and leaves the pointer untouched, so the
//	pre-transform version stays current. The input version's entry is
//	never modified.
//
// Outputs:
//
//	string - The new version's key.
//	frame.Result - Operation message plus the delta summary.
//	error - ErrNoDataLoaded, ErrDataExpired, *ComputationError, or a
//	wrapped store error.
func (a *Adapter) Transform(ctx context.Context, op frame.Op) (string, frame.Result, error) {
	ctx, span := stageTracer.Start(ctx, "stage.Transform",
		trace.WithAttributes(attribute.String("op", op.Name())))
	defer span.End()

	_, current, err := a.Current(ctx)
	if err != nil {
		return "", frame.Result{}, err
	}

	next, res, err := frame.Apply(current, op)
	if err != nil {
		computeFailuresTotal.WithLabelValues("transform").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", frame.Result{}, dataerr.NewComputationError(op.Name(), err)
	}

	key, err := a.publish(ctx, next, a.committedTTL, keys.New)
	if err != nil {
		return "", frame.Result{}, err
	}
	a.retarget(ctx, key)
	publishesTotal.WithLabelValues("transform").Inc()
	a.logger.Info("transform published",
		slog.String("op", op.Name()),
		slog.String("key", key))
	return key, res, nil
}

// PreviewJoin joins the current dataset with right and publishes the
// result under a short-lived temp key.
//
// Description:
//
//	The main pointer is untouched: only the preview slot references
//	the temp key. An abandoned preview needs no cleanup; its TTL
//	retires it.
//
// Outputs:
//
//	string - The temp key, prefixed for diagnostics.
//	*frame.Dataset - The joined preview for immediate display.
//	error - ErrNoDataLoaded, ErrDataExpired, *ComputationError, or a
//	wrapped store error.
func (a *Adapter) PreviewJoin(ctx context.Context, right *frame.Dataset, spec frame.JoinSpec) (string, *frame.Dataset, error) {
	ctx, span := stageTracer.Start(ctx, "stage.PreviewJoin")
	defer span.End()

	_, left, err := a.Current(ctx)
	if err != nil {
		return "", nil, err
	}

	joined, err := frame.Join(left, right, spec)
	if err != nil {
		computeFailuresTotal.WithLabelValues("join_preview").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", nil, dataerr.NewComputationError("join", err)
	}

	key, err := a.publish(ctx, joined, a.previewTTL, keys.NewTemp)
	if err != nil {
		return "", nil, err
	}
	a.pointer.SetPreview(key)
	publishesTotal.WithLabelValues("join_preview").Inc()
	a.logger.Info("join preview published",
		slog.String("key", key),
		slog.Int("rows", joined.NumRows()))
	return key, joined, nil
}

// SaveJoin promotes a previewed join to the committed dataset.
//
// Description:
//
//	The temp entry's raw payload bytes are republished verbatim under
//	a fresh long-TTL key; nothing is recomputed or re-encoded, so the
//	committed bytes equal the previewed bytes. The temp key is then
//	deleted and the main pointer retargets. A save after the preview's
//	TTL elapsed fails with ErrPreviewExpired; it is never a silent
//	no-op. Only keys issued for previews are accepted: committed
//	entries are immutable and promotion must never consume one.
//
// Outputs:
//
//	string - The committed key now referenced by the main pointer.
//	error - ErrInvalidPreviewKey, ErrPreviewExpired, or a wrapped
//	store error.
func (a *Adapter) SaveJoin(ctx context.Context, tempKey string) (string, error) {
	ctx, span := stageTracer.Start(ctx, "stage.SaveJoin",
		trace.WithAttributes(attribute.String("temp_key", tempKey)))
	defer span.End()

	if !keys.IsTemp(tempKey) {
		span.SetStatus(codes.Error, "not a preview key")
		return "", dataerr.ErrInvalidPreviewKey
	}

	payload, err := a.store.Get(ctx, tempKey)
	if err != nil {
		if errors.Is(err, badger.ErrNotFound) {
			span.SetStatus(codes.Error, "preview expired")
			return "", dataerr.ErrPreviewExpired
		}
		return "", fmt.Errorf("resolve preview %s: %w", tempKey, err)
	}

	key := keys.New()
	if err := a.store.Set(ctx, key, payload, a.committedTTL); err != nil {
		return "", fmt.Errorf("promote preview: %w", err)
	}

	if err := a.store.Delete(ctx, tempKey); err != nil {
		// The promoted copy is already committed; the leftover temp
		// entry retires on its own TTL.
		a.logger.Warn("temp preview delete failed",
			slog.String("key", tempKey), slog.String("error", err.Error()))
	}
	a.pointer.ClearPreview()
	a.retarget(ctx, key)
	publishesTotal.WithLabelValues("join_save").Inc()
	a.logger.Info("join promoted",
		slog.String("temp_key", tempKey),
		slog.String("key", key))
	return key, nil
}
