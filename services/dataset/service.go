// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset provides the dataset cache and versioning HTTP
// service.
//
// The service exposes endpoints for:
//   - Ingesting upstream dataset snapshots
//   - Transforming the current dataset (rename, drop, retype, fill...)
//   - Two-phase join preview and promotion
//   - Status and active-key diagnostics
//
// Every mutation publishes a new immutable cache entry and retargets
// the session pointer; previous versions stay readable until their
// TTL retires them.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/AleutianData/services/dataset/frame"
	"github.com/AleutianAI/AleutianData/services/dataset/session"
	"github.com/AleutianAI/AleutianData/services/dataset/stage"
	"github.com/AleutianAI/AleutianData/services/dataset/storage/badger"
)

// ServiceConfig configures the dataset service.
type ServiceConfig struct {
	// CommittedTTL is how long published dataset versions live.
	// Default: 1 hour.
	CommittedTTL time.Duration `validate:"gt=0"`

	// PreviewTTL is how long join previews live. Default: 10 minutes.
	// Must not exceed CommittedTTL.
	PreviewTTL time.Duration `validate:"gt=0,ltefield=CommittedTTL"`

	// Logger for service events. If nil, slog.Default() is used.
	Logger *slog.Logger `validate:"-"`
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CommittedTTL: stage.DefaultCommittedTTL,
		PreviewTTL:   stage.DefaultPreviewTTL,
	}
}

// Service is the dataset cache and versioning service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Multiple goroutines can call
//	any combination of methods simultaneously; pointer races between
//	tabs of one session are last-write-wins.
type Service struct {
	config    ServiceConfig
	store     *badger.Store
	pointer   *session.Pointer
	indicator *session.Indicator
	adapter   *stage.Adapter
	logger    *slog.Logger
}

// NewService creates a dataset service on top of an opened store.
//
// Outputs:
//
//	*Service - The configured service.
//	error - Non-nil when the configuration fails validation.
func NewService(store *badger.Store, config ServiceConfig) (*Service, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid service config: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pointer := session.NewPointer()
	indicator := session.NewIndicator(store, logger)
	adapter := stage.New(store, pointer, indicator, stage.Config{
		CommittedTTL: config.CommittedTTL,
		PreviewTTL:   config.PreviewTTL,
		Logger:       logger,
	})
	return &Service{
		config:    config,
		store:     store,
		pointer:   pointer,
		indicator: indicator,
		adapter:   adapter,
		logger:    logger,
	}, nil
}

// Ingest publishes an upstream snapshot and makes it current.
func (s *Service) Ingest(ctx context.Context, source string, d *frame.Dataset) (string, stage.Summary, error) {
	if d == nil {
		return "", stage.Summary{}, &ComputationError{Op: "ingest", Message: "conjunto de dados ausente"}
	}
	if source != "" {
		d = d.WithSource(source)
	}
	key, err := s.adapter.Ingest(ctx, d)
	if err != nil {
		return "", stage.Summary{}, err
	}
	return key, stage.Summarize(key, d), nil
}

// Transform applies op to the current dataset and publishes the
// result.
func (s *Service) Transform(ctx context.Context, op frame.Op) (string, frame.Result, stage.Summary, error) {
	key, res, err := s.adapter.Transform(ctx, op)
	if err != nil {
		return "", frame.Result{}, stage.Summary{}, err
	}
	sum, err := s.adapter.StatusFor(ctx, key)
	if err != nil {
		return "", frame.Result{}, stage.Summary{}, err
	}
	return key, res, sum, nil
}

// PreviewJoin joins the current dataset with a second one under a
// short-lived temp key. The right side is either an inline snapshot
// or a cache key of an earlier ingest.
func (s *Service) PreviewJoin(ctx context.Context, right *frame.Dataset, rightKey string, spec frame.JoinSpec) (string, stage.Summary, error) {
	if right == nil {
		if rightKey == "" {
			return "", stage.Summary{}, &ComputationError{Op: "join", Message: "segundo conjunto de dados ausente"}
		}
		var err error
		right, err = s.adapter.Resolve(ctx, rightKey)
		if err != nil {
			return "", stage.Summary{}, err
		}
	}
	tempKey, joined, err := s.adapter.PreviewJoin(ctx, right, spec)
	if err != nil {
		return "", stage.Summary{}, err
	}
	return tempKey, stage.Summarize(tempKey, joined), nil
}

// SaveJoin promotes a previewed join to the committed dataset.
func (s *Service) SaveJoin(ctx context.Context, tempKey string) (string, stage.Summary, error) {
	key, err := s.adapter.SaveJoin(ctx, tempKey)
	if err != nil {
		return "", stage.Summary{}, err
	}
	sum, err := s.adapter.StatusFor(ctx, key)
	if err != nil {
		return "", stage.Summary{}, err
	}
	return key, sum, nil
}

// Status returns the status surface for the current pointer, or for
// an explicit key when one is given.
func (s *Service) Status(ctx context.Context, key string) (stage.Summary, error) {
	if key != "" {
		return s.adapter.StatusFor(ctx, key)
	}
	return s.adapter.Status(ctx)
}

// ActiveKey returns the active-key indicator value.
func (s *Service) ActiveKey(ctx context.Context) (string, bool) {
	return s.indicator.Current(ctx)
}

// ClearCache drops every cache entry and resets the session pointer.
func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.pointer.ClearMain()
	s.pointer.ClearPreview()
	s.indicator.Reset(ctx)
	s.logger.Info("dataset cache cleared")
	return nil
}
