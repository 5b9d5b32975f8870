// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session tracks which cache key a session considers current.
//
// The pointer is the only mutable state in the pipeline: dataset
// payloads never change once written, so "undo" is just the pointer
// never having moved. "No dataset" is an explicit state, not an empty
// string smuggled into a read path.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/AleutianAI/AleutianData/services/dataset/storage/badger"
)

// Pointer holds a session's main dataset key plus the ephemeral join
// preview key.
//
// Description:
//
//	The main slot names the committed dataset every pipeline stage
//	reads from. The preview slot exists only between a join preview
//	and its save or abandonment; it never feeds downstream stages.
//	Concurrent writers (multiple tabs of one session) race
//	last-write-wins, which is the accepted behavior: each write
//	references a fully published entry, so the loser's version simply
//	stops being current.
//
// Thread Safety: safe for concurrent use.
type Pointer struct {
	mu      sync.Mutex
	main    string
	preview string
}

// NewPointer returns a pointer with both slots empty.
func NewPointer() *Pointer {
	return &Pointer{}
}

// Main returns the main key and whether one is set.
func (p *Pointer) Main() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.main, p.main != ""
}

// SetMain retargets the main slot. key must reference an already
// published entry.
func (p *Pointer) SetMain(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.main = key
}

// ClearMain resets the main slot to the explicit none state.
func (p *Pointer) ClearMain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.main = ""
}

// Preview returns the preview key and whether one is set.
func (p *Pointer) Preview() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.preview, p.preview != ""
}

// SetPreview stores the temp key of a pending join preview. The main
// slot is untouched.
func (p *Pointer) SetPreview(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.preview = key
}

// ClearPreview discards the pending preview reference.
func (p *Pointer) ClearPreview() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.preview = ""
}

// -----------------------------------------------------------------------------
// Active-key indicator
// -----------------------------------------------------------------------------

// Indicator mirrors the most recent active key into the store under a
// reserved slot so operators can see what a session last activated.
//
// Description:
//
//	Purely a diagnostic surface. Publishing is best-effort: a mirror
//	failure is logged at warn and never surfaced to the caller,
//	because nothing reads the indicator for correctness. Concurrent
//	publishes race last-write-wins.
//
// Thread Safety: safe for concurrent use.
type Indicator struct {
	mu     sync.Mutex
	last   string
	store  *badger.Store
	logger *slog.Logger
}

// NewIndicator wires the indicator to a store. logger may be nil.
func NewIndicator(store *badger.Store, logger *slog.Logger) *Indicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indicator{store: store, logger: logger}
}

// Publish records key as the active dataset key and mirrors it into
// the store. Empty keys are ignored; the indicator only ever names a
// published entry.
func (i *Indicator) Publish(ctx context.Context, key string) {
	if key == "" {
		return
	}
	i.mu.Lock()
	i.last = key
	i.mu.Unlock()

	if err := i.store.Set(ctx, badger.IndicatorKey, []byte(key), 0); err != nil {
		i.logger.Warn("active-key indicator mirror failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Current returns the indicator value, preferring the store mirror
// and falling back to the in-process slot.
func (i *Indicator) Current(ctx context.Context) (string, bool) {
	payload, err := i.store.Get(ctx, badger.IndicatorKey)
	if err == nil {
		return string(payload), true
	}
	if !errors.Is(err, badger.ErrNotFound) {
		i.logger.Warn("active-key indicator read failed",
			slog.String("error", err.Error()))
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.last, i.last != ""
}

// Reset forgets the indicator, in process and in the store mirror.
// Called when the cache is wiped so the diagnostic surface never names
// a key that no longer resolves. The mirror delete is best-effort.
func (i *Indicator) Reset(ctx context.Context) {
	i.mu.Lock()
	i.last = ""
	i.mu.Unlock()

	if err := i.store.Delete(ctx, badger.IndicatorKey); err != nil {
		i.logger.Warn("active-key indicator reset failed",
			slog.String("error", err.Error()))
	}
}
