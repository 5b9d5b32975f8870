// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stage

import (
	"context"
	"errors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/AleutianAI/AleutianData/services/dataset/dataerr"
	"github.com/AleutianAI/AleutianData/services/dataset/frame"
)

// Availability states of the status surface. "No dataset" and
// "expired" render differently in the product, so they are distinct.
const (
	StateAvailable = "available"
	StateNoData    = "no_data"
	StateExpired   = "expired"
)

// Placeholder labels shown when no summary can be computed.
const (
	labelNoData  = "Nenhum dado carregado"
	labelExpired = "Dados expirados ou ausentes"
)

// grouped renders integers with thousands separators, matching the
// product's "1,234,567 Linhas" style.
var grouped = message.NewPrinter(language.English)

// Summary is the status-bar view of a dataset version.
type Summary struct {
	State       string `json:"state"`
	Key         string `json:"key,omitempty"`
	RowCount    int    `json:"row_count"`
	ColumnCount int    `json:"column_count"`
	SourceLabel string `json:"source_label,omitempty"`
	Label       string `json:"label"`
}

// Summarize builds the status view of d.
func Summarize(key string, d *frame.Dataset) Summary {
	return Summary{
		State:       StateAvailable,
		Key:         key,
		RowCount:    d.NumRows(),
		ColumnCount: d.NumCols(),
		SourceLabel: d.Source,
		Label:       grouped.Sprintf("%d Linhas, %d Col.", d.NumRows(), d.NumCols()),
	}
}

// Status resolves the main pointer into a status summary.
//
// Description:
//
//	Both not-available states are reported in-band, not as errors:
//	the status surface always renders something. Store failures other
//	than absence still surface as errors.
func (a *Adapter) Status(ctx context.Context) (Summary, error) {
	key, d, err := a.Current(ctx)
	switch {
	case errors.Is(err, dataerr.ErrNoDataLoaded):
		return Summary{State: StateNoData, Label: labelNoData}, nil
	case errors.Is(err, dataerr.ErrDataExpired):
		return Summary{State: StateExpired, Key: key, Label: labelExpired}, nil
	case err != nil:
		return Summary{}, err
	}
	return Summarize(key, d), nil
}

// StatusFor resolves an explicit key into a status summary, for
// diagnostics on versions the pointer no longer references.
func (a *Adapter) StatusFor(ctx context.Context, key string) (Summary, error) {
	d, err := a.Resolve(ctx, key)
	switch {
	case errors.Is(err, dataerr.ErrDataExpired):
		return Summary{State: StateExpired, Key: key, Label: labelExpired}, nil
	case err != nil:
		return Summary{}, err
	}
	return Summarize(key, d), nil
}
