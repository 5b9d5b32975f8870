// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"fmt"

	"github.com/AleutianAI/AleutianData/services/dataset/frame"
	"github.com/AleutianAI/AleutianData/services/dataset/stage"
)

// IngestRequest is the request body for POST /v1/dataset/ingest.
type IngestRequest struct {
	// Source labels the dataset in the status surface, typically the
	// upstream file or query name.
	Source string `json:"source"`

	// Data is the dataset snapshot in typed column form.
	Data *frame.Dataset `json:"data" binding:"required"`
}

// IngestResponse is returned from a successful ingest.
type IngestResponse struct {
	Key     string        `json:"key"`
	Summary stage.Summary `json:"summary"`
}

// TransformRequest is the request body for POST /v1/dataset/transform.
// Op selects the operation; the remaining fields are the per-op
// parameters.
type TransformRequest struct {
	Op string `json:"op" binding:"required,oneof=rename drop_columns change_type derived_sum fill_missing drop_missing_rows"`

	// rename, change_type, fill_missing
	Column string `json:"column,omitempty"`

	// rename
	NewName string `json:"new_name,omitempty"`

	// drop_columns
	Columns []string `json:"columns,omitempty"`

	// change_type: bool, int, float, string or datetime
	NewType string `json:"new_type,omitempty"`

	// derived_sum
	ColumnA string `json:"column_a,omitempty"`
	ColumnB string `json:"column_b,omitempty"`
	Name    string `json:"name,omitempty"`

	// fill_missing: dropna_col, mean, median, mode or constant
	Method   string `json:"method,omitempty"`
	Constant string `json:"constant,omitempty"`
}

// BuildOp builds the transform operation the request describes.
//
// Outputs:
//
//	frame.Op - The operation to apply.
//	error - Non-nil when a parameter is malformed (request-level, not
//	a data-level failure).
func (r TransformRequest) BuildOp() (frame.Op, error) {
	switch r.Op {
	case "rename":
		return frame.Rename{Column: r.Column, NewName: r.NewName}, nil
	case "drop_columns":
		return frame.DropColumns{Columns: r.Columns}, nil
	case "change_type":
		kind, err := frame.KindFromString(r.NewType)
		if err != nil {
			return nil, fmt.Errorf("new_type: %w", err)
		}
		return frame.ChangeType{Column: r.Column, NewType: kind}, nil
	case "derived_sum":
		return frame.DerivedSum{A: r.ColumnA, B: r.ColumnB, NewName: r.Name}, nil
	case "fill_missing":
		switch frame.FillMethod(r.Method) {
		case frame.FillDropRows, frame.FillMean, frame.FillMedian, frame.FillMode, frame.FillConstant:
		default:
			return nil, fmt.Errorf("unknown fill method %q", r.Method)
		}
		return frame.FillMissing{
			Column:   r.Column,
			Method:   frame.FillMethod(r.Method),
			Constant: r.Constant,
		}, nil
	case "drop_missing_rows":
		return frame.DropMissingRows{}, nil
	}
	return nil, fmt.Errorf("unknown op %q", r.Op)
}

// TransformResponse is returned from a successful transform.
type TransformResponse struct {
	Key     string        `json:"key"`
	Message string        `json:"message"`
	Summary stage.Summary `json:"summary"`
}

// JoinPreviewRequest is the request body for POST
// /v1/dataset/join/preview. The right side is either an inline
// snapshot (right) or the cache key of an earlier ingest (right_key).
type JoinPreviewRequest struct {
	Type     string         `json:"type" binding:"required,oneof=inner left right outer"`
	LeftOn   []string       `json:"left_on" binding:"required,min=1"`
	RightOn  []string       `json:"right_on" binding:"required,min=1"`
	Right    *frame.Dataset `json:"right,omitempty"`
	RightKey string         `json:"right_key,omitempty"`
}

// JoinPreviewResponse is returned from a successful preview.
type JoinPreviewResponse struct {
	TempKey string        `json:"temp_key"`
	Summary stage.Summary `json:"summary"`
}

// JoinSaveRequest is the request body for POST /v1/dataset/join/save.
type JoinSaveRequest struct {
	TempKey string `json:"temp_key" binding:"required"`
}

// JoinSaveResponse is returned from a successful promotion.
type JoinSaveResponse struct {
	Key     string        `json:"key"`
	Summary stage.Summary `json:"summary"`
}

// ActiveResponse is returned from GET /v1/dataset/active.
type ActiveResponse struct {
	Key       string `json:"key,omitempty"`
	Available bool   `json:"available"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is returned from GET /v1/dataset/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is returned from GET /v1/dataset/ready.
type ReadyResponse struct {
	Ready bool `json:"ready"`
}
