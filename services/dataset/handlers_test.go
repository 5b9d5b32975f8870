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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianData/services/dataset/stage"
	"github.com/AleutianAI/AleutianData/services/dataset/storage/badger"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := badger.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc, err := NewService(store, DefaultServiceConfig())
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	router := gin.New()
	handlers := NewHandlers(svc)
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, _ := http.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const salesJSON = `{
	"source": "vendas.csv",
	"data": {
		"source": "vendas.csv",
		"columns": [
			{"name": "produto", "type": "string", "values": ["caneta", "lapis", "caderno", "borracha", "regua"]},
			{"name": "quantidade", "type": "int", "values": [10, 25, 7, 40, 3]},
			{"name": "preco", "type": "float", "values": [1.5, 0.8, 12.9, 0.5, 2.2]}
		]
	}
}`

func TestHandlers_HandleHealth(t *testing.T) {
	router := setupTestRouter(t)

	req, _ := http.NewRequest("GET", "/v1/dataset/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", resp.Status)
	}
	if resp.Version != ServiceVersion {
		t.Errorf("expected version %q, got %q", ServiceVersion, resp.Version)
	}
}

func TestHandlers_IngestThenStatus(t *testing.T) {
	router := setupTestRouter(t)

	w := postJSON(t, router, "/v1/dataset/ingest", salesJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("ingest: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var ingest IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &ingest); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if ingest.Key == "" {
		t.Error("expected a non-empty key")
	}

	req, _ := http.NewRequest("GET", "/v1/dataset/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: expected status %d, got %d", http.StatusOK, w.Code)
	}

	var sum stage.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if sum.Label != "5 Linhas, 3 Col." {
		t.Errorf("expected label '5 Linhas, 3 Col.', got %q", sum.Label)
	}
	if sum.State != stage.StateAvailable {
		t.Errorf("expected state %q, got %q", stage.StateAvailable, sum.State)
	}
}

func TestHandlers_StatusWithoutDataset(t *testing.T) {
	router := setupTestRouter(t)

	req, _ := http.NewRequest("GET", "/v1/dataset/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var sum stage.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if sum.State != stage.StateNoData {
		t.Errorf("expected state %q, got %q", stage.StateNoData, sum.State)
	}
}

func TestHandlers_HandleTransform_Errors(t *testing.T) {
	tests := []struct {
		name       string
		ingest     bool
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing op",
			body:       "{}",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "unknown new_type",
			ingest:     true,
			body:       `{"op": "change_type", "column": "preco", "new_type": "decimal"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "no dataset loaded",
			body:       `{"op": "drop_missing_rows"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   "NO_DATA_LOADED",
		},
		{
			name:       "rename absent column",
			ingest:     true,
			body:       `{"op": "rename", "column": "inexistente", "new_name": "x"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "COMPUTATION_FAILED",
		},
		{
			name:       "drop all columns",
			ingest:     true,
			body:       `{"op": "drop_columns", "columns": ["produto", "quantidade", "preco"]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "COMPUTATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t)
			if tt.ingest {
				if w := postJSON(t, router, "/v1/dataset/ingest", salesJSON); w.Code != http.StatusOK {
					t.Fatalf("ingest failed: %d %s", w.Code, w.Body.String())
				}
			}

			w := postJSON(t, router, "/v1/dataset/transform", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}

			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestHandlers_TransformRename(t *testing.T) {
	router := setupTestRouter(t)
	if w := postJSON(t, router, "/v1/dataset/ingest", salesJSON); w.Code != http.StatusOK {
		t.Fatalf("ingest failed: %d", w.Code)
	}

	w := postJSON(t, router, "/v1/dataset/transform",
		`{"op": "rename", "column": "preco", "new_name": "preco_unitario"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp TransformResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Key == "" {
		t.Error("expected a new key")
	}
	if resp.Summary.ColumnCount != 3 {
		t.Errorf("expected 3 columns, got %d", resp.Summary.ColumnCount)
	}
}

func TestHandlers_JoinPreviewAndSave(t *testing.T) {
	router := setupTestRouter(t)
	if w := postJSON(t, router, "/v1/dataset/ingest", salesJSON); w.Code != http.StatusOK {
		t.Fatalf("ingest failed: %d", w.Code)
	}

	previewBody := `{
		"type": "inner",
		"left_on": ["produto"],
		"right_on": ["produto"],
		"right": {
			"source": "precos.csv",
			"columns": [
				{"name": "produto", "type": "string", "values": ["caneta", "lapis"]},
				{"name": "categoria", "type": "string", "values": ["escrita", "escrita"]}
			]
		}
	}`
	w := postJSON(t, router, "/v1/dataset/join/preview", previewBody)
	if w.Code != http.StatusOK {
		t.Fatalf("preview: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var preview JoinPreviewResponse
	if err := json.Unmarshal(w.Body.Bytes(), &preview); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if preview.TempKey == "" {
		t.Fatal("expected a temp key")
	}
	if preview.Summary.RowCount != 2 {
		t.Errorf("expected 2 rows, got %d", preview.Summary.RowCount)
	}

	saveBody, _ := json.Marshal(JoinSaveRequest{TempKey: preview.TempKey})
	w = postJSON(t, router, "/v1/dataset/join/save", string(saveBody))
	if w.Code != http.StatusOK {
		t.Fatalf("save: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var save JoinSaveResponse
	if err := json.Unmarshal(w.Body.Bytes(), &save); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if save.Key == preview.TempKey {
		t.Error("expected promotion to a fresh committed key")
	}
}

func TestHandlers_JoinSaveExpiredPreview(t *testing.T) {
	router := setupTestRouter(t)

	w := postJSON(t, router, "/v1/dataset/join/save", `{"temp_key": "temp_join_gone"}`)
	if w.Code != http.StatusGone {
		t.Fatalf("expected status %d, got %d", http.StatusGone, w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != "PREVIEW_EXPIRED" {
		t.Errorf("expected code PREVIEW_EXPIRED, got %q", resp.Code)
	}
}

func TestHandlers_JoinSaveCommittedKey(t *testing.T) {
	router := setupTestRouter(t)
	if w := postJSON(t, router, "/v1/dataset/ingest", salesJSON); w.Code != http.StatusOK {
		t.Fatalf("ingest failed: %d", w.Code)
	}

	req, _ := http.NewRequest("GET", "/v1/dataset/active", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var active ActiveResponse
	if err := json.Unmarshal(w.Body.Bytes(), &active); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	saveBody, _ := json.Marshal(JoinSaveRequest{TempKey: active.Key})
	w = postJSON(t, router, "/v1/dataset/join/save", string(saveBody))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != "INVALID_PREVIEW_KEY" {
		t.Errorf("expected code INVALID_PREVIEW_KEY, got %q", resp.Code)
	}

	// The committed dataset is still served
	req, _ = http.NewRequest("GET", "/v1/dataset/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var sum stage.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if sum.State != stage.StateAvailable {
		t.Errorf("expected state %q, got %q", stage.StateAvailable, sum.State)
	}
}

func TestHandlers_ClearCache(t *testing.T) {
	router := setupTestRouter(t)
	if w := postJSON(t, router, "/v1/dataset/ingest", salesJSON); w.Code != http.StatusOK {
		t.Fatalf("ingest failed: %d", w.Code)
	}

	req, _ := http.NewRequest("DELETE", "/v1/dataset/cache", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, w.Code)
	}

	req, _ = http.NewRequest("GET", "/v1/dataset/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var sum stage.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if sum.State != stage.StateNoData {
		t.Errorf("expected state %q after clear, got %q", stage.StateNoData, sum.State)
	}

	// The active-key indicator is reset alongside the store
	req, _ = http.NewRequest("GET", "/v1/dataset/active", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var active ActiveResponse
	if err := json.Unmarshal(w.Body.Bytes(), &active); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if active.Available {
		t.Errorf("expected no active key after clear, got %q", active.Key)
	}
}
