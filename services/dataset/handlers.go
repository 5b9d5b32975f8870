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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianData/services/dataset/frame"
)

// ServiceVersion is the dataset service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the dataset service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleIngest handles POST /v1/dataset/ingest.
//
// Description:
//
//	Publishes an upstream dataset snapshot as a new cache entry and
//	retargets the session pointer to it. No existing dataset is
//	required.
//
// Request Body:
//
//	IngestRequest
//
// Response:
//
//	200 OK: IngestResponse
//	400 Bad Request: Validation error
//	500 Internal Server Error: Storage error
func (h *Handlers) HandleIngest(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleIngest")

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	key, sum, err := h.svc.Ingest(c.Request.Context(), req.Source, req.Data)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Info("Dataset ingested",
		"key", key,
		"rows", sum.RowCount,
		"cols", sum.ColumnCount)
	c.JSON(http.StatusOK, IngestResponse{Key: key, Summary: sum})
}

// HandleTransform handles POST /v1/dataset/transform.
//
// Description:
//
//	Applies one transform operation to the current dataset and
//	publishes the result as a new version. The previous version's
//	entry is untouched.
//
// Request Body:
//
//	TransformRequest
//
// Response:
//
//	200 OK: TransformResponse
//	400 Bad Request: Validation error or malformed op parameters
//	404 Not Found: No dataset loaded or dataset expired
//	422 Unprocessable Entity: Computation failed, pointer unchanged
//	500 Internal Server Error: Storage error
func (h *Handlers) HandleTransform(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleTransform")

	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	op, err := req.BuildOp()
	if err != nil {
		logger.Warn("Malformed op parameters", "op", req.Op, "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	key, res, sum, err := h.svc.Transform(c.Request.Context(), op)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Info("Transform applied", "op", req.Op, "key", key)
	c.JSON(http.StatusOK, TransformResponse{Key: key, Message: res.Message, Summary: sum})
}

// HandleJoinPreview handles POST /v1/dataset/join/preview.
//
// Description:
//
//	Joins the current dataset with a second one and publishes the
//	result under a short-lived temp key. The main pointer is
//	untouched until the preview is saved.
//
// Request Body:
//
//	JoinPreviewRequest
//
// Response:
//
//	200 OK: JoinPreviewResponse
//	400 Bad Request: Validation error
//	404 Not Found: No dataset loaded or dataset expired
//	422 Unprocessable Entity: Join failed (bad keys, empty result)
//	500 Internal Server Error: Storage error
func (h *Handlers) HandleJoinPreview(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleJoinPreview")

	var req JoinPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	tempKey, sum, err := h.svc.PreviewJoin(c.Request.Context(), req.Right, req.RightKey, joinSpecFrom(req))
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Info("Join preview published", "temp_key", tempKey, "rows", sum.RowCount)
	c.JSON(http.StatusOK, JoinPreviewResponse{TempKey: tempKey, Summary: sum})
}

// HandleJoinSave handles POST /v1/dataset/join/save.
//
// Description:
//
//	Promotes a previewed join to the committed dataset. The preview's
//	bytes are republished verbatim under a long-TTL key and the main
//	pointer retargets.
//
// Request Body:
//
//	JoinSaveRequest
//
// Response:
//
//	200 OK: JoinSaveResponse
//	400 Bad Request: Validation error
//	410 Gone: Preview expired, redo the preview
//	500 Internal Server Error: Storage error
func (h *Handlers) HandleJoinSave(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleJoinSave")

	var req JoinSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	key, sum, err := h.svc.SaveJoin(c.Request.Context(), req.TempKey)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	logger.Info("Join promoted", "temp_key", req.TempKey, "key", key)
	c.JSON(http.StatusOK, JoinSaveResponse{Key: key, Summary: sum})
}

// HandleStatus handles GET /v1/dataset/status.
//
// Description:
//
//	Returns the status surface for the current dataset, or for an
//	explicit key given as ?key=. "No dataset" and "expired" are
//	in-band states, not errors.
//
// Response:
//
//	200 OK: stage.Summary
//	500 Internal Server Error: Storage error
func (h *Handlers) HandleStatus(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStatus")

	sum, err := h.svc.Status(c.Request.Context(), c.Query("key"))
	if err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// HandleActive handles GET /v1/dataset/active. Diagnostic view of
// the active-key indicator.
func (h *Handlers) HandleActive(c *gin.Context) {
	key, ok := h.svc.ActiveKey(c.Request.Context())
	c.JSON(http.StatusOK, ActiveResponse{Key: key, Available: ok})
}

// HandleClearCache handles DELETE /v1/dataset/cache. Maintenance:
// drops every entry and resets the pointer.
func (h *Handlers) HandleClearCache(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleClearCache")

	if err := h.svc.ClearCache(c.Request.Context()); err != nil {
		h.writeError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /v1/dataset/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: ServiceVersion})
}

// HandleReady handles GET /v1/dataset/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, ReadyResponse{Ready: true})
}

// writeError maps service errors onto the uniform error body.
//
// NoDataLoaded and DataExpired are user-recoverable (ingest again),
// ComputationError carries the data-level diagnostic, PreviewExpired
// means redo the preview. Everything else is a storage fault.
func (h *Handlers) writeError(c *gin.Context, logger *slog.Logger, err error) {
	var ce *ComputationError
	switch {
	case errors.Is(err, ErrNoDataLoaded):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Nenhum dado carregado",
			Code:  "NO_DATA_LOADED",
		})
	case errors.Is(err, ErrDataExpired):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Dados expirados ou ausentes",
			Code:  "DATA_EXPIRED",
		})
	case errors.Is(err, ErrPreviewExpired):
		c.JSON(http.StatusGone, ErrorResponse{
			Error: "Preview do join expirou, refaça o preview",
			Code:  "PREVIEW_EXPIRED",
		})
	case errors.Is(err, ErrInvalidPreviewKey):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Chave informada não é um preview de join",
			Code:  "INVALID_PREVIEW_KEY",
		})
	case errors.As(err, &ce):
		logger.Warn("Computation failed", "op", ce.Op, "error", ce.Message)
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: ce.Message,
			Code:  "COMPUTATION_FAILED",
		})
	default:
		logger.Error("Storage error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Internal storage error",
			Code:  "STORE_IO",
		})
	}
}

// joinSpecFrom translates the wire request into the compute spec.
func joinSpecFrom(req JoinPreviewRequest) frame.JoinSpec {
	return frame.JoinSpec{
		Type:      frame.JoinType(req.Type),
		LeftKeys:  req.LeftOn,
		RightKeys: req.RightOn,
	}
}

// getOrCreateRequestID returns the request ID from the header or
// generates one, echoing it back to the client.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
