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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all dataset routes with the router.
//
// Description:
//
//	Registers all /v1/dataset/* endpoints with the given Gin router
//	group. The router group should already have any required
//	middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST   /v1/dataset/ingest - Publish an upstream snapshot
//	POST   /v1/dataset/transform - Apply a transform operation
//	POST   /v1/dataset/join/preview - Preview a join under a temp key
//	POST   /v1/dataset/join/save - Promote a previewed join
//	GET    /v1/dataset/status - Status surface (current or ?key=)
//	GET    /v1/dataset/active - Active-key indicator (diagnostic)
//	DELETE /v1/dataset/cache - Drop all cache entries
//	GET    /v1/dataset/health - Health check
//	GET    /v1/dataset/ready - Readiness check
//
// Example:
//
//	service, _ := dataset.NewService(store, dataset.DefaultServiceConfig())
//	handlers := dataset.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	dataset.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	ds := rg.Group("/dataset")
	{
		// Pipeline stages
		ds.POST("/ingest", handlers.HandleIngest)
		ds.POST("/transform", handlers.HandleTransform)

		// Two-phase join
		join := ds.Group("/join")
		{
			join.POST("/preview", handlers.HandleJoinPreview)
			join.POST("/save", handlers.HandleJoinSave)
		}

		// Diagnostics
		ds.GET("/status", handlers.HandleStatus)
		ds.GET("/active", handlers.HandleActive)

		// Maintenance
		ds.DELETE("/cache", handlers.HandleClearCache)

		// Health checks
		ds.GET("/health", handlers.HandleHealth)
		ds.GET("/ready", handlers.HandleReady)
	}
}
