// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command dataset starts the Aleutian dataset cache API server.
//
// The server keeps working copies of pipeline datasets as immutable,
// TTL-bounded cache entries on BadgerDB, with copy-on-write
// versioning and two-phase join preview/promotion.
//
// Usage:
//
//	go run ./cmd/dataset serve
//	go run ./cmd/dataset serve --port 9090 --store-path /var/lib/aleutian/dataset
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/dataset/health
//
//	# Ingest a snapshot
//	curl -X POST http://localhost:8080/v1/dataset/ingest \
//	  -H "Content-Type: application/json" \
//	  -d '{"source": "vendas.csv", "data": {"columns": [...]}}'
//
//	# Current status
//	curl http://localhost:8080/v1/dataset/status
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianData/pkg/logging"
	"github.com/AleutianAI/AleutianData/services/dataset"
	"github.com/AleutianAI/AleutianData/services/dataset/storage/badger"
)

func main() {
	root := &cobra.Command{
		Use:   "dataset",
		Short: "Aleutian dataset cache and versioning server",
	}
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var (
		port         int
		storePath    string
		inMemory     bool
		committedTTL time.Duration
		previewTTL   time.Duration
		logDir       string
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dataset HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			logger := logging.New(logging.Config{
				Level:   level,
				LogDir:  logDir,
				Service: "dataset",
			})
			defer logger.Close()

			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			var storeCfg badger.Config
			if inMemory {
				storeCfg = badger.InMemoryConfig()
			} else {
				storeCfg = badger.DefaultConfig(storePath)
			}
			storeCfg.Logger = logger.Slog()

			store, err := badger.Open(storeCfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			svcCfg := dataset.DefaultServiceConfig()
			svcCfg.CommittedTTL = committedTTL
			svcCfg.PreviewTTL = previewTTL
			svcCfg.Logger = logger.Slog()

			svc, err := dataset.NewService(store, svcCfg)
			if err != nil {
				return fmt.Errorf("create service: %w", err)
			}

			router := gin.New()
			router.Use(gin.Recovery())
			router.Use(otelgin.Middleware("dataset"))
			if debug {
				router.Use(gin.Logger())
			}

			v1 := router.Group("/v1")
			dataset.RegisterRoutes(v1, dataset.NewHandlers(svc))
			router.GET("/metrics", gin.WrapH(promhttp.Handler()))

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("dataset server listening",
					"address", srv.Addr,
					"store_path", storePath,
					"in_memory", inMemory)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down dataset server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	cmd.Flags().StringVar(&storePath, "store-path", "./data/dataset", "BadgerDB directory")
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "Run the store in memory (no persistence)")
	cmd.Flags().DurationVar(&committedTTL, "committed-ttl", time.Hour, "TTL of committed dataset versions")
	cmd.Flags().DurationVar(&previewTTL, "preview-ttl", 10*time.Minute, "TTL of join previews")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "Directory for JSON log files (optional)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging and gin debug mode")
	return cmd
}
