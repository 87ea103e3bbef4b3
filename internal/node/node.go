// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/stakeidx"
	"github.com/blinklabs-io/stakeidx/event"
	"github.com/blinklabs-io/stakeidx/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewIndexer builds an indexer from the loaded config
func NewIndexer(
	cfg *config.Config,
	logger *slog.Logger,
	registry prometheus.Registerer,
) (*stakeidx.Indexer, error) {
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	return stakeidx.New(
		stakeidx.NewConfig(
			stakeidx.WithLogger(logger),
			stakeidx.WithPrometheusRegistry(registry),
			stakeidx.WithDatabasePath(cfg.DatabasePath),
			stakeidx.WithBlobPlugin(cfg.BlobPlugin),
			stakeidx.WithMetadataPlugin(cfg.MetadataPlugin),
			stakeidx.WithDefaultCommission(cfg.DefaultCollatorCommission),
			stakeidx.WithTracing(cfg.Tracing),
			stakeidx.WithTracingStdout(cfg.TracingStdout),
			stakeidx.WithShutdownTimeout(shutdownTimeout),
		),
	)
}

// Run serves prometheus metrics and, when a block file is configured, loads
// it. It returns once a signal is received or loading fails.
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	idx, err := NewIndexer(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	if err := idx.Start(); err != nil {
		return err
	}
	idx.EventBus().SubscribeFunc(
		event.StakerCreatedEventType,
		func(evt event.Event) {
			data, ok := evt.Data.(event.StakerCreatedEvent)
			if !ok {
				return
			}
			logger.Info(
				"staker created",
				"component", "node",
				"chain", cfg.ChainName,
				"staker", data.Staker.ID,
				"role", data.Staker.Role,
				"block", data.BlockHeight,
			)
		},
	)
	// Metrics listener
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	logger.Info(
		"serving prometheus metrics on "+metricsAddr,
		"component", "node",
	)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "node",
			)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	errChan := make(chan error, 1)
	if cfg.BlockFile != "" {
		go func() {
			errChan <- loadFile(signalCtx, idx, logger, cfg.BlockFile)
		}()
	}
	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	case runErr = <-errChan:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Error("load error", "component", "node", "error", runErr)
		} else {
			runErr = nil
			// Keep serving metrics until told to stop
			<-signalCtx.Done()
			logger.Info("signal received, initiating graceful shutdown", "component", "node")
		}
	}
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", "component", "node", "error", err)
	}
	if err := idx.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "component", "node", "error", err)
		return errors.Join(runErr, err)
	}
	logger.Info("shutdown complete", "component", "node")
	return runErr
}
