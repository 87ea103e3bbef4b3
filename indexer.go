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

// Package stakeidx indexes parachain staking events into an entity store
// that holds exactly one record per staking participant.
package stakeidx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/stakeidx/chainstate"
	"github.com/blinklabs-io/stakeidx/database"
	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/event"
	"github.com/blinklabs-io/stakeidx/handler"
	"github.com/blinklabs-io/stakeidx/staking"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotStarted     = errors.New("indexer not started")
	ErrAlreadyStarted = errors.New("indexer already started")
)

// Block is one block of decoded staking events along with the staking chain
// state changes it made
type Block struct {
	Timestamp time.Time         `json:"timestamp"`
	Events    []handler.Event   `json:"events,omitempty"`
	State     chainstate.Update `json:"state"`
	Height    uint64            `json:"height"`
}

type Indexer struct {
	config         Config
	db             *database.Database
	chainState     *chainstate.Store
	handler        *handler.Handler
	eventBus       *event.EventBus
	metrics        *staking.Metrics
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	mu             sync.Mutex
	shutdownOnce   sync.Once
}

func New(cfg Config) (*Indexer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	i := &Indexer{
		config: cfg,
		eventBus: event.NewEventBus(
			cfg.promRegistry,
			cfg.logger,
		),
	}
	return i, nil
}

// EventBus returns the bus that committed block notifications are published on
func (i *Indexer) EventBus() *event.EventBus {
	return i.eventBus
}

// Start opens storage and prepares the indexer to process blocks
func (i *Indexer) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.db != nil {
		return ErrAlreadyStarted
	}
	if i.config.tracing {
		if err := i.setupTracing(); err != nil {
			return err
		}
	}
	i.tracer = otel.Tracer(tracerName)
	db, err := database.New(&database.Config{
		DataDir:        i.config.dataDir,
		BlobPlugin:     i.config.blobPlugin,
		MetadataPlugin: i.config.metadataPlugin,
		Logger:         i.config.logger,
		PromRegistry:   i.config.promRegistry,
	})
	if err != nil {
		var heightErr database.CommitHeightError
		if db == nil || !errors.As(err, &heightErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		// The blob store commits first, so it may hold chain state for one
		// block past the metadata cursor. That block is reprocessed.
		if heightErr.BlobHeight < heightErr.MetadataHeight {
			_ = db.Close()
			return fmt.Errorf("failed to open database: %w", err)
		}
		i.config.logger.Warn(
			"database needs recovery, reprocessing from metadata cursor",
			"component", "indexer",
			"error", err,
		)
	}
	i.db = db
	i.chainState = chainstate.New(db.Blob(), i.config.logger)
	i.handler = handler.New(handler.Config{
		PromRegistry: i.config.promRegistry,
		Logger:       i.config.logger,
	})
	i.metrics = staking.NewMetrics(i.config.promRegistry)
	return nil
}

// Cursor returns the height of the last processed block
func (i *Indexer) Cursor() (uint64, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.db == nil {
		return 0, false, ErrNotStarted
	}
	return i.db.CommitHeight(nil)
}

// ProcessBlock handles the events of one block and records its chain state
// changes in a single transaction. Blocks at or below the cursor are ignored.
// Events are published only once the transaction has committed.
func (i *Indexer) ProcessBlock(ctx context.Context, block Block) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.db == nil {
		return ErrNotStarted
	}
	ctx, span := i.tracer.Start(
		ctx,
		"ProcessBlock",
		trace.WithAttributes(
			attribute.Int64("block.height", int64(block.Height)), // #nosec G115
			attribute.Int("block.events", len(block.Events)),
		),
	)
	defer span.End()
	var created []models.Staker
	var result *handler.Result
	skipped := false
	txn := i.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		cursor, ok, err := i.db.CommitHeight(txn)
		if err != nil {
			return fmt.Errorf("%w: %w", database.ErrStorageUnavailable, err)
		}
		if ok && block.Height <= cursor {
			skipped = true
			return nil
		}
		store := txn.EntityStore()
		resolver, err := staking.NewResolver(staking.ResolverConfig{
			Store:             store,
			Snapshots:         i.chainState.Snapshots(),
			Logger:            i.config.logger,
			Metrics:           i.metrics,
			Block:             staking.Block{Height: block.Height},
			DefaultCommission: i.config.defaultCommission,
			StakerCreatedFunc: func(s models.Staker) {
				created = append(created, s)
			},
		})
		if err != nil {
			return err
		}
		result, err = i.handler.HandleBlock(
			ctx,
			resolver,
			store,
			handler.Block{Height: block.Height, Timestamp: block.Timestamp},
			block.Events,
		)
		if err != nil {
			return err
		}
		// Chain state for this block becomes visible to the next one
		if err := i.chainState.Apply(txn.Blob(), block.Height, block.State); err != nil {
			return err
		}
		txn.SetCommitHeight(block.Height)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("block %d: %w", block.Height, err)
	}
	if skipped {
		i.config.logger.Debug(
			"skipping already processed block",
			"component", "indexer",
			"height", block.Height,
		)
		return nil
	}
	for _, s := range created {
		i.eventBus.Publish(
			event.StakerCreatedEventType,
			event.NewEvent(
				event.StakerCreatedEventType,
				event.StakerCreatedEvent{Staker: s, BlockHeight: block.Height},
			),
		)
	}
	i.eventBus.Publish(
		event.BlockProcessedEventType,
		event.NewEvent(
			event.BlockProcessedEventType,
			event.BlockProcessedEvent{
				Height:         block.Height,
				Timestamp:      block.Timestamp,
				EventsRecorded: result.Recorded,
				EventsSkipped:  result.Skipped,
				StakersCreated: len(created),
			},
		),
	)
	i.config.logger.Debug(
		"processed block",
		"component", "indexer",
		"height", block.Height,
		"recorded", result.Recorded,
		"skipped", result.Skipped,
		"created", len(created),
	)
	return nil
}

// Resolve gets or creates the stakers for ids against the chain state at
// the cursor. New records are committed.
func (i *Indexer) Resolve(
	ctx context.Context,
	ids []string,
) ([]models.Staker, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.db == nil {
		return nil, ErrNotStarted
	}
	var stakers []models.Staker
	txn := i.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		cursor, ok, err := i.db.CommitHeight(txn)
		if err != nil {
			return fmt.Errorf("%w: %w", database.ErrStorageUnavailable, err)
		}
		height := uint64(0)
		if ok {
			height = cursor + 1
		}
		resolver, err := staking.NewResolver(staking.ResolverConfig{
			Store:             txn.EntityStore(),
			Snapshots:         i.chainState.Snapshots(),
			Logger:            i.config.logger,
			Metrics:           i.metrics,
			Block:             staking.Block{Height: height},
			DefaultCommission: i.config.defaultCommission,
		})
		if err != nil {
			return err
		}
		stakers, err = resolver.GetOrCreateStakers(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stakers, nil
}

// Database returns the underlying database, or nil before Start
func (i *Indexer) Database() *database.Database {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.db
}

func (i *Indexer) Stop() error {
	var err error
	i.shutdownOnce.Do(func() {
		err = i.shutdown()
	})
	return err
}

func (i *Indexer) shutdown() error {
	shutdownTimeout := 30 * time.Second
	if i.config.shutdownTimeout > 0 {
		shutdownTimeout = i.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	i.mu.Lock()
	defer i.mu.Unlock()
	var err error
	i.eventBus.Stop()
	if i.db != nil {
		if closeErr := i.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
		i.db = nil
	}
	if i.tracerProvider != nil {
		if tpErr := i.tracerProvider.Shutdown(ctx); tpErr != nil {
			err = errors.Join(err, fmt.Errorf("tracer shutdown: %w", tpErr))
		}
	}
	i.config.logger.Debug("indexer stopped", "component", "indexer")
	return err
}
