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

// Package handler applies decoded staking events to staker records
package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/database/types"
	"github.com/blinklabs-io/stakeidx/staking"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Staking event names
const (
	EventRewarded  = "Rewarded"
	EventSlashed   = "Slashed"
	EventBonded    = "Bonded"
	EventUnbonded  = "Unbonded"
	EventWithdrawn = "Withdrawn"
)

var historyTypes = map[string]models.HistoryType{
	EventRewarded:  models.HistoryTypeReward,
	EventSlashed:   models.HistoryTypeSlash,
	EventBonded:    models.HistoryTypeBond,
	EventUnbonded:  models.HistoryTypeUnbond,
	EventWithdrawn: models.HistoryTypeWithdrawn,
}

// Event is a decoded staking event naming one account and an amount
type Event struct {
	Name    string       `json:"name"`
	Account string       `json:"account"`
	Amount  types.Amount `json:"amount"`
	Round   uint32       `json:"round,omitempty"`
}

// Store is the entity store used while handling a block
type Store interface {
	staking.Store
	AddHistoryElement(ctx context.Context, elem *models.HistoryElement) error
	TouchAccounts(ctx context.Context, ids []string, height uint64) error
}

// Block is the block whose events are being handled
type Block struct {
	Timestamp time.Time
	Height    uint64
}

// Result summarizes the handling of one block
type Result struct {
	Stakers  []models.Staker
	Recorded int
	Skipped  int
}

type Config struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
}

type Handler struct {
	logger  *slog.Logger
	metrics struct {
		events  *prometheus.CounterVec
		skipped prometheus.Counter
	}
}

func New(cfg Config) *Handler {
	h := &Handler{logger: cfg.Logger}
	if h.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		h.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.PromRegistry != nil {
		promautoFactory := promauto.With(cfg.PromRegistry)
		h.metrics.events = promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stakeidx_staking_events_total",
				Help: "number of staking events recorded, by event name",
			},
			[]string{"name"},
		)
		h.metrics.skipped = promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "stakeidx_staking_events_skipped_total",
				Help: "number of staking events skipped",
			},
		)
	}
	return h
}

// HandleBlock resolves the participants of all events in one batch, then
// records each event against its staker. Events for accounts that hold no
// staking role, and events with unknown names, are skipped.
func (h *Handler) HandleBlock(
	ctx context.Context,
	resolver *staking.Resolver,
	store Store,
	block Block,
	events []Event,
) (*Result, error) {
	result := &Result{}
	ids := make([]string, 0, len(events))
	for _, evt := range events {
		if _, ok := historyTypes[evt.Name]; ok {
			ids = append(ids, evt.Account)
		}
	}
	if len(ids) == 0 {
		result.Skipped = len(events)
		h.countSkipped(result.Skipped)
		return result, nil
	}
	stakers, err := resolver.GetOrCreateStakers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve stakers: %w", err)
	}
	result.Stakers = stakers
	byID := make(map[string]*models.Staker, len(stakers))
	for i := range stakers {
		byID[stakers[i].ID] = &stakers[i]
	}
	var dirty []string
	isDirty := make(map[string]bool)
	for idx, evt := range events {
		historyType, ok := historyTypes[evt.Name]
		if !ok {
			h.logger.Debug(
				"skipping unknown staking event",
				"component", "handler",
				"name", evt.Name,
				"block", block.Height,
			)
			result.Skipped++
			continue
		}
		staker, ok := byID[evt.Account]
		if !ok {
			h.logger.Debug(
				"skipping event for account without staking role",
				"component", "handler",
				"name", evt.Name,
				"account", evt.Account,
				"block", block.Height,
			)
			result.Skipped++
			continue
		}
		applyEvent(staker, evt)
		if err := store.AddHistoryElement(
			ctx,
			&models.HistoryElement{
				ID:          fmt.Sprintf("%d-%d", block.Height, idx),
				Timestamp:   block.Timestamp,
				Amount:      evt.Amount,
				StakerID:    staker.ID,
				BlockNumber: block.Height,
				Type:        historyType,
				Round:       evt.Round,
			},
		); err != nil {
			return nil, fmt.Errorf("record %s for %s: %w", evt.Name, staker.ID, err)
		}
		result.Recorded++
		if h.metrics.events != nil {
			h.metrics.events.WithLabelValues(evt.Name).Inc()
		}
		if !isDirty[staker.ID] {
			isDirty[staker.ID] = true
			dirty = append(dirty, staker.ID)
		}
	}
	h.countSkipped(result.Skipped)
	for _, id := range dirty {
		if err := store.SaveStaker(ctx, byID[id]); err != nil {
			return nil, fmt.Errorf("save staker %s: %w", id, err)
		}
	}
	if len(dirty) > 0 {
		if err := store.TouchAccounts(ctx, dirty, block.Height); err != nil {
			return nil, fmt.Errorf("touch accounts: %w", err)
		}
	}
	return result, nil
}

// applyEvent updates the staker totals for one event. Bonds never go below zero.
func applyEvent(staker *models.Staker, evt Event) {
	switch evt.Name {
	case EventRewarded:
		staker.TotalReward = staker.TotalReward.Add(evt.Amount)
	case EventBonded:
		staker.ActiveBond = staker.ActiveBond.Add(evt.Amount)
	case EventSlashed, EventUnbonded:
		staker.ActiveBond = staker.ActiveBond.SubFloor(evt.Amount)
	case EventWithdrawn:
		// Withdrawn funds were already unbonded
	}
}

func (h *Handler) countSkipped(count int) {
	if h.metrics.skipped != nil && count > 0 {
		h.metrics.skipped.Add(float64(count))
	}
}
