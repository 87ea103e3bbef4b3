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

// Package staking resolves staking participants into account and staker
// records, creating the records that are missing.
package staking

import (
	"context"
	"errors"

	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/database/types"
)

var (
	// ErrInvalidID is returned for ids too long to store. No records are
	// written when a request carries one.
	ErrInvalidID = types.ErrInvalidID
	// ErrInvalidRole is returned when a staker is requested with a role other
	// than collator or delegator
	ErrInvalidRole = errors.New("invalid staker role")
	// ErrSnapshotUnavailable wraps failures to read chain state at the
	// requested height
	ErrSnapshotUnavailable = errors.New("chain state snapshot unavailable")
	// ErrStoreUnavailable wraps failures of the entity store
	ErrStoreUnavailable = errors.New("entity store unavailable")
)

// Block is the block currently being processed
type Block struct {
	Height uint64
}

// SnapshotHeight returns the height chain state is read at while processing
// this block. It is the previous block, or 0 for the first block.
func (b Block) SnapshotHeight() uint64 {
	if b.Height == 0 {
		return 0
	}
	return b.Height - 1
}

// Store is the entity store consumed by the resolver. Single lookups return
// nil without an error when the record doesn't exist.
type Store interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccounts(ctx context.Context, ids []string) ([]models.Account, error)
	InsertAccount(ctx context.Context, account *models.Account) error
	SaveAccounts(ctx context.Context, accounts []models.Account) error
	GetStaker(ctx context.Context, id string) (*models.Staker, error)
	GetStakers(ctx context.Context, ids []string) ([]models.Staker, error)
	SaveStaker(ctx context.Context, staker *models.Staker) error
	SaveCollator(ctx context.Context, collator *models.Collator) error
	SaveDelegator(ctx context.Context, delegator *models.Delegator) error
}

// Snapshot is a read-only view of staking chain state at a fixed height.
// Unknown ids are omitted from the results.
type Snapshot interface {
	CollatorData(ids []string) (map[string]types.Amount, error)
	NominatorData(ids []string) (map[string]types.Amount, error)
	Close()
}

// SnapshotSource opens chain state snapshots
type SnapshotSource interface {
	At(height uint64) (Snapshot, error)
}

// StakerData describes a staker to create. Nil fields take their defaults.
type StakerData struct {
	ActiveBond *types.Amount
	Commission *uint32
	StashID    string
	Role       string
}

func checkIDs(ids ...string) error {
	for _, id := range ids {
		if err := types.CheckID(id); err != nil {
			return err
		}
	}
	return nil
}

// dedupe returns ids with duplicates removed, keeping first occurrences in order
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	ret := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ret = append(ret, id)
	}
	return ret
}
