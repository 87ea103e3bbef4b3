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

// Package chainstate keeps a height-indexed history of staking chain state
// (collator and delegator bonds) and serves read-only snapshots of it at past
// block heights.
package chainstate

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/blinklabs-io/stakeidx/database/plugin/blob"
	"github.com/blinklabs-io/stakeidx/database/types"
	badger "github.com/dgraph-io/badger/v4"
)

var (
	// ErrHeightUnavailable is returned for heights before the first recorded block
	ErrHeightUnavailable = errors.New("chain state not available at height")
	// ErrOutOfOrder is returned when applying an update below the current tip
	ErrOutOfOrder = errors.New("chain state update is older than tip")
)

// Update holds the staking chain state changes made by one block, keyed by
// account ID. A nil bond means the account left that role.
type Update struct {
	Collators  map[string]*types.Amount `json:"collators,omitempty"`
	Delegators map[string]*types.Amount `json:"delegators,omitempty"`
}

// Empty reports whether the update changes nothing
func (u Update) Empty() bool {
	return len(u.Collators) == 0 && len(u.Delegators) == 0
}

// check rejects ids that can't be stored
func (u Update) check() error {
	for _, role := range []map[string]*types.Amount{u.Collators, u.Delegators} {
		for id := range role {
			if err := types.CheckID(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Store reads and writes chain state history in the blob store
type Store struct {
	blob   blob.BlobStore
	logger *slog.Logger
}

func New(blobStore blob.BlobStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Store{
		blob:   blobStore,
		logger: logger,
	}
}

// Apply records the changes made by the block at height. Every processed
// block should be applied, even with an empty update, so the tip tracks the
// indexed height. Re-applying the tip height overwrites its entries.
func (s *Store) Apply(txn *badger.Txn, height uint64, update Update) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	tip, tipOk, err := getHeight(txn, types.ChainStateTipKey)
	if err != nil {
		return err
	}
	if tipOk && height < tip {
		return fmt.Errorf("%w: height %d, tip %d", ErrOutOfOrder, height, tip)
	}
	if err := update.check(); err != nil {
		return err
	}
	if _, floorOk, err := getHeight(txn, types.ChainStateFloorKey); err != nil {
		return err
	} else if !floorOk {
		if err := txn.Set([]byte(types.ChainStateFloorKey), types.HeightToBytes(height)); err != nil {
			return err
		}
	}
	if err := applyRole(txn, types.ChainStateCollatorMarker, height, update.Collators); err != nil {
		return err
	}
	if err := applyRole(txn, types.ChainStateDelegatorMarker, height, update.Delegators); err != nil {
		return err
	}
	if err := txn.Set([]byte(types.ChainStateTipKey), types.HeightToBytes(height)); err != nil {
		return err
	}
	if !update.Empty() {
		s.logger.Debug(
			"applied chain state update",
			"component", "chainstate",
			"height", height,
			"collators", len(update.Collators),
			"delegators", len(update.Delegators),
		)
	}
	return nil
}

func applyRole(
	txn *badger.Txn,
	marker string,
	height uint64,
	bonds map[string]*types.Amount,
) error {
	// Sorted keys keep badger writes deterministic
	for _, id := range slices.Sorted(maps.Keys(bonds)) {
		var val []byte
		if bond := bonds[id]; bond != nil {
			val = []byte(bond.String())
		}
		if err := txn.Set(types.ChainStateKey(marker, id, height), val); err != nil {
			return err
		}
	}
	return nil
}

// Tip returns the highest applied height and whether anything was applied
func (s *Store) Tip() (uint64, bool, error) {
	txn := s.blob.NewTransaction(false)
	defer txn.Discard()
	return getHeight(txn, types.ChainStateTipKey)
}

// At opens a read-only snapshot of chain state as of the end of the block at
// height. The snapshot must be closed when done. A store with no history
// yields empty snapshots.
func (s *Store) At(height uint64) (*Snapshot, error) {
	txn := s.blob.NewTransaction(false)
	floor, floorOk, err := getHeight(txn, types.ChainStateFloorKey)
	if err != nil {
		txn.Discard()
		return nil, err
	}
	if floorOk && height < floor {
		txn.Discard()
		return nil, fmt.Errorf(
			"%w: height %d is before first recorded height %d",
			ErrHeightUnavailable,
			height,
			floor,
		)
	}
	return &Snapshot{txn: txn, height: height}, nil
}

func getHeight(txn *badger.Txn, key string) (uint64, bool, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, false, err
	}
	return types.BytesToHeight(val), true, nil
}
