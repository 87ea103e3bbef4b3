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

package chainstate

import (
	"fmt"

	"github.com/blinklabs-io/stakeidx/database/types"
	badger "github.com/dgraph-io/badger/v4"
)

// Snapshot is a read-only view of chain state at a fixed height
type Snapshot struct {
	txn    *badger.Txn
	height uint64
}

// Height returns the height the snapshot is bound to
func (s *Snapshot) Height() uint64 {
	return s.height
}

// CollatorData returns the collator bond of each id that is a collator at
// the snapshot height
func (s *Snapshot) CollatorData(ids []string) (map[string]types.Amount, error) {
	return s.lookup(types.ChainStateCollatorMarker, ids)
}

// NominatorData returns the delegator bond of each id that is a delegator
// at the snapshot height
func (s *Snapshot) NominatorData(ids []string) (map[string]types.Amount, error) {
	return s.lookup(types.ChainStateDelegatorMarker, ids)
}

// lookup finds the latest entry at or below the snapshot height for each id.
// An empty entry means the id left the role.
func (s *Snapshot) lookup(
	marker string,
	ids []string,
) (map[string]types.Amount, error) {
	ret := make(map[string]types.Amount, len(ids))
	if len(ids) == 0 {
		return ret, nil
	}
	it := s.txn.NewIterator(
		badger.IteratorOptions{
			Reverse: true,
			Prefix:  []byte(types.ChainStateKeyPrefix + marker),
		},
	)
	defer it.Close()
	for _, id := range ids {
		prefix := types.ChainStatePrefix(marker, id)
		it.Seek(types.ChainStateKey(marker, id, s.height))
		if !it.ValidForPrefix(prefix) {
			continue
		}
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		if len(val) == 0 {
			continue
		}
		bond, err := types.ParseAmount(string(val))
		if err != nil {
			return nil, fmt.Errorf("chain state entry for %s: %w", id, err)
		}
		ret[id] = bond
	}
	return ret, nil
}

// Close releases the snapshot
func (s *Snapshot) Close() {
	s.txn.Discard()
}
