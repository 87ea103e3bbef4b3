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
	"github.com/blinklabs-io/stakeidx/staking"
)

type snapshotSource struct {
	store *Store
}

// Snapshots returns the store as a snapshot source for staking resolution
func (s *Store) Snapshots() staking.SnapshotSource {
	return snapshotSource{store: s}
}

func (s snapshotSource) At(height uint64) (staking.Snapshot, error) {
	snapshot, err := s.store.At(height)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
