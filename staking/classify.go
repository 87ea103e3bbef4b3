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

package staking

import (
	"fmt"

	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/database/types"
)

// Classification is the staking role an id holds in chain state, with its bond
type Classification struct {
	Bond types.Amount
	Role string
}

// classify looks up the role of each id in the snapshot. Collator data takes
// precedence: only ids without collator data are looked up as delegators, so
// every id gets at most one role. Ids in neither role are omitted.
func classify(
	snapshot Snapshot,
	ids []string,
	metrics *Metrics,
) (map[string]Classification, error) {
	ret := make(map[string]Classification, len(ids))
	if len(ids) == 0 {
		return ret, nil
	}
	metrics.snapshotQuery(models.RoleCollator, len(ids))
	collators, err := snapshot.CollatorData(ids)
	if err != nil {
		return nil, fmt.Errorf("%w: collator data: %w", ErrSnapshotUnavailable, err)
	}
	remaining := make([]string, 0, len(ids))
	for _, id := range ids {
		if bond, ok := collators[id]; ok {
			ret[id] = Classification{Role: models.RoleCollator, Bond: bond}
			continue
		}
		remaining = append(remaining, id)
	}
	if len(remaining) == 0 {
		return ret, nil
	}
	metrics.snapshotQuery(models.RoleDelegator, len(remaining))
	delegators, err := snapshot.NominatorData(remaining)
	if err != nil {
		return nil, fmt.Errorf("%w: delegator data: %w", ErrSnapshotUnavailable, err)
	}
	for _, id := range remaining {
		if bond, ok := delegators[id]; ok {
			ret[id] = Classification{Role: models.RoleDelegator, Bond: bond}
		}
	}
	return ret, nil
}
