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

package badger

import (
	"errors"

	"github.com/blinklabs-io/stakeidx/database/types"
	badger "github.com/dgraph-io/badger/v4"
)

const commitHeightBlobKey = "metadata_commit_height"

// GetCommitHeight returns the block height recorded by the last coordinated
// commit. The boolean is false when nothing has been committed yet.
func (b *BlobStoreBadger) GetCommitHeight() (uint64, bool, error) {
	txn := b.NewTransaction(false)
	defer txn.Discard()
	item, err := txn.Get([]byte(commitHeightBlobKey))
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

func (b *BlobStoreBadger) SetCommitHeight(txn *badger.Txn, height uint64) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	return txn.Set(
		[]byte(commitHeightBlobKey),
		types.HeightToBytes(height),
	)
}
