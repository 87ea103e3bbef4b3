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

package chainstate_test

import (
	"strings"
	"testing"

	"github.com/blinklabs-io/stakeidx/chainstate"
	"github.com/blinklabs-io/stakeidx/database/plugin/blob/badger"
	"github.com/blinklabs-io/stakeidx/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*chainstate.Store, *badger.BlobStoreBadger) {
	t.Helper()
	blobStore, err := badger.New()
	require.NoError(t, err)
	t.Cleanup(func() { blobStore.Close() })
	return chainstate.New(blobStore, nil), blobStore
}

func bond(v uint64) *types.Amount {
	ret := types.NewAmount(v)
	return &ret
}

func apply(
	t *testing.T,
	store *chainstate.Store,
	blobStore *badger.BlobStoreBadger,
	height uint64,
	update chainstate.Update,
) {
	t.Helper()
	txn := blobStore.NewTransaction(true)
	defer txn.Discard()
	require.NoError(t, store.Apply(txn, height, update))
	require.NoError(t, txn.Commit())
}

func TestSnapshotHistory(t *testing.T) {
	store, blobStore := newTestStore(t)
	apply(t, store, blobStore, 10, chainstate.Update{
		Collators:  map[string]*types.Amount{"alice": bond(1000)},
		Delegators: map[string]*types.Amount{"bob": bond(50)},
	})
	apply(t, store, blobStore, 11, chainstate.Update{})
	apply(t, store, blobStore, 12, chainstate.Update{
		Collators:  map[string]*types.Amount{"alice": bond(1500)},
		Delegators: map[string]*types.Amount{"bob": nil, "carol": bond(70)},
	})

	tip, ok, err := store.Tip()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(12), tip)

	testDefs := []struct {
		height     uint64
		collators  map[string]string
		delegators map[string]string
	}{
		{
			height:     10,
			collators:  map[string]string{"alice": "1000"},
			delegators: map[string]string{"bob": "50"},
		},
		{
			height:     11,
			collators:  map[string]string{"alice": "1000"},
			delegators: map[string]string{"bob": "50"},
		},
		{
			height:     12,
			collators:  map[string]string{"alice": "1500"},
			delegators: map[string]string{"carol": "70"},
		},
		{
			// Heights past the tip see the latest state
			height:     20,
			collators:  map[string]string{"alice": "1500"},
			delegators: map[string]string{"carol": "70"},
		},
	}
	ids := []string{"alice", "bob", "carol", "unknown"}
	for _, testDef := range testDefs {
		snapshot, err := store.At(testDef.height)
		require.NoError(t, err)
		assert.Equal(t, testDef.height, snapshot.Height())
		collators, err := snapshot.CollatorData(ids)
		require.NoError(t, err)
		delegators, err := snapshot.NominatorData(ids)
		require.NoError(t, err)
		snapshot.Close()
		assert.Equal(t, testDef.collators, amountStrings(collators), "collators at %d", testDef.height)
		assert.Equal(t, testDef.delegators, amountStrings(delegators), "delegators at %d", testDef.height)
	}
}

func amountStrings(in map[string]types.Amount) map[string]string {
	ret := make(map[string]string, len(in))
	for k, v := range in {
		ret[k] = v.String()
	}
	return ret
}

func TestSnapshotBeforeFloor(t *testing.T) {
	store, blobStore := newTestStore(t)
	apply(t, store, blobStore, 100, chainstate.Update{
		Collators: map[string]*types.Amount{"alice": bond(1)},
	})
	_, err := store.At(99)
	require.ErrorIs(t, err, chainstate.ErrHeightUnavailable)
}

func TestSnapshotEmptyStore(t *testing.T) {
	store, _ := newTestStore(t)
	snapshot, err := store.At(5)
	require.NoError(t, err)
	defer snapshot.Close()
	collators, err := snapshot.CollatorData([]string{"alice"})
	require.NoError(t, err)
	assert.Empty(t, collators)
	_, ok, err := store.Tip()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyOutOfOrder(t *testing.T) {
	store, blobStore := newTestStore(t)
	apply(t, store, blobStore, 5, chainstate.Update{})
	txn := blobStore.NewTransaction(true)
	defer txn.Discard()
	require.ErrorIs(t, store.Apply(txn, 4, chainstate.Update{}), chainstate.ErrOutOfOrder)
	// Re-applying the tip is allowed
	require.NoError(t, store.Apply(txn, 5, chainstate.Update{}))
	require.ErrorIs(t, store.Apply(nil, 6, chainstate.Update{}), types.ErrNilTxn)
}

func TestSnapshotIgnoresLaterCommits(t *testing.T) {
	store, blobStore := newTestStore(t)
	apply(t, store, blobStore, 1, chainstate.Update{
		Delegators: map[string]*types.Amount{"dave": bond(3)},
	})
	snapshot, err := store.At(1)
	require.NoError(t, err)
	defer snapshot.Close()
	apply(t, store, blobStore, 1, chainstate.Update{
		Delegators: map[string]*types.Amount{"dave": bond(4)},
	})
	delegators, err := snapshot.NominatorData([]string{"dave"})
	require.NoError(t, err)
	assert.Equal(t, "3", delegators["dave"].String())
}

func TestSimilarIDsDoNotCollide(t *testing.T) {
	store, blobStore := newTestStore(t)
	apply(t, store, blobStore, 1, chainstate.Update{
		Collators: map[string]*types.Amount{"ab": bond(1), "abc": bond(2)},
	})
	snapshot, err := store.At(1)
	require.NoError(t, err)
	defer snapshot.Close()
	collators, err := snapshot.CollatorData([]string{"a", "ab", "abc", "abcd"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ab": "1", "abc": "2"}, amountStrings(collators))
}

func TestSnapshotSourceErrors(t *testing.T) {
	store, blobStore := newTestStore(t)
	apply(t, store, blobStore, 10, chainstate.Update{})
	snapshot, err := store.Snapshots().At(9)
	require.ErrorIs(t, err, chainstate.ErrHeightUnavailable)
	assert.Nil(t, snapshot)
	snapshot, err = store.Snapshots().At(10)
	require.NoError(t, err)
	snapshot.Close()
}

func TestApplyRejectsOversizedID(t *testing.T) {
	store, blobStore := newTestStore(t)
	long := strings.Repeat("d", types.MaxIDLength+1)
	txn := blobStore.NewTransaction(true)
	defer txn.Discard()
	err := store.Apply(txn, 3, chainstate.Update{
		Delegators: map[string]*types.Amount{long: bond(5)},
	})
	require.ErrorIs(t, err, types.ErrInvalidID)
	require.NoError(t, store.Apply(txn, 3, chainstate.Update{
		Delegators: map[string]*types.Amount{long[:types.MaxIDLength]: bond(5)},
	}))
}
