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

package badger_test

import (
	"testing"

	"github.com/blinklabs-io/stakeidx/database/plugin/blob/badger"
	"github.com/blinklabs-io/stakeidx/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitHeightInMemory(t *testing.T) {
	db, err := badger.New()
	require.NoError(t, err)
	defer db.Close()

	_, ok, err := db.GetCommitHeight()
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should have no commit height")

	txn := db.NewTransaction(true)
	require.NoError(t, db.SetCommitHeight(txn, 42))
	require.NoError(t, txn.Commit())

	height, ok, err := db.GetCommitHeight()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), height)
}

func TestSetCommitHeightNilTxn(t *testing.T) {
	db, err := badger.New()
	require.NoError(t, err)
	defer db.Close()
	assert.ErrorIs(t, db.SetCommitHeight(nil, 1), types.ErrNilTxn)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dataDir := t.TempDir()
	db, err := badger.New(
		badger.WithDataDir(dataDir),
		badger.WithBlockCacheSize(1<<20),
		badger.WithIndexCacheSize(1<<20),
		badger.WithPromRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	txn := db.NewTransaction(true)
	require.NoError(t, txn.Set([]byte("key"), []byte("value")))
	require.NoError(t, db.SetCommitHeight(txn, 7))
	require.NoError(t, txn.Commit())
	require.NoError(t, db.Close())
	// Closing twice is harmless
	require.NoError(t, db.Close())

	db, err = badger.New(badger.WithDataDir(dataDir), badger.WithGc(false))
	require.NoError(t, err)
	defer db.Close()
	height, ok, err := db.GetCommitHeight()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), height)
	rtxn := db.NewTransaction(false)
	defer rtxn.Discard()
	item, err := rtxn.Get([]byte("key"))
	require.NoError(t, err)
	val, err := item.ValueCopy(nil)
	require.NoError(t, err)
	assert.Equal(t, "value", string(val))
}
