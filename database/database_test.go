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

package database_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/stakeidx/chainstate"
	"github.com/blinklabs-io/stakeidx/database"
	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/database/plugin"
	"github.com/blinklabs-io/stakeidx/database/plugin/blob/badger"
	"github.com/blinklabs-io/stakeidx/database/types"
	"github.com/blinklabs-io/stakeidx/staking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func bond(v uint64) *types.Amount {
	ret := types.NewAmount(v)
	return &ret
}

func TestTxnCommitsBothStores(t *testing.T) {
	db := newTestDatabase(t)
	chainState := chainstate.New(db.Blob(), nil)
	txn := db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := txn.EntityStore().InsertAccount(
			context.Background(),
			&models.Account{ID: "alice", LastUpdateBlock: 4},
		); err != nil {
			return err
		}
		txn.SetCommitHeight(5)
		return chainState.Apply(txn.Blob(), 5, chainstate.Update{
			Collators: map[string]*types.Amount{"alice": bond(10)},
		})
	})
	require.NoError(t, err)

	account, err := db.GetAccount("alice", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), account.LastUpdateBlock)
	height, ok, err := db.CommitHeight(nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), height)
	blobHeight, ok, err := db.Blob().GetCommitHeight()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), blobHeight)
	tip, _, err := chainState.Tip()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), tip)
}

func TestTxnRollbackDiscardsBothStores(t *testing.T) {
	db := newTestDatabase(t)
	chainState := chainstate.New(db.Blob(), nil)
	errBoom := errors.New("boom")
	txn := db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := txn.EntityStore().InsertAccount(
			context.Background(),
			&models.Account{ID: "bob"},
		); err != nil {
			return err
		}
		if err := chainState.Apply(txn.Blob(), 1, chainstate.Update{}); err != nil {
			return err
		}
		txn.SetCommitHeight(1)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	_, err = db.GetAccount("bob", nil)
	require.ErrorIs(t, err, models.ErrAccountNotFound)
	_, ok, err := chainState.Tip()
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = db.CommitHeight(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTxnFinished(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Commit())
	require.ErrorIs(t, txn.Commit(), types.ErrTxnFinished)
	// Release after commit is harmless
	txn.Release()
}

func TestResolverThroughEntityStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	chainState := chainstate.New(db.Blob(), nil)

	// Block 10 establishes chain state
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		txn.SetCommitHeight(10)
		return chainState.Apply(txn.Blob(), 10, chainstate.Update{
			Collators:  map[string]*types.Amount{"S2": bond(1000)},
			Delegators: map[string]*types.Amount{"S3": bond(500)},
		})
	}))

	// Block 11 resolves against the state at block 10
	txn = db.Transaction(true)
	var stakers []models.Staker
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		store := txn.EntityStore()
		resolver, err := staking.NewResolver(staking.ResolverConfig{
			Store:             store,
			Snapshots:         chainState.Snapshots(),
			Block:             staking.Block{Height: 11},
			DefaultCommission: 20,
		})
		if err != nil {
			return err
		}
		if _, err := resolver.CreateStaker(ctx, staking.StakerData{
			StashID: "S1",
			Role:    models.RoleDelegator,
		}); err != nil {
			return err
		}
		stakers, err = resolver.GetOrCreateStakers(ctx, []string{"S1", "S2", "S3", "S4", "S2"})
		if err != nil {
			return err
		}
		// Second lookup inside the same transaction creates nothing new
		again, err := resolver.GetOrCreateStakers(ctx, []string{"S2", "S3"})
		if err != nil {
			return err
		}
		if len(again) != 2 {
			return errors.New("expected existing stakers on second lookup")
		}
		txn.SetCommitHeight(11)
		return chainState.Apply(txn.Blob(), 11, chainstate.Update{})
	}))
	require.Len(t, stakers, 3)
	assert.Equal(t, "S1", stakers[0].ID)
	assert.Equal(t, models.RoleCollator, stakers[1].Role)
	assert.Equal(t, "1000", stakers[1].ActiveBond.String())
	assert.Equal(t, uint32(20), stakers[1].Commission)
	assert.Equal(t, models.RoleDelegator, stakers[2].Role)
	assert.Equal(t, "500", stakers[2].ActiveBond.String())

	stored, err := db.GetStakers([]string{"S1", "S2", "S3", "S4"}, nil)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	s2, err := db.GetStaker("S2", nil)
	require.NoError(t, err)
	require.NotNil(t, s2)
	assert.Equal(t, "S2", s2.Stash.ID)
	assert.Equal(t, uint64(10), s2.Stash.LastUpdateBlock)
	collator, err := db.Metadata().GetCollator("S2", nil)
	require.NoError(t, err)
	assert.NotNil(t, collator)
	delegator, err := db.Metadata().GetDelegator("S3", nil)
	require.NoError(t, err)
	assert.NotNil(t, delegator)
	_, err = db.GetAccount("S4", nil)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func TestCommitHeightMismatch(t *testing.T) {
	dataDir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		txn.SetCommitHeight(5)
		return nil
	}))
	require.NoError(t, db.Close())

	// Move the blob store ahead on its own
	blobStore, err := badger.New(badger.WithDataDir(dataDir), badger.WithGc(false))
	require.NoError(t, err)
	btxn := blobStore.NewTransaction(true)
	require.NoError(t, blobStore.SetCommitHeight(btxn, 6))
	require.NoError(t, btxn.Commit())
	require.NoError(t, blobStore.Close())

	db, err = database.New(&database.Config{DataDir: dataDir})
	var heightErr database.CommitHeightError
	require.ErrorAs(t, err, &heightErr)
	assert.Equal(t, uint64(5), heightErr.MetadataHeight)
	assert.Equal(t, uint64(6), heightErr.BlobHeight)
	require.NotNil(t, db)
	require.NoError(t, db.Close())
}

func TestUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{MetadataPlugin: "nosuchdb"})
	require.Error(t, err)
}

func TestPluginDataDirTakesPrecedence(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("STAKEIDX_METADATA_SQLITE_DATA_DIR", dataDir)
	require.NoError(t, plugin.ProcessEnvVars())
	t.Cleanup(plugin.ClearExplicitOptions)

	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Close())
	_, err = os.Stat(filepath.Join(dataDir, "metadata.sqlite"))
	require.NoError(t, err)
}
