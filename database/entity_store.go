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

package database

import (
	"context"

	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/staking"
	"gorm.io/gorm"
)

var _ staking.Store = (*EntityStore)(nil)

// EntityStore exposes the entity records of an open transaction. Every call
// runs inside the transaction, so the caller's commit or rollback covers all
// writes made through it.
type EntityStore struct {
	txn *Txn
}

// EntityStore returns an entity store bound to the transaction
func (t *Txn) EntityStore() *EntityStore {
	return &EntityStore{txn: t}
}

func (s *EntityStore) conn(ctx context.Context) *gorm.DB {
	if tx := s.txn.Metadata(); tx != nil {
		return tx.WithContext(ctx)
	}
	return nil
}

func (s *EntityStore) GetAccount(
	ctx context.Context,
	id string,
) (*models.Account, error) {
	return s.txn.db.Metadata().GetAccount(id, s.conn(ctx))
}

func (s *EntityStore) GetAccounts(
	ctx context.Context,
	ids []string,
) ([]models.Account, error) {
	return s.txn.db.Metadata().GetAccounts(ids, s.conn(ctx))
}

func (s *EntityStore) InsertAccount(
	ctx context.Context,
	account *models.Account,
) error {
	return s.txn.db.Metadata().InsertAccount(account, s.conn(ctx))
}

func (s *EntityStore) SaveAccounts(
	ctx context.Context,
	accounts []models.Account,
) error {
	return s.txn.db.Metadata().SaveAccounts(accounts, s.conn(ctx))
}

// TouchAccounts raises the last update block of the given accounts to height
func (s *EntityStore) TouchAccounts(
	ctx context.Context,
	ids []string,
	height uint64,
) error {
	return s.txn.db.Metadata().TouchAccounts(ids, height, s.conn(ctx))
}

func (s *EntityStore) GetStaker(
	ctx context.Context,
	id string,
) (*models.Staker, error) {
	return s.txn.db.Metadata().GetStaker(id, s.conn(ctx))
}

func (s *EntityStore) GetStakers(
	ctx context.Context,
	ids []string,
) ([]models.Staker, error) {
	return s.txn.db.Metadata().GetStakers(ids, s.conn(ctx))
}

func (s *EntityStore) SaveStaker(
	ctx context.Context,
	staker *models.Staker,
) error {
	return s.txn.db.Metadata().SaveStaker(staker, s.conn(ctx))
}

func (s *EntityStore) SaveCollator(
	ctx context.Context,
	collator *models.Collator,
) error {
	return s.txn.db.Metadata().SaveCollator(collator, s.conn(ctx))
}

func (s *EntityStore) SaveDelegator(
	ctx context.Context,
	delegator *models.Delegator,
) error {
	return s.txn.db.Metadata().SaveDelegator(delegator, s.conn(ctx))
}

func (s *EntityStore) AddHistoryElement(
	ctx context.Context,
	elem *models.HistoryElement,
) error {
	return s.txn.db.Metadata().AddHistoryElement(elem, s.conn(ctx))
}
