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
	"github.com/blinklabs-io/stakeidx/database/models"
)

// GetStaker returns the staker with the given stash ID, or nil
func (d *Database) GetStaker(id string, txn *Txn) (*models.Staker, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	return d.metadata.GetStaker(id, txn.Metadata())
}

// GetStakers returns the stakers with the given stash IDs that exist
func (d *Database) GetStakers(ids []string, txn *Txn) ([]models.Staker, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	return d.metadata.GetStakers(ids, txn.Metadata())
}

// GetAccount returns the account with the given ID, or
// models.ErrAccountNotFound
func (d *Database) GetAccount(id string, txn *Txn) (*models.Account, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	account, err := d.metadata.GetAccount(id, txn.Metadata())
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, models.ErrAccountNotFound
	}
	return account, nil
}

// GetHistory returns the recorded staking history of a staker
func (d *Database) GetHistory(
	stakerID string,
	txn *Txn,
) ([]models.HistoryElement, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	return d.metadata.GetHistory(stakerID, txn.Metadata())
}
