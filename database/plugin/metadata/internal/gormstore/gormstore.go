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

// Package gormstore holds the entity queries shared by the gorm-backed
// metadata plugins
package gormstore

import (
	"errors"
	"iter"
	"log/slog"

	"github.com/blinklabs-io/stakeidx/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BindVarLimit caps the number of values in a single IN clause. SQLite's
// default limit is 999 and the other engines are far above it.
const BindVarLimit = 900

// Store implements the metadata queries on top of a gorm handle. Every method
// takes an optional transaction handle and falls back to the base handle when
// it is nil.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// DB returns the underlying GORM database handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction creates a new database transaction.
func (s *Store) Transaction() *gorm.DB {
	return s.db.Begin()
}

// Migrate creates or updates the schema for all models
func (s *Store) Migrate() error {
	for _, model := range models.MigrateModels {
		s.logger.Debug(
			"migrating table",
			"component", "database",
			"model", model,
		)
		if err := s.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) conn(txn *gorm.DB) *gorm.DB {
	if txn == nil {
		return s.db
	}
	return txn
}

// GetAccount returns the account with the given ID, or nil if it doesn't exist
func (s *Store) GetAccount(id string, txn *gorm.DB) (*models.Account, error) {
	ret := &models.Account{}
	result := s.conn(txn).Where("id = ?", id).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetAccounts returns all accounts whose ID is in the given set
func (s *Store) GetAccounts(ids []string, txn *gorm.DB) ([]models.Account, error) {
	ret := []models.Account{}
	for idChunk := range chunks(ids) {
		var tmpAccounts []models.Account
		result := s.conn(txn).Where("id IN ?", idChunk).Find(&tmpAccounts)
		if result.Error != nil {
			return nil, result.Error
		}
		ret = append(ret, tmpAccounts...)
	}
	return ret, nil
}

// InsertAccount inserts a single new account
func (s *Store) InsertAccount(account *models.Account, txn *gorm.DB) error {
	return s.conn(txn).Create(account).Error
}

// SaveAccounts inserts or updates the given accounts in a single batch
func (s *Store) SaveAccounts(accounts []models.Account, txn *gorm.DB) error {
	if len(accounts) == 0 {
		return nil
	}
	result := s.conn(txn).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_update_block"}),
		}).
		CreateInBatches(accounts, BindVarLimit/2)
	return result.Error
}

// TouchAccounts bumps the last update block of the given accounts. It never
// moves the value backwards.
func (s *Store) TouchAccounts(ids []string, height uint64, txn *gorm.DB) error {
	for idChunk := range chunks(ids) {
		result := s.conn(txn).
			Model(&models.Account{}).
			Where("id IN ? AND last_update_block < ?", idChunk, height).
			Update("last_update_block", height)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// GetStaker returns the staker for the given stash ID with its account
// loaded, or nil if it doesn't exist
func (s *Store) GetStaker(id string, txn *gorm.DB) (*models.Staker, error) {
	ret := &models.Staker{}
	result := s.conn(txn).
		Preload("Stash").
		Where("stash_id = ?", id).
		First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetStakers returns all stakers whose stash ID is in the given set
func (s *Store) GetStakers(ids []string, txn *gorm.DB) ([]models.Staker, error) {
	ret := []models.Staker{}
	for idChunk := range chunks(ids) {
		var tmpStakers []models.Staker
		result := s.conn(txn).
			Preload("Stash").
			Where("stash_id IN ?", idChunk).
			Find(&tmpStakers)
		if result.Error != nil {
			return nil, result.Error
		}
		ret = append(ret, tmpStakers...)
	}
	return ret, nil
}

// SaveStaker inserts or updates a staker. The stash account is not written.
func (s *Store) SaveStaker(staker *models.Staker, txn *gorm.DB) error {
	return s.conn(txn).Omit(clause.Associations).Save(staker).Error
}

// SaveCollator records the collator marker for a staker
func (s *Store) SaveCollator(collator *models.Collator, txn *gorm.DB) error {
	return s.conn(txn).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(collator).
		Error
}

// SaveDelegator records the delegator marker for a staker
func (s *Store) SaveDelegator(delegator *models.Delegator, txn *gorm.DB) error {
	return s.conn(txn).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(delegator).
		Error
}

// GetCollator returns the collator marker for a staker, or nil
func (s *Store) GetCollator(id string, txn *gorm.DB) (*models.Collator, error) {
	ret := &models.Collator{}
	result := s.conn(txn).Where("id = ?", id).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetDelegator returns the delegator marker for a staker, or nil
func (s *Store) GetDelegator(id string, txn *gorm.DB) (*models.Delegator, error) {
	ret := &models.Delegator{}
	result := s.conn(txn).Where("id = ?", id).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// AddHistoryElement records a staking history element. Re-adding an element
// with the same ID is a no-op, so replaying a block is safe.
func (s *Store) AddHistoryElement(
	elem *models.HistoryElement,
	txn *gorm.DB,
) error {
	return s.conn(txn).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(elem).
		Error
}

// GetHistory returns the history of a staker in block order
func (s *Store) GetHistory(
	stakerID string,
	txn *gorm.DB,
) ([]models.HistoryElement, error) {
	var ret []models.HistoryElement
	result := s.conn(txn).
		Where("staker_id = ?", stakerID).
		Order("block_number ASC, id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetCursor returns the height of the last processed block and whether one
// has been recorded
func (s *Store) GetCursor(txn *gorm.DB) (uint64, bool, error) {
	ret := &models.Cursor{}
	result := s.conn(txn).Where("id = ?", 1).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, result.Error
	}
	return ret.Height, true, nil
}

// SetCursor records the height of the last processed block
func (s *Store) SetCursor(height uint64, txn *gorm.DB) error {
	tmpCursor := &models.Cursor{ID: 1, Height: height}
	return s.conn(txn).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"height"}),
		}).
		Create(tmpCursor).
		Error
}

// chunks splits ids so that no query exceeds the bind variable limit
func chunks(ids []string) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for start := 0; start < len(ids); start += BindVarLimit {
			end := min(start+BindVarLimit, len(ids))
			if !yield(ids[start:end]) {
				return
			}
		}
	}
}
