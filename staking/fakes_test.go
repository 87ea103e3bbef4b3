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

package staking_test

import (
	"context"
	"maps"
	"slices"

	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/database/types"
	"github.com/blinklabs-io/stakeidx/staking"
)

// memStore is an in-memory entity store that counts its calls
type memStore struct {
	accounts   map[string]models.Account
	stakers    map[string]models.Staker
	collators  map[string]models.Collator
	delegators map[string]models.Delegator
	failWith   error

	accountInserts   int
	accountSaves     int
	accountsWritten  int
	accountBatchGets int
	stakerSaves      int
}

func newMemStore() *memStore {
	return &memStore{
		accounts:   map[string]models.Account{},
		stakers:    map[string]models.Staker{},
		collators:  map[string]models.Collator{},
		delegators: map[string]models.Delegator{},
	}
}

func (s *memStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	account, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

func (s *memStore) GetAccounts(_ context.Context, ids []string) ([]models.Account, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.accountBatchGets++
	var ret []models.Account
	for _, id := range ids {
		if account, ok := s.accounts[id]; ok {
			ret = append(ret, account)
		}
	}
	return ret, nil
}

func (s *memStore) InsertAccount(_ context.Context, account *models.Account) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.accountInserts++
	s.accountsWritten++
	s.accounts[account.ID] = *account
	return nil
}

func (s *memStore) SaveAccounts(_ context.Context, accounts []models.Account) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.accountSaves++
	for _, account := range accounts {
		s.accountsWritten++
		s.accounts[account.ID] = account
	}
	return nil
}

func (s *memStore) GetStaker(_ context.Context, id string) (*models.Staker, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	staker, ok := s.stakers[id]
	if !ok {
		return nil, nil
	}
	staker.Stash = s.accounts[staker.StashID]
	return &staker, nil
}

func (s *memStore) GetStakers(_ context.Context, ids []string) ([]models.Staker, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var ret []models.Staker
	// Return in reverse map order to make sure callers don't rely on store order
	for _, id := range slices.Backward(slices.Sorted(maps.Keys(s.stakers))) {
		if !slices.Contains(ids, id) {
			continue
		}
		staker := s.stakers[id]
		staker.Stash = s.accounts[staker.StashID]
		ret = append(ret, staker)
	}
	return ret, nil
}

func (s *memStore) SaveStaker(_ context.Context, staker *models.Staker) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.stakerSaves++
	s.stakers[staker.ID] = *staker
	return nil
}

func (s *memStore) SaveCollator(_ context.Context, collator *models.Collator) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.collators[collator.ID] = *collator
	return nil
}

func (s *memStore) SaveDelegator(_ context.Context, delegator *models.Delegator) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.delegators[delegator.ID] = *delegator
	return nil
}

// memChainState serves fixed collator and delegator bonds and records the
// ids it is asked about
type memChainState struct {
	collators       map[string]types.Amount
	delegators      map[string]types.Amount
	openErr         error
	queryErr        error
	heights         []uint64
	collatorQueries [][]string
	nominatorQuery  [][]string
	open            int
}

func newMemChainState() *memChainState {
	return &memChainState{
		collators:  map[string]types.Amount{},
		delegators: map[string]types.Amount{},
	}
}

func (c *memChainState) At(height uint64) (staking.Snapshot, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	c.heights = append(c.heights, height)
	c.open++
	return &memSnapshot{state: c}, nil
}

func (c *memChainState) queriedIDs() []string {
	var ret []string
	for _, q := range c.collatorQueries {
		ret = append(ret, q...)
	}
	for _, q := range c.nominatorQuery {
		ret = append(ret, q...)
	}
	return ret
}

type memSnapshot struct {
	state  *memChainState
	closed bool
}

func (s *memSnapshot) CollatorData(ids []string) (map[string]types.Amount, error) {
	s.state.collatorQueries = append(s.state.collatorQueries, slices.Clone(ids))
	return s.lookup(s.state.collators, ids)
}

func (s *memSnapshot) NominatorData(ids []string) (map[string]types.Amount, error) {
	s.state.nominatorQuery = append(s.state.nominatorQuery, slices.Clone(ids))
	return s.lookup(s.state.delegators, ids)
}

func (s *memSnapshot) lookup(
	src map[string]types.Amount,
	ids []string,
) (map[string]types.Amount, error) {
	if s.state.queryErr != nil {
		return nil, s.state.queryErr
	}
	ret := map[string]types.Amount{}
	for _, id := range ids {
		if bond, ok := src[id]; ok {
			ret[id] = bond
		}
	}
	return ret, nil
}

func (s *memSnapshot) Close() {
	if !s.closed {
		s.closed = true
		s.state.open--
	}
}
