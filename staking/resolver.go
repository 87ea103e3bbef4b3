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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/database/types"
)

// DefaultCommission is the commission given to new collators when none is
// configured
const DefaultCommission uint32 = 20

type ResolverConfig struct {
	Store     Store
	Snapshots SnapshotSource
	Logger    *slog.Logger
	Metrics   *Metrics
	Block     Block
	// Called for every staker created by the resolver
	StakerCreatedFunc func(models.Staker)
	// Commission assigned to new collators that don't specify one
	DefaultCommission uint32
}

// Resolver gets or creates the account and staker records for one block. It
// is not safe for concurrent use, and all of its writes are expected to run
// inside a single transaction owned by the caller.
type Resolver struct {
	config ResolverConfig
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Store == nil {
		return nil, errors.New("no entity store provided")
	}
	if cfg.Snapshots == nil {
		return nil, errors.New("no chain state snapshot source provided")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Resolver{config: cfg}, nil
}

// Block returns the block the resolver stamps new records with
func (r *Resolver) Block() Block {
	return r.config.Block
}

// lastUpdateBlock is the height new accounts are stamped with
func (r *Resolver) lastUpdateBlock() uint64 {
	return r.config.Block.SnapshotHeight()
}

// GetOrCreateAccount returns the account with the given id, creating it if
// it doesn't exist yet
func (r *Resolver) GetOrCreateAccount(
	ctx context.Context,
	id string,
) (*models.Account, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	account, err := r.config.Store.GetAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get account %s: %w", ErrStoreUnavailable, id, err)
	}
	if account != nil {
		return account, nil
	}
	account = &models.Account{
		ID:              id,
		LastUpdateBlock: r.lastUpdateBlock(),
	}
	if err := r.config.Store.InsertAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: insert account %s: %w", ErrStoreUnavailable, id, err)
	}
	r.config.Metrics.accountCreated(1)
	return account, nil
}

// GetOrCreateAccounts returns the accounts for all given ids, creating the
// missing ones in a single batch. Duplicate ids yield a single account.
// Existing accounts come first in request order, followed by the new ones.
func (r *Resolver) GetOrCreateAccounts(
	ctx context.Context,
	ids []string,
) ([]models.Account, error) {
	if err := checkIDs(ids...); err != nil {
		return nil, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []models.Account{}, nil
	}
	existing, err := r.config.Store.GetAccounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: get accounts: %w", ErrStoreUnavailable, err)
	}
	found := make(map[string]models.Account, len(existing))
	for _, account := range existing {
		found[account.ID] = account
	}
	ret := make([]models.Account, 0, len(ids))
	var created []models.Account
	for _, id := range ids {
		if account, ok := found[id]; ok {
			ret = append(ret, account)
			continue
		}
		created = append(
			created,
			models.Account{
				ID:              id,
				LastUpdateBlock: r.lastUpdateBlock(),
			},
		)
	}
	if len(created) > 0 {
		if err := r.config.Store.SaveAccounts(ctx, created); err != nil {
			return nil, fmt.Errorf("%w: save accounts: %w", ErrStoreUnavailable, err)
		}
		r.config.Metrics.accountCreated(len(created))
	}
	return append(ret, created...), nil
}

// GetOrCreateStaker returns the staker for id. A missing staker is created
// from chain state at the previous block. It returns nil when id holds no
// staking role.
func (r *Resolver) GetOrCreateStaker(
	ctx context.Context,
	id string,
) (*models.Staker, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	staker, err := r.config.Store.GetStaker(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get staker %s: %w", ErrStoreUnavailable, id, err)
	}
	if staker != nil {
		return staker, nil
	}
	classes, err := r.classify([]string{id})
	if err != nil {
		return nil, err
	}
	class, ok := classes[id]
	if !ok {
		return nil, nil
	}
	return r.CreateStaker(
		ctx,
		StakerData{
			StashID:    id,
			ActiveBond: &class.Bond,
			Role:       class.Role,
		},
	)
}

// GetOrCreateStakers returns the stakers for all given ids, creating the
// missing ones from a single chain state snapshot at the previous block.
// Existing stakers come first in request order, followed by the new ones. Ids
// that hold no staking role are left out.
func (r *Resolver) GetOrCreateStakers(
	ctx context.Context,
	ids []string,
) ([]models.Staker, error) {
	if err := checkIDs(ids...); err != nil {
		return nil, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return []models.Staker{}, nil
	}
	existing, err := r.config.Store.GetStakers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: get stakers: %w", ErrStoreUnavailable, err)
	}
	found := make(map[string]models.Staker, len(existing))
	for _, staker := range existing {
		found[staker.ID] = staker
	}
	ret := make([]models.Staker, 0, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if staker, ok := found[id]; ok {
			ret = append(ret, staker)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return ret, nil
	}
	classes, err := r.classify(missing)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return ret, nil
	}
	classified := make([]string, 0, len(classes))
	for _, id := range missing {
		if _, ok := classes[id]; ok {
			classified = append(classified, id)
		}
	}
	accounts, err := r.GetOrCreateAccounts(ctx, classified)
	if err != nil {
		return nil, err
	}
	accountsByID := make(map[string]*models.Account, len(accounts))
	for i := range accounts {
		accountsByID[accounts[i].ID] = &accounts[i]
	}
	// One pending record per id
	created := make(map[string]*models.Staker, len(classified))
	for _, id := range classified {
		if _, ok := created[id]; ok {
			continue
		}
		class := classes[id]
		staker, err := r.createStaker(
			ctx,
			StakerData{
				StashID:    id,
				ActiveBond: &class.Bond,
				Role:       class.Role,
			},
			accountsByID[id],
		)
		if err != nil {
			return nil, err
		}
		created[id] = staker
	}
	for _, id := range classified {
		ret = append(ret, *created[id])
	}
	return ret, nil
}

// CreateStaker creates a staker, its stash account if needed, and the role
// record matching its role
func (r *Resolver) CreateStaker(
	ctx context.Context,
	data StakerData,
) (*models.Staker, error) {
	if !models.ValidRole(data.Role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, data.Role)
	}
	if err := checkIDs(data.StashID); err != nil {
		return nil, err
	}
	account, err := r.GetOrCreateAccount(ctx, data.StashID)
	if err != nil {
		return nil, err
	}
	return r.createStaker(ctx, data, account)
}

func (r *Resolver) createStaker(
	ctx context.Context,
	data StakerData,
	account *models.Account,
) (*models.Staker, error) {
	if account == nil {
		return nil, fmt.Errorf("no stash account for staker %s", data.StashID)
	}
	staker := &models.Staker{
		ID:          data.StashID,
		StashID:     data.StashID,
		Stash:       *account,
		Role:        data.Role,
		ActiveBond:  types.NewAmount(0),
		TotalReward: types.NewAmount(0),
	}
	if data.ActiveBond != nil {
		staker.ActiveBond = types.Amount{Int: data.ActiveBond.Big()}
	}
	switch {
	case data.Commission != nil:
		staker.Commission = *data.Commission
	case data.Role == models.RoleCollator:
		staker.Commission = r.config.DefaultCommission
	}
	if err := r.config.Store.SaveStaker(ctx, staker); err != nil {
		return nil, fmt.Errorf("%w: save staker %s: %w", ErrStoreUnavailable, staker.ID, err)
	}
	var err error
	switch data.Role {
	case models.RoleCollator:
		err = r.config.Store.SaveCollator(ctx, &models.Collator{ID: staker.ID})
	case models.RoleDelegator:
		err = r.config.Store.SaveDelegator(ctx, &models.Delegator{ID: staker.ID})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: save %s %s: %w", ErrStoreUnavailable, data.Role, staker.ID, err)
	}
	r.config.Metrics.stakerCreated(data.Role)
	if r.config.StakerCreatedFunc != nil {
		r.config.StakerCreatedFunc(*staker)
	}
	r.config.Logger.Debug(
		"created staker",
		"component", "staking",
		"id", staker.ID,
		"role", staker.Role,
		"bond", staker.ActiveBond.String(),
		"commission", staker.Commission,
		"block", r.config.Block.Height,
	)
	return staker, nil
}

// classify opens one snapshot at the previous block and classifies ids in it
func (r *Resolver) classify(ids []string) (map[string]Classification, error) {
	height := r.config.Block.SnapshotHeight()
	snapshot, err := r.config.Snapshots.At(height)
	if err != nil {
		return nil, fmt.Errorf("%w: height %d: %w", ErrSnapshotUnavailable, height, err)
	}
	defer snapshot.Close()
	return classify(snapshot, ids, r.config.Metrics)
}
