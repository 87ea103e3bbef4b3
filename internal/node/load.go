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

package node

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/blinklabs-io/stakeidx"
	"github.com/blinklabs-io/stakeidx/database/models"
	"github.com/blinklabs-io/stakeidx/internal/config"
)

// Load processes a JSON lines block feed into the configured database
func Load(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	blockFile string,
) error {
	idx, err := NewIndexer(cfg, logger, nil)
	if err != nil {
		return err
	}
	if err := idx.Start(); err != nil {
		return err
	}
	loadErr := loadFile(ctx, idx, logger, blockFile)
	if err := idx.Stop(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return loadErr
}

func loadFile(
	ctx context.Context,
	idx *stakeidx.Indexer,
	logger *slog.Logger,
	blockFile string,
) error {
	f, err := os.Open(blockFile)
	if err != nil {
		return fmt.Errorf("failed to open block file: %w", err)
	}
	defer f.Close()
	cursor, ok, err := idx.Cursor()
	if err != nil {
		return err
	}
	if ok {
		logger.Info(
			fmt.Sprintf("resuming load after block %d", cursor),
			"component", "node",
		)
	}
	count, err := idx.Load(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to load blocks after reading %d: %w", count, err)
	}
	logger.Info(
		fmt.Sprintf("finished loading %d blocks from %s", count, blockFile),
		"component", "node",
	)
	return nil
}

// Resolve gets or creates the stakers for ids at the stored cursor
func Resolve(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	ids []string,
) ([]models.Staker, error) {
	idx, err := NewIndexer(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	if err := idx.Start(); err != nil {
		return nil, err
	}
	stakers, resolveErr := idx.Resolve(ctx, ids)
	if err := idx.Stop(); err != nil {
		return nil, fmt.Errorf("shutdown: %w", err)
	}
	return stakers, resolveErr
}
