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

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/blinklabs-io/stakeidx/internal/config"
	"github.com/blinklabs-io/stakeidx/internal/node"
	"github.com/spf13/cobra"
)

func loadRun(ctx context.Context, args []string, cfg *config.Config) {
	var blockFile string

	// CLI argument takes priority over config
	if len(args) >= 1 {
		blockFile = args[0]
	} else if cfg.BlockFile != "" {
		blockFile = cfg.BlockFile
	} else {
		slog.Error(
			"path to block feed required (via argument or blockFile config)",
		)
		os.Exit(1)
	}

	logger := commonRun()
	if err := node.Load(ctx, cfg, logger, blockFile); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func loadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [block-file]",
		Short: "Load a JSON lines block feed (path via arg or blockFile config)",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			loadRun(cmd.Context(), args, configFromCommand(cmd))
		},
	}
	return cmd
}
