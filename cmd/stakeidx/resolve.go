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
	"encoding/json"
	"log/slog"
	"os"

	"github.com/blinklabs-io/stakeidx/internal/node"
	"github.com/spf13/cobra"
)

func resolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <account-id>...",
		Short: "Get or create the stakers for accounts at the last processed block",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configFromCommand(cmd)
			logger := commonRun()
			stakers, err := node.Resolve(cmd.Context(), cfg, logger, args)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(stakers); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	return cmd
}
