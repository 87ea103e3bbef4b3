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

package plugin

import (
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger and metrics registry handed to plugins that are built from
// command line options
var (
	envMutex        sync.RWMutex
	envLogger       *slog.Logger
	envPromRegistry prometheus.Registerer
)

// SetLogger sets the logger used by plugins created after the call
func SetLogger(logger *slog.Logger) {
	envMutex.Lock()
	defer envMutex.Unlock()
	envLogger = logger
}

// Logger returns the configured plugin logger, or one that discards output
func Logger() *slog.Logger {
	envMutex.RLock()
	defer envMutex.RUnlock()
	if envLogger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return envLogger
}

// SetPromRegistry sets the registry used by plugins created after the call
func SetPromRegistry(registry prometheus.Registerer) {
	envMutex.Lock()
	defer envMutex.Unlock()
	envPromRegistry = registry
}

// PromRegistry returns the configured registry, which may be nil
func PromRegistry() prometheus.Registerer {
	envMutex.RLock()
	defer envMutex.RUnlock()
	return envPromRegistry
}
