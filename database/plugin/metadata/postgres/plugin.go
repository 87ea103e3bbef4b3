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

package postgres

import (
	"sync"

	"github.com/blinklabs-io/stakeidx/database/plugin"
)

const (
	defaultHost     = "localhost"
	defaultPort     = 5432
	defaultUser     = "stakeidx"
	defaultDatabase = "stakeidx"
	defaultSSLMode  = "disable"
	defaultTimeZone = "UTC"
)

var (
	cmdlineOptions struct {
		host     string
		port     uint64
		user     string
		password string
		database string
		sslMode  string
		timeZone string
		dsn      string
	}
	cmdlineOptionsMutex sync.RWMutex
)

// Register plugin
func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "postgres",
			Description:        "Postgres relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				stringOption("host", "Postgres host", defaultHost, &cmdlineOptions.host),
				{
					Name:         "port",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Postgres port",
					DefaultValue: uint64(defaultPort),
					Dest:         &(cmdlineOptions.port),
				},
				stringOption("user", "Postgres user", defaultUser, &cmdlineOptions.user),
				// Password is intentionally empty, users must provide their own credentials
				stringOption("password", "Postgres password", "", &cmdlineOptions.password),
				stringOption("database", "Postgres database name", defaultDatabase, &cmdlineOptions.database),
				stringOption("ssl-mode", "Postgres sslmode", defaultSSLMode, &cmdlineOptions.sslMode),
				stringOption("timezone", "Postgres TimeZone", defaultTimeZone, &cmdlineOptions.timeZone),
				stringOption("dsn", "Full Postgres DSN (overrides other options when set)", "", &cmdlineOptions.dsn),
			},
		},
	)
}

func stringOption(name, description, defaultValue string, dest *string) plugin.PluginOption {
	*dest = defaultValue
	return plugin.PluginOption{
		Name:         name,
		Type:         plugin.PluginOptionTypeString,
		Description:  description,
		DefaultValue: defaultValue,
		Dest:         dest,
	}
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []PostgresOptionFunc{
		WithHost(cmdlineOptions.host),
		WithPort(uint(cmdlineOptions.port)),
		WithUser(cmdlineOptions.user),
		WithPassword(cmdlineOptions.password),
		WithDatabase(cmdlineOptions.database),
		WithSSLMode(cmdlineOptions.sslMode),
		WithTimeZone(cmdlineOptions.timeZone),
		WithDSN(cmdlineOptions.dsn),
		WithLogger(plugin.Logger()),
	}
	cmdlineOptionsMutex.RUnlock()
	p, err := NewWithOptions(opts...)
	if err != nil {
		// Return a plugin that defers the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
