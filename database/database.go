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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/stakeidx/database/plugin"
	"github.com/blinklabs-io/stakeidx/database/plugin/blob"
	"github.com/blinklabs-io/stakeidx/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"

	// Register the bundled storage plugins
	_ "github.com/blinklabs-io/stakeidx/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/stakeidx/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/stakeidx/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/stakeidx/database/plugin/metadata/sqlite"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// ErrStorageUnavailable wraps failures to reach either underlying store
var ErrStorageUnavailable = errors.New("storage unavailable")

type Config struct {
	PromRegistry   prometheus.Registerer
	Logger         *slog.Logger
	BlobPlugin     string
	MetadataPlugin string
	// Data directory for the storage plugins. Both stores run in memory when
	// this is empty. A plugin data-dir option set by flag, environment or
	// config file takes precedence.
	DataDir string
}

// Database pairs the relational metadata store, which holds the entity
// records, with the blob store, which holds chain-state history
type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return d.checkCommitHeight()
}

// setDataDir passes Config.DataDir to a plugin unless its data-dir option was
// set on the command line, in the environment or in a config file
func setDataDir(cfg *Config, pluginType plugin.PluginType, name string) error {
	if plugin.OptionExplicit(pluginType, name, "data-dir") {
		if cfg.Logger != nil {
			cfg.Logger.Debug(
				"keeping plugin data-dir",
				"component", "database",
				"plugin", plugin.PluginTypeName(pluginType)+"/"+name,
			)
		}
		return nil
	}
	return plugin.SetPluginOption(pluginType, name, "data-dir", cfg.DataDir)
}

// New opens the configured metadata and blob plugins
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	metadataPlugin := cfg.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = DefaultMetadataPlugin
	}
	blobPlugin := cfg.BlobPlugin
	if blobPlugin == "" {
		blobPlugin = DefaultBlobPlugin
	}
	plugin.SetLogger(cfg.Logger)
	plugin.SetPromRegistry(cfg.PromRegistry)
	if err := setDataDir(cfg, plugin.PluginTypeMetadata, metadataPlugin); err != nil {
		return nil, err
	}
	if err := setDataDir(cfg, plugin.PluginTypeBlob, blobPlugin); err != nil {
		return nil, err
	}
	metadataDb, err := metadata.New(metadataPlugin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	blobDb, err := blob.New(blobPlugin)
	if err != nil {
		_ = metadataDb.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	db := &Database{
		logger:   cfg.Logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  cfg.DataDir,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
