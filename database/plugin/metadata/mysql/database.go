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

package mysql

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/stakeidx/database/plugin/metadata/internal/gormstore"
	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// MySQL "unknown database" error number
const errUnknownDatabase = 1049

// MetadataStoreMysql stores metadata in MySQL
type MetadataStoreMysql struct {
	*gormstore.Store
	logger *slog.Logger

	host     string
	port     uint
	user     string
	password string
	database string
	tlsMode  string
	timeZone string
	dsn      string // Data source name (MySQL connection string)
}

// NewWithOptions creates a new database with options
func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	db := &MetadataStoreMysql{}
	for _, opt := range opts {
		opt(db)
	}
	if db.host == "" {
		db.host = "localhost"
	}
	if db.port == 0 {
		db.port = 3306
	}
	if db.user == "" {
		db.user = "root"
	}
	if db.database == "" {
		db.database = "stakeidx"
	}
	if db.timeZone == "" {
		db.timeZone = "UTC"
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// buildDSN returns the connection string and the database name it refers to
func (d *MetadataStoreMysql) buildDSN() (string, string) {
	if dsn := strings.TrimSpace(d.dsn); dsn != "" {
		if dbName, ok := parseDatabaseFromDSN(dsn); ok {
			return dsn, dbName
		}
		return dsn, d.database
	}
	cfg := mysql.NewConfig()
	cfg.User = d.user
	cfg.Passwd = d.password
	cfg.Net = "tcp"
	cfg.Addr = d.host + ":" + strconv.FormatUint(uint64(d.port), 10)
	cfg.DBName = d.database
	cfg.ParseTime = true
	cfg.AllowNativePasswords = true
	if d.timeZone != "" {
		if loc, err := time.LoadLocation(d.timeZone); err == nil {
			cfg.Loc = loc
		}
	}
	if d.tlsMode != "" {
		cfg.Params = map[string]string{"tls": d.tlsMode}
	}
	return cfg.FormatDSN(), d.database
}

func (d *MetadataStoreMysql) open(dsn string) (*gorm.DB, error) {
	return gorm.Open(
		gormmysql.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Start() error {
	dsn, dbName := d.buildDSN()
	metadataDb, err := d.open(dsn)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != errUnknownDatabase {
			return err
		}
		if err := d.createDatabase(dsn, dbName); err != nil {
			return fmt.Errorf("create database %s: %w", dbName, err)
		}
		metadataDb, err = d.open(dsn)
		if err != nil {
			return err
		}
	}
	d.logger.Info(
		"connected to mysql metadata store",
		"component", "database",
		"host", d.host,
		"port", d.port,
		"database", dbName,
	)
	sqlDB, err := metadataDb.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	d.Store = gormstore.New(metadataDb, d.logger)
	if err := metadataDb.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	return d.Migrate()
}

// createDatabase connects without a database selected and creates dbName
func (d *MetadataStoreMysql) createDatabase(dsn string, dbName string) error {
	if dbName == "" {
		return errors.New("no database name in DSN")
	}
	adminDsn, ok := stripDatabaseFromDSN(dsn)
	if !ok {
		return errors.New("could not derive server DSN")
	}
	adminDb, err := d.open(adminDsn)
	if err != nil {
		return err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return err
	}
	defer sqlAdminDb.Close()
	result := adminDb.Exec(
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName),
	)
	return result.Error
}

func parseDatabaseFromDSN(dsn string) (string, bool) {
	base, _, _ := strings.Cut(dsn, "?")
	slash := strings.LastIndex(base, "/")
	if slash < 0 || slash == len(base)-1 {
		return "", false
	}
	return base[slash+1:], true
}

func stripDatabaseFromDSN(dsn string) (string, bool) {
	base, params, hasParams := strings.Cut(dsn, "?")
	slash := strings.LastIndex(base, "/")
	if slash < 0 {
		return "", false
	}
	base = base[:slash+1]
	if !hasParams || params == "" {
		return base, true
	}
	return base + "?" + params, true
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Stop() error {
	return d.Close()
}

// Close closes the underlying connection pool
func (d *MetadataStoreMysql) Close() error {
	if d.Store == nil {
		return nil
	}
	db, err := d.DB().DB()
	if err != nil {
		return err
	}
	return db.Close()
}
