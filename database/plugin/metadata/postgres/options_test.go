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
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := &MetadataStorePostgres{}
	for _, opt := range []PostgresOptionFunc{
		WithLogger(logger),
		WithHost("db.local"),
		WithPort(6543),
		WithUser("indexer"),
		WithPassword("secret"),
		WithDatabase("staking"),
		WithSSLMode("require"),
		WithTimeZone("Europe/Berlin"),
	} {
		opt(m)
	}
	assert.Same(t, logger, m.logger)
	assert.Equal(t, "db.local", m.host)
	assert.Equal(t, uint(6543), m.port)
	assert.Equal(t, "indexer", m.user)
	assert.Equal(t, "secret", m.password)
	assert.Equal(t, "staking", m.database)
	assert.Equal(t, "require", m.sslMode)
	assert.Equal(t, "Europe/Berlin", m.timeZone)
}

func TestNewWithOptionsDefaults(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost", m.host)
	assert.Equal(t, uint(5432), m.port)
	assert.Equal(t, "stakeidx", m.user)
	assert.Equal(t, "stakeidx", m.database)
	assert.Equal(t, "disable", m.sslMode)
	assert.Equal(t, "UTC", m.timeZone)
}

func TestBuildDSN(t *testing.T) {
	m, err := NewWithOptions(
		WithHost("db.local"),
		WithPassword("pw"),
	)
	require.NoError(t, err)
	assert.Equal(
		t,
		"host=db.local user=stakeidx password=pw dbname=stakeidx port=5432 sslmode=disable TimeZone=UTC",
		m.buildDSN(),
	)
	m.dsn = "  postgres://u:p@h/db  "
	assert.Equal(t, "postgres://u:p@h/db", m.buildDSN())
}

func TestCloseBeforeStart(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.NoError(t, m.Close())
}
