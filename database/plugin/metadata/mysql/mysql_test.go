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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOptionsDefaults(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.Equal(t, "localhost", m.host)
	assert.Equal(t, uint(3306), m.port)
	assert.Equal(t, "root", m.user)
	assert.Equal(t, "stakeidx", m.database)
	assert.Equal(t, "UTC", m.timeZone)
	assert.NotNil(t, m.logger)
}

func TestBuildDSNFromOptions(t *testing.T) {
	m, err := NewWithOptions(
		WithHost("db.local"),
		WithPort(3307),
		WithUser("indexer"),
		WithPassword("secret"),
		WithDatabase("staking"),
		WithTLSMode("skip-verify"),
	)
	require.NoError(t, err)
	dsn, dbName := m.buildDSN()
	assert.Equal(t, "staking", dbName)
	assert.True(t, strings.HasPrefix(dsn, "indexer:secret@tcp(db.local:3307)/staking?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "tls=skip-verify")
}

func TestBuildDSNOverride(t *testing.T) {
	m, err := NewWithOptions(
		WithDatabase("ignored"),
		WithDSN(" user:pw@tcp(host:3306)/other?charset=utf8mb4 "),
	)
	require.NoError(t, err)
	dsn, dbName := m.buildDSN()
	assert.Equal(t, "user:pw@tcp(host:3306)/other?charset=utf8mb4", dsn)
	assert.Equal(t, "other", dbName)
}

func TestStripDatabaseFromDSN(t *testing.T) {
	testDefs := []struct {
		dsn      string
		expected string
		ok       bool
	}{
		{"u:p@tcp(h:3306)/db", "u:p@tcp(h:3306)/", true},
		{"u:p@tcp(h:3306)/db?parseTime=true", "u:p@tcp(h:3306)/?parseTime=true", true},
		{"no-slash", "", false},
	}
	for _, testDef := range testDefs {
		got, ok := stripDatabaseFromDSN(testDef.dsn)
		assert.Equal(t, testDef.ok, ok, testDef.dsn)
		assert.Equal(t, testDef.expected, got, testDef.dsn)
	}
}

func TestParseDatabaseFromDSN(t *testing.T) {
	name, ok := parseDatabaseFromDSN("u:p@tcp(h:3306)/stakes?x=y")
	assert.True(t, ok)
	assert.Equal(t, "stakes", name)
	_, ok = parseDatabaseFromDSN("u:p@tcp(h:3306)/")
	assert.False(t, ok)
}

func TestCloseBeforeStart(t *testing.T) {
	m, err := NewWithOptions()
	require.NoError(t, err)
	assert.NoError(t, m.Close())
}
