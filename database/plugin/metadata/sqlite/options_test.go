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

package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	store, err := NewWithOptions(
		WithDataDir("/tmp/stakeidx-test"),
		WithLogger(nil),
	)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/stakeidx-test", store.dataDir)
	assert.NotNil(t, store.logger, "nil logger should be replaced")
}

func TestFileBackedStore(t *testing.T) {
	dataDir := t.TempDir()
	store, err := New(dataDir, nil)
	require.NoError(t, err)
	require.NoError(t, store.SetCursor(5, nil))
	require.NoError(t, store.Close())
	// Close is idempotent
	require.NoError(t, store.Close())

	store, err = New(dataDir, nil)
	require.NoError(t, err)
	defer store.Close()
	height, ok, err := store.GetCursor(nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), height)
}
