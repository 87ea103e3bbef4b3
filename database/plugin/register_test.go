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

package plugin_test

import (
	"testing"

	"github.com/blinklabs-io/stakeidx/database/plugin"
	_ "github.com/blinklabs-io/stakeidx/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/stakeidx/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/stakeidx/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/stakeidx/database/plugin/metadata/sqlite"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findEntry(
	t *testing.T,
	pluginType plugin.PluginType,
	name string,
) plugin.PluginEntry {
	t.Helper()
	for _, p := range plugin.GetPlugins(pluginType) {
		if p.Name == name {
			return p
		}
	}
	require.Failf(t, "plugin not registered", "%s/%s", plugin.PluginTypeName(pluginType), name)
	return plugin.PluginEntry{}
}

func findOption(entry plugin.PluginEntry, name string) *plugin.PluginOption {
	for i := range entry.Options {
		if entry.Options[i].Name == name {
			return &entry.Options[i]
		}
	}
	return nil
}

func TestStoragePluginsRegistered(t *testing.T) {
	testCases := []struct {
		pluginType plugin.PluginType
		name       string
		dataDir    bool
	}{
		{pluginType: plugin.PluginTypeBlob, name: "badger", dataDir: true},
		{pluginType: plugin.PluginTypeMetadata, name: "sqlite", dataDir: true},
		{pluginType: plugin.PluginTypeMetadata, name: "postgres"},
		{pluginType: plugin.PluginTypeMetadata, name: "mysql"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entry := findEntry(t, tc.pluginType, tc.name)
			assert.Equal(t, tc.pluginType, entry.Type)
			assert.NotEmpty(t, entry.Description)
			assert.NotNil(t, entry.NewFromOptionsFunc)
			opt := findOption(entry, "data-dir")
			if !tc.dataDir {
				assert.Nil(t, opt)
				return
			}
			require.NotNil(t, opt)
			assert.Equal(t, plugin.PluginOptionTypeString, opt.Type)
			assert.Equal(t, ".stakeidx", opt.DefaultValue)
		})
	}
}

func TestGetPluginsByType(t *testing.T) {
	for _, p := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		assert.Equal(t, plugin.PluginTypeBlob, p.Type, p.Name)
	}
	for _, p := range plugin.GetPlugins(plugin.PluginTypeMetadata) {
		assert.Equal(t, plugin.PluginTypeMetadata, p.Type, p.Name)
	}
	assert.Empty(t, plugin.GetPlugins(plugin.PluginType(99)))
	assert.Equal(t, "unknown", plugin.PluginTypeName(plugin.PluginType(99)))
}

func TestGetPluginUnknown(t *testing.T) {
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeBlob, "nosuchstore"))
	// Names are scoped by plugin type
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeBlob, "sqlite"))
	assert.Nil(t, plugin.GetPlugin(plugin.PluginTypeMetadata, "badger"))

	_, err := plugin.StartPlugin(plugin.PluginTypeMetadata, "nosuchdb")
	require.ErrorContains(t, err, "metadata plugin 'nosuchdb' not found")
}

func TestStorageDataDirFlags(t *testing.T) {
	fs := pflag.NewFlagSet("stakeidx", pflag.ContinueOnError)
	require.NoError(t, plugin.PopulateCmdlineOptions(fs))
	for _, name := range []string{
		"blob-badger-data-dir",
		"blob-badger-gc",
		"metadata-sqlite-data-dir",
		"metadata-postgres-port",
		"metadata-mysql-dsn",
	} {
		assert.NotNil(t, fs.Lookup(name), name)
	}
	assert.Nil(t, fs.Lookup("metadata-postgres-data-dir"))
	assert.Equal(t, ".stakeidx", fs.Lookup("blob-badger-data-dir").DefValue)

	dataDir := t.TempDir()
	require.NoError(t, fs.Parse([]string{"--metadata-sqlite-data-dir=" + dataDir}))
	assert.True(t, plugin.OptionExplicit(plugin.PluginTypeMetadata, "sqlite", "data-dir"))
	assert.False(t, plugin.OptionExplicit(plugin.PluginTypeBlob, "badger", "data-dir"))
}
