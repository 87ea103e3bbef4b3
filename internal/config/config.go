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

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/stakeidx/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "stakeidx.config"

const (
	DefaultBlobPlugin         = "badger"
	DefaultMetadataPlugin     = "sqlite"
	DefaultShutdownTimeout    = "30s"
	DefaultCollatorCommission = 20
)

// ErrPluginListRequested is returned when the user requests to list available plugins
// This is not an error condition but a successful operation that displays plugin information
var ErrPluginListRequested = errors.New("plugin list requested")

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	DatabasePath              string `yaml:"databasePath"              split_words:"true"`
	MetadataPlugin            string `yaml:"metadataPlugin"            split_words:"true"`
	BlobPlugin                string `yaml:"blobPlugin"                split_words:"true"`
	BindAddr                  string `yaml:"bindAddr"                  split_words:"true"`
	ChainName                 string `yaml:"chainName"                 split_words:"true"`
	BlockFile                 string `yaml:"blockFile"                 split_words:"true"`
	ShutdownTimeout           string `yaml:"shutdownTimeout"           split_words:"true"`
	MetricsPort               uint   `yaml:"metricsPort"               split_words:"true"`
	DefaultCollatorCommission uint32 `yaml:"defaultCollatorCommission" split_words:"true"`
	Tracing                   bool   `yaml:"tracing"`
	TracingStdout             bool   `yaml:"tracingStdout"             split_words:"true"`
}

// ShutdownTimeoutDuration parses ShutdownTimeout, falling back to the default
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	timeout := c.ShutdownTimeout
	if timeout == "" {
		timeout = DefaultShutdownTimeout
	}
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: %w", timeout, err)
	}
	return d, nil
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:              ".stakeidx",
		MetadataPlugin:            DefaultMetadataPlugin,
		BlobPlugin:                DefaultBlobPlugin,
		BindAddr:                  "0.0.0.0",
		ChainName:                 "moonbeam",
		ShutdownTimeout:           DefaultShutdownTimeout,
		MetricsPort:               12799,
		DefaultCollatorCommission: DefaultCollatorCommission,
	}
}

var globalConfig = defaultConfig()

// findConfigFile returns the first config file found in the default locations
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".stakeidx", "stakeidx.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/stakeidx/stakeidx.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// LoadConfig builds the config from defaults, the YAML config file and the
// environment, in that order. Without an explicit configFile, the default
// locations ~/.stakeidx/stakeidx.yaml and /etc/stakeidx/stakeidx.yaml are
// checked.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	plugin.ClearExplicitOptions()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := loadYAML(buf, cfg); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	if err := envconfig.Process("stakeidx", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

func loadYAML(buf []byte, cfg *Config) error {
	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config != nil {
		// Overlay config values onto existing defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, cfg); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, cfg); err != nil {
		// Without a config section the whole file is the main config
		return fmt.Errorf("error parsing config file: %w", err)
	}
	pluginConfig := map[string]map[string]map[string]any{
		"blob":     tempCfg.Blob,
		"metadata": tempCfg.Metadata,
	}
	if tempCfg.Database != nil {
		if name, section := pluginSection(tempCfg.Database.Blob); section != nil {
			if name != "" {
				cfg.BlobPlugin = name
			}
			pluginConfig["blob"] = mergeSections(pluginConfig["blob"], section)
		}
		if name, section := pluginSection(tempCfg.Database.Metadata); section != nil {
			if name != "" {
				cfg.MetadataPlugin = name
			}
			pluginConfig["metadata"] = mergeSections(pluginConfig["metadata"], section)
		}
	}
	if err := plugin.ProcessConfig(pluginConfig); err != nil {
		return fmt.Errorf("error processing plugin config: %w", err)
	}
	return nil
}

// pluginSection splits a database.blob or database.metadata section into the
// selected plugin name and the per-plugin option maps
func pluginSection(raw map[string]any) (string, map[string]map[string]any) {
	if raw == nil {
		return "", nil
	}
	var name string
	section := make(map[string]map[string]any)
	for k, v := range raw {
		if k == "plugin" {
			name, _ = v.(string)
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			section[k] = val
		case map[any]any:
			converted := make(map[string]any, len(val))
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					converted[keyStr] = vv
				}
			}
			section[k] = converted
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping plugin config entry %q: expected map, got %T\n",
				k,
				v,
			)
		}
	}
	return name, section
}

func mergeSections(
	dst map[string]map[string]any,
	src map[string]map[string]any,
) map[string]map[string]any {
	if dst == nil {
		return src
	}
	maps.Copy(dst, src)
	return dst
}

func (c *Config) validate() error {
	if c.DefaultCollatorCommission > 100 {
		return fmt.Errorf(
			"invalid defaultCollatorCommission: %d (must be a percentage)",
			c.DefaultCollatorCommission,
		)
	}
	if c.BlobPlugin == "" || c.MetadataPlugin == "" {
		return errors.New("blob and metadata plugins must be set")
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

func GetConfig() *Config {
	return globalConfig
}
