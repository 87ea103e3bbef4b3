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
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const envVarPrefix = "STAKEIDX"

var (
	// explicitOptions holds the flag names of options set from the
	// environment or a config file
	explicitOptions = map[string]bool{}
	// cmdlineFlags is the flag set most recently populated with plugin options
	cmdlineFlags *pflag.FlagSet
)

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = 1
	PluginOptionTypeBool   PluginOptionType = 2
	PluginOptionTypeInt    PluginOptionType = 3
	PluginOptionTypeUint   PluginOptionType = 4
)

// PluginOption describes a single configurable plugin option. Dest must be a
// pointer of the Go type matching Type (*string, *bool, *int or *uint64).
type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	Type         PluginOptionType
}

func (p *PluginOption) set(value any) error {
	switch p.Type {
	case PluginOptionTypeString:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid type for option %s: expected string", p.Name)
		}
		return assign(p, v)
	case PluginOptionTypeBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("invalid type for option %s: expected bool", p.Name)
		}
		return assign(p, v)
	case PluginOptionTypeInt:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("invalid type for option %s: expected int", p.Name)
		}
		return assign(p, v)
	case PluginOptionTypeUint:
		switch tv := value.(type) {
		case uint64:
			return assign(p, tv)
		case int:
			if tv < 0 {
				return fmt.Errorf("invalid value for option %s: negative int", p.Name)
			}
			return assign(p, uint64(tv))
		default:
			return fmt.Errorf("invalid type for option %s: expected uint64 or int", p.Name)
		}
	default:
		return fmt.Errorf(
			"unknown plugin option type %d for option %s",
			p.Type,
			p.Name,
		)
	}
}

// setFromString parses a value from an environment variable or config file
func (p *PluginOption) setFromString(value string) error {
	switch p.Type {
	case PluginOptionTypeString:
		return p.set(value)
	case PluginOptionTypeBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
		}
		return p.set(v)
	case PluginOptionTypeInt:
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
		}
		return p.set(v)
	case PluginOptionTypeUint:
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for option %s: %w", p.Name, err)
		}
		return p.set(v)
	default:
		return p.set(value)
	}
}

func assign[T any](p *PluginOption, v T) error {
	if p.Dest == nil {
		return fmt.Errorf("nil destination for option %s", p.Name)
	}
	dest, ok := p.Dest.(*T)
	if !ok {
		return fmt.Errorf(
			"invalid destination type for option %s: expected %T",
			p.Name,
			dest,
		)
	}
	if dest == nil {
		return fmt.Errorf("nil destination pointer for option %s", p.Name)
	}
	*dest = v
	return nil
}

func flagName(p PluginEntry, opt PluginOption) string {
	return fmt.Sprintf("%s-%s-%s", PluginTypeName(p.Type), p.Name, opt.Name)
}

func envVarName(p PluginEntry, opt PluginOption) string {
	ret := fmt.Sprintf(
		"%s_%s_%s_%s",
		envVarPrefix,
		PluginTypeName(p.Type),
		p.Name,
		opt.Name,
	)
	return strings.ToUpper(strings.ReplaceAll(ret, "-", "_"))
}

// PopulateCmdlineOptions adds a flag for every registered plugin option to the
// provided flag set. Flags are named <type>-<plugin>-<option>.
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	cmdlineFlags = fs
	for _, p := range pluginEntries {
		for _, opt := range p.Options {
			name := flagName(p, opt)
			switch opt.Type {
			case PluginOptionTypeString:
				dest, ok := opt.Dest.(*string)
				defVal, ok2 := opt.DefaultValue.(string)
				if !ok || !ok2 {
					return fmt.Errorf("invalid string option %s", name)
				}
				fs.StringVar(dest, name, defVal, opt.Description)
			case PluginOptionTypeBool:
				dest, ok := opt.Dest.(*bool)
				defVal, ok2 := opt.DefaultValue.(bool)
				if !ok || !ok2 {
					return fmt.Errorf("invalid bool option %s", name)
				}
				fs.BoolVar(dest, name, defVal, opt.Description)
			case PluginOptionTypeInt:
				dest, ok := opt.Dest.(*int)
				defVal, ok2 := opt.DefaultValue.(int)
				if !ok || !ok2 {
					return fmt.Errorf("invalid int option %s", name)
				}
				fs.IntVar(dest, name, defVal, opt.Description)
			case PluginOptionTypeUint:
				dest, ok := opt.Dest.(*uint64)
				defVal, ok2 := opt.DefaultValue.(uint64)
				if !ok || !ok2 {
					return fmt.Errorf("invalid uint option %s", name)
				}
				fs.Uint64Var(dest, name, defVal, opt.Description)
			default:
				return fmt.Errorf("unknown plugin option type %d for option %s", opt.Type, name)
			}
		}
	}
	return nil
}

// ProcessEnvVars applies any STAKEIDX_<TYPE>_<PLUGIN>_<OPTION> environment
// variables to the registered plugin options
func ProcessEnvVars() error {
	for _, p := range pluginEntries {
		for i := range p.Options {
			opt := &p.Options[i]
			val, ok := os.LookupEnv(envVarName(p, *opt))
			if !ok {
				continue
			}
			if err := opt.setFromString(val); err != nil {
				return err
			}
			explicitOptions[flagName(p, *opt)] = true
		}
	}
	return nil
}

// ProcessConfig applies plugin options from a config file. The map is keyed by
// plugin type name, then plugin name, then option name.
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for _, p := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(p.Type)]
		if !ok {
			continue
		}
		options, ok := typeConfig[p.Name]
		if !ok {
			continue
		}
		for i := range p.Options {
			opt := &p.Options[i]
			val, ok := options[opt.Name]
			if !ok {
				continue
			}
			if err := opt.setFromString(fmt.Sprint(val)); err != nil {
				return err
			}
			explicitOptions[flagName(p, *opt)] = true
		}
	}
	return nil
}

// OptionExplicit reports whether a plugin option was set by a command line
// flag, an environment variable or a config file rather than left at its
// default
func OptionExplicit(
	pluginType PluginType,
	pluginName string,
	optionName string,
) bool {
	name := fmt.Sprintf(
		"%s-%s-%s",
		PluginTypeName(pluginType),
		pluginName,
		optionName,
	)
	if explicitOptions[name] {
		return true
	}
	return cmdlineFlags != nil && cmdlineFlags.Changed(name)
}

// ClearExplicitOptions forgets which options were set from the environment or
// a config file. Option values are left as they are.
func ClearExplicitOptions() {
	explicitOptions = map[string]bool{}
}
