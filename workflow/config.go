// Copyright 2026 The Authzee Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"github.com/authzee/authzee/internal/config"
)

// LoadEngineOptions loads EngineOptions the way a host embedding the
// engine is expected to: struct defaults, then an optional YAML file at
// configPath, then envPrefix__-prefixed environment variables, in
// internal/config.Loader's precedence order, validating the result via
// EngineOptions.Validate. configPath may be empty to skip the file.
//
// With envPrefix "AUTHZEE", for example,
// AUTHZEE__SCHEMACACHEENABLED=false AUTHZEE__QUERYCACHEENABLED=false
// ./your-host turns off the generated-schema cache without a config
// file; the cache stays on while either flag is true.
func LoadEngineOptions(envPrefix, configPath string) (EngineOptions, error) {
	loader := config.NewLoader(envPrefix)
	if err := loader.LoadWithDefaults(DefaultEngineOptions(), configPath); err != nil {
		return EngineOptions{}, err
	}

	var opts EngineOptions
	if err := loader.UnmarshalAndValidate("", &opts); err != nil {
		return EngineOptions{}, err
	}
	return opts, nil
}
