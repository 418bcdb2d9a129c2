/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads JSON configuration files, optionally overlaid with
// environment variables, and validates them.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sgich/assetradar/pkg/logger"
)

var errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")

const (
	configSourceFile = "file"
	configSourceEnv  = "env"

	// DefaultEnvPrefix is used when CONFIG_ENV_PREFIX is unset.
	DefaultEnvPrefix = "SGICH_"
)

// ConfigLoader fills dst from the source named by path.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Validator is implemented by configurations that check themselves.
type Validator interface {
	Validate() error
}

// Defaulter is implemented by configurations that fill unset fields.
type Defaulter interface {
	ApplyDefaults()
}

type Config struct {
	defaultLoader ConfigLoader
	logger        logger.Logger
	getenv        func(string) string
}

// NewConfig returns a loader reading files unless CONFIG_SOURCE says
// otherwise.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Config{
		defaultLoader: &FileConfigLoader{},
		logger:        log,
		getenv:        os.Getenv,
	}
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads cfg, applies its defaults and validates it.
//
// CONFIG_SOURCE=env reads the whole configuration from the environment
// (see EnvConfigLoader). Otherwise the file at path is read and environment
// variables under the prefix override individual fields.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	source := strings.ToLower(c.getenv("CONFIG_SOURCE"))

	prefix := c.getenv("CONFIG_ENV_PREFIX")
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	env := NewEnvConfigLoader(c.logger, prefix)
	env.getenv = c.getenv

	switch source {
	case configSourceEnv:
		if err := env.Load(ctx, path, cfg); err != nil {
			return err
		}
	case configSourceFile, "":
		if err := c.defaultLoader.Load(ctx, path, cfg); err != nil {
			return err
		}

		if err := env.Overlay(cfg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s (expected '%s' or '%s')",
			errInvalidConfigSource, source, configSourceFile, configSourceEnv)
	}

	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
	}

	return ValidateConfig(cfg)
}
