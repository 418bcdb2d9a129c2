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

package logger

import (
	"os"
	"strings"
)

// DefaultConfig reads SGICH_LOG_* environment overrides on top of info/stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:      getEnvOrDefault("SGICH_LOG_LEVEL", "info"),
		Debug:      getEnvBoolOrDefault("SGICH_DEBUG", false),
		Output:     getEnvOrDefault("SGICH_LOG_OUTPUT", "stdout"),
		TimeFormat: getEnvOrDefault("SGICH_LOG_TIME_FORMAT", ""),
	}
}

// Merge fills the empty fields of c from DefaultConfig.
func (c *Config) Merge() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}

	merged := *c
	if merged.Level == "" {
		merged.Level = defaults.Level
	}

	if merged.Output == "" {
		merged.Output = defaults.Output
	}

	if merged.TimeFormat == "" {
		merged.TimeFormat = defaults.TimeFormat
	}

	merged.Debug = merged.Debug || defaults.Debug

	return &merged
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	value = strings.ToLower(value)

	return value == "true" || value == "1" || value == "yes" || value == "on"
}
