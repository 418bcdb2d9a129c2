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

// Package logger provides JSON structured logging using zerolog. Loggers are
// built from a Config and passed to every component; there is no package
// level logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Output names accepted in Config.Output.
const (
	OutputStdout  = "stdout"
	OutputStderr  = "stderr"
	OutputDiscard = "discard"
)

type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

// New builds a zerolog logger from cfg after merging environment defaults.
func New(cfg *Config) (zerolog.Logger, error) {
	cfg = cfg.Merge()

	level, err := ParseLevel(cfg)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	return zerolog.New(OutputWriter(cfg.Output)).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// ParseLevel resolves the effective level, Debug wins over Level.
func ParseLevel(cfg *Config) (zerolog.Level, error) {
	if cfg.Debug {
		return zerolog.DebugLevel, nil
	}

	if cfg.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(cfg.Level)
}

// OutputWriter maps the configured output name to a writer. Unknown names
// fall back to stdout.
func OutputWriter(output string) io.Writer {
	switch output {
	case OutputStderr:
		return os.Stderr
	case OutputDiscard:
		return io.Discard
	default:
		return os.Stdout
	}
}
