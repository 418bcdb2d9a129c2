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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	zl, err := New(&Config{Level: "warn", Output: OutputDiscard})
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, zl.GetLevel())

	_, err = New(&Config{Level: "chatty"})
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel(&Config{Level: "error", Debug: true})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	level, err = ParseLevel(&Config{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)
}

func TestMergeKeepsExplicitValues(t *testing.T) {
	t.Setenv("SGICH_LOG_LEVEL", "debug")

	merged := (&Config{Level: "error"}).Merge()
	assert.Equal(t, "error", merged.Level)
	assert.Equal(t, OutputStdout, merged.Output)

	merged = (*Config)(nil).Merge()
	assert.Equal(t, "debug", merged.Level)
}

func TestWrapWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer

	l := Wrap(zerolog.New(&buf).Level(zerolog.InfoLevel))
	l.Debug().Msg("hidden")
	l.Info().Str("unique_id", "M-1").Msg("ingested")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "M-1", line["unique_id"])
	assert.Equal(t, "ingested", line["message"])

	l.SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, l.WithComponent("x").GetLevel())
}

func TestNewTestLoggerIsSilent(t *testing.T) {
	l := NewTestLogger()
	l.Info().Msg("discarded")
	assert.Equal(t, zerolog.Disabled, l.WithComponent("x").GetLevel())
}
