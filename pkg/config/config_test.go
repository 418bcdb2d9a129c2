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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
)

var errPortRequired = errors.New("port required")

type testDatabase struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type testConfig struct {
	Name     string          `json:"name"`
	Enabled  bool            `json:"enabled"`
	Interval models.Duration `json:"interval"`
	Database testDatabase    `json:"database"`
	Extra    *testDatabase   `json:"extra,omitempty"`
	Tags     []string        `json:"tags"`
	Secret   string          `json:"-"`

	defaulted bool
}

func (c *testConfig) ApplyDefaults() {
	c.defaulted = true
}

func (c *testConfig) Validate() error {
	if c.Database.Port == 0 {
		return errPortRequired
	}

	return nil
}

func newTestConfig(env map[string]string) *Config {
	c := NewConfig(logger.NewTestLogger())
	c.getenv = func(k string) string { return env[k] }

	return c
}

func writeJSON(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "core.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadAndValidateFileWithOverlay(t *testing.T) {
	path := writeJSON(t, `{"name":"core","interval":"5m","database":{"host":"db","port":5432}}`)

	c := newTestConfig(map[string]string{
		"SGICH_DATABASE_HOST": "db.internal",
		"SGICH_ENABLED":       "true",
		"SGICH_TAGS":          `["a","b"]`,
		"SGICH_EXTRA_HOST":    "ignored",
	})

	var cfg testConfig

	require.NoError(t, c.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, "core", cfg.Name)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, models.Duration(5*time.Minute), cfg.Interval)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)
	assert.Nil(t, cfg.Extra)
	assert.True(t, cfg.defaulted)
}

func TestLoadAndValidateFromEnv(t *testing.T) {
	c := newTestConfig(map[string]string{
		"CONFIG_SOURCE":       "env",
		"CONFIG_ENV_PREFIX":   "APP_",
		"APP_CONFIG_JSON":     `{"name":"from-json","database":{"port":1}}`,
		"APP_INTERVAL":        "30s",
		"APP_DATABASE_PORT":   "6543",
		"SGICH_DATABASE_PORT": "1",
	})

	var cfg testConfig

	require.NoError(t, c.LoadAndValidate(context.Background(), "", &cfg))

	assert.Equal(t, "from-json", cfg.Name)
	assert.Equal(t, models.Duration(30*time.Second), cfg.Interval)
	assert.Equal(t, 6543, cfg.Database.Port)
}

func TestLoadAndValidateErrors(t *testing.T) {
	var cfg testConfig

	err := newTestConfig(nil).LoadAndValidate(context.Background(), writeJSON(t, `{"name":"x"}`), &cfg)
	require.ErrorIs(t, err, errPortRequired)

	err = newTestConfig(map[string]string{"CONFIG_SOURCE": "kv"}).LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)

	err = newTestConfig(map[string]string{"SGICH_DATABASE_PORT": "many"}).
		LoadAndValidate(context.Background(), writeJSON(t, `{}`), &cfg)
	require.Error(t, err)

	err = newTestConfig(nil).LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "missing.json"), &cfg)
	require.Error(t, err)
}

func TestSaveFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	in := testConfig{Name: "agent", Database: testDatabase{Host: "h", Port: 1}, Secret: "never"}

	require.NoError(t, SaveFile(path, &in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "never")

	var out testConfig

	require.NoError(t, (&FileConfigLoader{}).Load(context.Background(), path, &out))
	assert.Equal(t, in.Database, out.Database)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
