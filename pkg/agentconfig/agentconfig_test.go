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

package agentconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/sgich/assetradar/pkg/credentials"
	"github.com/sgich/assetradar/pkg/logger"
)

func validConfig() *Config {
	return &Config{
		IntervaloPrincipalMin: 30,
		IntervaloReintentoMin: 2,
		Server: ServerConfig{
			URL:      "https://odoo.example.com/",
			DB:       "sgich",
			Username: "agent@example.com",
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := filepath.Join(t.TempDir(), "nested", FileName)

	require.NoError(t, Save(path, validConfig()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := Load(context.Background(), path, logger.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, "https://odoo.example.com", cfg.Server.URL)
	assert.Equal(t, 30*time.Minute, cfg.MainInterval())
	assert.Equal(t, 2*time.Minute, cfg.RetryInterval())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "intervalo_principal_min")
	assert.Contains(t, string(raw), "odoo_config")
	assert.NotContains(t, string(raw), "password")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	_, err := Load(context.Background(), filepath.Join(t.TempDir(), FileName), logger.NewTestLogger())
	require.ErrorIs(t, err, ErrConfigNotFound)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.Server.URL = "odoo.example.com" }},
		{"ftp url", func(c *Config) { c.Server.URL = "ftp://odoo.example.com" }},
		{"no db", func(c *Config) { c.Server.DB = "" }},
		{"no username", func(c *Config) { c.Server.Username = " " }},
		{"negative interval", func(c *Config) { c.IntervaloPrincipalMin = -1 }},
		{"retry longer than main", func(c *Config) { c.IntervaloReintentoMin = 45 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			cfg.ApplyDefaults()

			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, 60, cfg.IntervaloPrincipalMin)
	assert.Equal(t, 5, cfg.IntervaloReintentoMin)
}

func typeInto(m *wizardModel, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestWizardCollectsSettings(t *testing.T) {
	m := newWizardModel(nil)

	typeInto(m, "https://odoo.example.com")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeInto(m, "sgich")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeInto(m, "agent")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeInto(m, "pw")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.True(t, m.done, "error: %v", m.err)

	assert.Equal(t, "sgich", m.result.Server.DB)
	assert.Equal(t, 60, m.result.IntervaloPrincipalMin)
	assert.Equal(t, "pw", m.password)
	assert.NotContains(t, m.View(), "pw\n")
}

func TestWizardRequiresPassword(t *testing.T) {
	m := newWizardModel(validConfig())

	m.focus(fieldRetry)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.done)
	assert.ErrorIs(t, m.err, errEmptyPassword)
	assert.Equal(t, fieldPassword, m.focused)
}

func TestWizardRejectsBadInterval(t *testing.T) {
	m := newWizardModel(validConfig())
	m.inputs[fieldPrincipal].SetValue("soon")
	m.inputs[fieldPassword].SetValue("pw")

	m.focus(fieldRetry)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.done)
	assert.ErrorIs(t, m.err, errNotANumber)
}

func TestWizardCancel(t *testing.T) {
	m := newWizardModel(nil)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.True(t, m.cancelled)
}

func TestWizardNavigationWraps(t *testing.T) {
	m := newWizardModel(nil)

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldRetry, m.focused)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldURL, m.focused)
}

func TestPersistStoresSecretInVault(t *testing.T) {
	keyring.MockInit()
	t.Setenv("CONFIG_SOURCE", "")

	path := filepath.Join(t.TempDir(), FileName)
	vault := credentials.NewVault()
	cfg := validConfig()
	cfg.ApplyDefaults()

	require.NoError(t, persist(path, cfg, "hunter2", vault))

	secret, err := vault.Get(cfg.Server.Username)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", secret)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")
}

func TestAutostartFile(t *testing.T) {
	path, content, err := autostartFile("linux", "/home/ada", "/opt/sgich/scan-agent")
	require.NoError(t, err)
	assert.Equal(t, "/home/ada/.config/autostart/sgich-scan-agent.desktop", filepath.ToSlash(path))
	assert.Contains(t, string(content), `Exec="/opt/sgich/scan-agent"`)

	path, content, err = autostartFile("darwin", "/Users/ada", "/Applications/scan-agent")
	require.NoError(t, err)
	assert.Equal(t, "/Users/ada/Library/LaunchAgents/com.sgich.scan-agent.plist", filepath.ToSlash(path))
	assert.Contains(t, string(content), "<string>/Applications/scan-agent</string>")
	assert.Contains(t, string(content), "RunAtLoad")

	path, _, err = autostartFile("windows", "C:/Users/ada", "C:/sgich/scan-agent.exe")
	require.NoError(t, err)
	assert.Empty(t, path)
}
