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

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgich/assetradar/pkg/agentconfig"
	"github.com/sgich/assetradar/pkg/credentials"
	"github.com/sgich/assetradar/pkg/logger"
)

type wizardSpy struct {
	calls   int
	initial *agentconfig.Config
	err     error
}

func (w *wizardSpy) run(_ context.Context, _ string, initial *agentconfig.Config, _ credentials.Store) (*agentconfig.Config, error) {
	w.calls++
	w.initial = initial

	if w.err != nil {
		return nil, w.err
	}

	return &agentconfig.Config{IntervaloPrincipalMin: 30, IntervaloReintentoMin: 5}, nil
}

func validConfig() *agentconfig.Config {
	return &agentconfig.Config{
		IntervaloPrincipalMin: 60,
		IntervaloReintentoMin: 5,
		Server:                agentconfig.ServerConfig{URL: "https://erp.example.com", DB: "sgich", Username: "agent"},
	}
}

func TestConfigureUsesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), agentconfig.FileName)
	require.NoError(t, agentconfig.Save(path, validConfig()))

	spy := &wizardSpy{}

	cfg, err := configure(context.Background(), path, false, nil, spy.run, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, spy.calls)
	assert.Equal(t, "agent", cfg.Server.Username)
}

func TestConfigureForcedWizardIsPrefilled(t *testing.T) {
	path := filepath.Join(t.TempDir(), agentconfig.FileName)
	require.NoError(t, agentconfig.Save(path, validConfig()))

	spy := &wizardSpy{}

	cfg, err := configure(context.Background(), path, true, nil, spy.run, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, spy.calls)
	require.NotNil(t, spy.initial)
	assert.Equal(t, "https://erp.example.com", spy.initial.Server.URL)
	assert.Equal(t, 30, cfg.IntervaloPrincipalMin)
}

func TestConfigureMissingFileStartsWizard(t *testing.T) {
	spy := &wizardSpy{}

	_, err := configure(context.Background(), filepath.Join(t.TempDir(), "absent.json"), false, nil, spy.run, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, spy.calls)
	assert.Nil(t, spy.initial)
}

func TestConfigureBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), agentconfig.FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"intervalo_principal_min": "soon"}`), 0o600))

	spy := &wizardSpy{}

	_, err := configure(context.Background(), path, false, nil, spy.run, logger.NewTestLogger())
	require.Error(t, err)
	assert.Equal(t, 0, spy.calls)

	_, err = configure(context.Background(), path, true, nil, spy.run, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, spy.calls)
	assert.Nil(t, spy.initial)
}

func TestConfigureWizardCancelled(t *testing.T) {
	spy := &wizardSpy{err: agentconfig.ErrWizardCancelled}

	_, err := configure(context.Background(), filepath.Join(t.TempDir(), "absent.json"), false, nil, spy.run, logger.NewTestLogger())
	require.ErrorIs(t, err, agentconfig.ErrWizardCancelled)
}
