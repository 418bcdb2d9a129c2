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

package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgich/assetradar/pkg/core/auth"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/store/memory"
)

var errNoSuchSecret = errors.New("no such secret")

type mapResolver map[string]string

func (m mapResolver) Resolve(ref string) (string, error) {
	v, ok := m[ref]
	if !ok {
		return "", errNoSuchSecret
	}

	return v, nil
}

func testConfig() *models.CoreServiceConfig {
	cfg := &models.CoreServiceConfig{
		Database:     models.DatabaseConfig{Driver: models.DatabaseDriverMemory},
		JWTSecretRef: "core/jwt",
	}
	cfg.ApplyDefaults()

	return cfg
}

func testResolver() mapResolver {
	return mapResolver{"core/jwt": "0123456789abcdef0123456789abcdef"}
}

func TestNewServerBootstrapsBuiltins(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	cfg := testConfig()

	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)

	cfg.Users = []models.UserSeed{
		{Login: "root", PasswordHash: hash, System: true},
		{Login: "ada", PasswordHash: hash, Name: "Ada"},
	}

	s, err := newServer(ctx, cfg, st, testResolver(), logger.NewTestLogger())
	require.NoError(t, err)

	status := s.Status()
	assert.Equal(t, models.DatabaseDriverMemory, status.Driver)
	assert.False(t, status.NATS)
	assert.False(t, status.Metrics)
	assert.False(t, status.Reachability)

	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		ch, err := tx.GetChannel(ctx, cfg.AIChannelID)
		require.NoError(t, err)
		assert.Contains(t, ch.Members, cfg.AIPartnerID)

		root, err := tx.GetSystemUserByLogin(ctx, "root")
		require.NoError(t, err)
		assert.Equal(t, cfg.SystemPartnerID, root.PartnerID)

		ada, err := tx.GetSystemUserByLogin(ctx, "ada")
		require.NoError(t, err)
		assert.NotEqual(t, cfg.SystemPartnerID, ada.PartnerID)

		return nil
	}))

	session, err := s.authService.Login(ctx, &models.SessionRequest{Login: "root", Password: "pw"})
	require.NoError(t, err)

	actor, err := s.authService.VerifyToken(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, actor.System)

	require.NoError(t, s.Shutdown(ctx))
}

func TestBootstrapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	log := logger.NewTestLogger()

	first := testConfig()
	require.NoError(t, ensureBuiltins(ctx, st, first, log))

	second := testConfig()
	second.SystemPartnerID, second.AIPartnerID, second.AIChannelID = first.SystemPartnerID, first.AIPartnerID, first.AIChannelID
	require.NoError(t, ensureBuiltins(ctx, st, second, log))

	assert.Equal(t, first.SystemPartnerID, second.SystemPartnerID)
	assert.Equal(t, first.AIPartnerID, second.AIPartnerID)
	assert.Equal(t, first.AIChannelID, second.AIChannelID)
}

func TestSeedUsersRejectsPlainPasswords(t *testing.T) {
	err := seedUsers(context.Background(), memory.New(),
		[]models.UserSeed{{Login: "ada", PasswordHash: "hunter2"}}, 1, logger.NewTestLogger())

	require.ErrorIs(t, err, errInvalidUserSeed)
}

func TestNewServerNeedsJWTSecret(t *testing.T) {
	_, err := newServer(context.Background(), testConfig(), memory.New(), mapResolver{}, logger.NewTestLogger())

	require.ErrorIs(t, err, errMissingSecret)
}

func TestNewServerRejectsShortSecret(t *testing.T) {
	_, err := newServer(context.Background(), testConfig(), memory.New(),
		mapResolver{"core/jwt": "short"}, logger.NewTestLogger())

	require.ErrorIs(t, err, auth.ErrWeakSecret)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := filepath.Join(t.TempDir(), "core.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen_addr": ":9000",
		"database": {"driver": "memory"},
		"jwt_secret_ref": "core/jwt",
		"reachability": {"enabled": true, "interval": "1m"}
	}`), 0o600))

	cfg, err := LoadConfig(context.Background(), path, logger.NewTestLogger())
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.True(t, cfg.Reachability.Enabled)
	assert.Equal(t, models.PingModeExec, cfg.Reachability.Mode)
	assert.Equal(t, int64(1), cfg.SystemPartnerID)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := filepath.Join(t.TempDir(), "core.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database": {"driver": "sqlite"}, "jwt_secret_ref": "x"}`), 0o600))

	_, err := LoadConfig(context.Background(), path, logger.NewTestLogger())
	require.Error(t, err)
}
