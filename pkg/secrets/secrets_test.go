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

package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestEnvName(t *testing.T) {
	assert.Equal(t, "SGICH_SECRET_DB_PASSWORD", EnvName("db.password"))
	assert.Equal(t, "SGICH_SECRET_JWT_SECRET", EnvName("jwt-secret"))
}

func TestResolveFromVault(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, Store("db.password", "s3cret"))

	r := &KeyringResolver{service: ServiceName, getenv: func(string) string { return "" }}

	v, err := r.Resolve("db.password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)
}

func TestResolveFallsBackToEnv(t *testing.T) {
	keyring.MockInit()

	env := map[string]string{"SGICH_SECRET_AI_KEY": "from-env"}
	r := &KeyringResolver{service: ServiceName, getenv: func(k string) string { return env[k] }}

	v, err := r.Resolve("ai.key")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	_, err = r.Resolve("missing")
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = r.Resolve("")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}
