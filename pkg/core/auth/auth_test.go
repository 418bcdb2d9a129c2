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

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/store/memory"
)

const secret = "0123456789abcdef0123456789abcdef"

type authFixture struct {
	auth      *Auth
	st        store.Store
	user      *models.SystemUser
	systemPID int64
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	st := memory.New()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	f := &authFixture{st: st}

	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		system := &models.Partner{Name: "System"}
		if err := tx.CreatePartner(ctx, system); err != nil {
			return err
		}

		f.systemPID = system.ID
		f.user = &models.SystemUser{Login: "root", PasswordHash: string(hash), PartnerID: system.ID, Active: true}

		return tx.CreateSystemUser(ctx, f.user)
	}))

	a, err := NewAuth(&Config{DBName: "sgich", JWTSecret: secret, TokenTTL: time.Hour, SystemPartnerID: f.systemPID}, st)
	require.NoError(t, err)

	f.auth = a

	return f
}

func TestNewAuthRejectsShortSecret(t *testing.T) {
	_, err := NewAuth(&Config{JWTSecret: "short"}, memory.New())
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestLoginAndVerify(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	session, err := f.auth.Login(ctx, &models.SessionRequest{DB: "sgich", Login: " root ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, session.UID)
	assert.Equal(t, f.systemPID, session.PartnerID)

	actor, err := f.auth.VerifyToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{UserID: f.user.ID, PartnerID: f.systemPID, Login: "root", System: true}, actor)
}

func TestLoginFailures(t *testing.T) {
	f := newAuthFixture(t)

	for name, req := range map[string]models.SessionRequest{
		"wrong db":       {DB: "other", Login: "root", Password: "pw"},
		"wrong password": {DB: "sgich", Login: "root", Password: "nope"},
		"unknown user":   {DB: "sgich", Login: "ghost", Password: "pw"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.auth.Login(context.Background(), &req)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestVerifyTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	f := newAuthFixture(t)

	issued := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	token, _, err := GenerateJWT(f.user, []byte(secret), issued, time.Minute)
	require.NoError(t, err)

	f.auth.now = func() time.Time { return issued.Add(2 * time.Minute) }

	_, err = f.auth.VerifyToken(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)

	foreign, _, err := GenerateJWT(f.user, []byte("ffffffffffffffffffffffffffffffff"), issued, time.Hour)
	require.NoError(t, err)

	f.auth.now = func() time.Time { return issued }

	_, err = f.auth.VerifyToken(context.Background(), foreign)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), models.Actor{UserID: 4})
	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(4), actor.UserID)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))

	_, err = HashPassword("")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
