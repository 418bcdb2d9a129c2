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

// Package auth issues and verifies the session tokens of core.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWeakSecret         = errors.New("jwt secret must be at least 32 bytes")
)

const (
	minSecretLength = 32
	defaultTokenTTL = 12 * time.Hour
)

// Config holds what Auth needs from the core configuration.
type Config struct {
	DBName          string
	JWTSecret       string
	TokenTTL        time.Duration
	SystemPartnerID int64
}

type Auth struct {
	store           store.Store
	dbName          string
	secret          []byte
	ttl             time.Duration
	systemPartnerID int64
	now             func() time.Time
}

var _ AuthService = (*Auth)(nil)

func NewAuth(cfg *Config, st store.Store) (*Auth, error) {
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, ErrWeakSecret
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &Auth{
		store:           st,
		dbName:          cfg.DBName,
		secret:          []byte(cfg.JWTSecret),
		ttl:             ttl,
		systemPartnerID: cfg.SystemPartnerID,
		now:             time.Now,
	}, nil
}

// HashPassword returns the bcrypt hash stored for a system user.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Login checks the credentials of an active system user and opens a session.
// Every failure reports ErrInvalidCredentials.
func (a *Auth) Login(ctx context.Context, req *models.SessionRequest) (*models.SessionResponse, error) {
	if a.dbName != "" && req.DB != a.dbName {
		return nil, fmt.Errorf("%w: unknown database", ErrInvalidCredentials)
	}

	var user *models.SystemUser

	err := a.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		user, err = tx.GetSystemUserByLogin(ctx, strings.TrimSpace(req.Login))

		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, err
	}

	if !user.Active {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := GenerateJWT(user, a.secret, a.now(), a.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.SessionResponse{
		Token:     token,
		UID:       user.ID,
		PartnerID: user.PartnerID,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyToken resolves a bearer token into the actor it was issued to. The
// user must still exist and be active.
func (a *Auth) VerifyToken(ctx context.Context, token string) (models.Actor, error) {
	claims, err := ParseJWT(token, a.secret, a.now())
	if err != nil {
		return models.Actor{}, err
	}

	var user *models.SystemUser

	err = a.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		user, err = tx.GetSystemUser(ctx, claims.UserID)

		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.Actor{}, fmt.Errorf("%w: user %d is gone", ErrInvalidToken, claims.UserID)
	}

	if err != nil {
		return models.Actor{}, err
	}

	if !user.Active {
		return models.Actor{}, fmt.Errorf("%w: user %d is inactive", ErrInvalidToken, user.ID)
	}

	return models.Actor{
		UserID:    user.ID,
		PartnerID: user.PartnerID,
		Login:     user.Login,
		System:    a.systemPartnerID != 0 && user.PartnerID == a.systemPartnerID,
	}, nil
}

type actorKey struct{}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor set by WithActor.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)

	return actor, ok
}
