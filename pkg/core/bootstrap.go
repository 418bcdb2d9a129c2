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
	"fmt"
	"strings"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

var errInvalidUserSeed = errors.New("user seed needs a login and a bcrypt password_hash")

// ensureBuiltins makes sure the system partner, the AI partner and the AI
// channel exist. Missing rows are created and cfg is pointed at them.
func ensureBuiltins(ctx context.Context, st store.Store, cfg *models.CoreServiceConfig, log logger.Logger) error {
	return st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		systemID, err := ensurePartner(ctx, tx, cfg.SystemPartnerID, "System")
		if err != nil {
			return err
		}

		aiID, err := ensurePartner(ctx, tx, cfg.AIPartnerID, "AI Assistant")
		if err != nil {
			return err
		}

		ch, err := tx.GetChannel(ctx, cfg.AIChannelID)

		switch {
		case errors.Is(err, store.ErrNotFound):
			ch = &models.ChatChannel{Name: "ai-assistant", Kind: models.ChannelGroup, Members: []int64{aiID}}
			if err := tx.CreateChannel(ctx, ch); err != nil {
				return fmt.Errorf("create AI channel: %w", err)
			}

			log.Info().Int64("channel_id", ch.ID).Msg("Created AI channel")
		case err != nil:
			return err
		}

		cfg.SystemPartnerID, cfg.AIPartnerID, cfg.AIChannelID = systemID, aiID, ch.ID

		return nil
	})
}

func ensurePartner(ctx context.Context, tx store.Tx, id int64, name string) (int64, error) {
	p, err := tx.GetPartner(ctx, id)
	if err == nil {
		return p.ID, nil
	}

	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	p = &models.Partner{Name: name}
	if err := tx.CreatePartner(ctx, p); err != nil {
		return 0, fmt.Errorf("create partner %q: %w", name, err)
	}

	return p.ID, nil
}

// seedUsers creates the configured system users whose login is unknown.
// Existing users are never modified.
func seedUsers(ctx context.Context, st store.Store, seeds []models.UserSeed, systemPartnerID int64, log logger.Logger) error {
	for _, seed := range seeds {
		login := strings.TrimSpace(seed.Login)
		if login == "" || !strings.HasPrefix(seed.PasswordHash, "$2") {
			return fmt.Errorf("%w: %q", errInvalidUserSeed, seed.Login)
		}

		var created bool

		err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			_, err := tx.GetSystemUserByLogin(ctx, login)
			if err == nil {
				return nil
			}

			if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			partnerID := systemPartnerID

			if !seed.System {
				name := seed.Name
				if name == "" {
					name = login
				}

				p := &models.Partner{Name: name}
				if err := tx.CreatePartner(ctx, p); err != nil {
					return err
				}

				partnerID = p.ID
			}

			created = true

			return tx.CreateSystemUser(ctx, &models.SystemUser{
				Login:        login,
				PasswordHash: seed.PasswordHash,
				PartnerID:    partnerID,
				Active:       true,
			})
		})
		if err != nil {
			return fmt.Errorf("seed user %q: %w", login, err)
		}

		if created {
			log.Info().Str("login", login).Bool("system", seed.System).Msg("Created system user")
		}
	}

	return nil
}
