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

package assets

import (
	"context"
	"fmt"
	"strings"

	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

// itUserTransitions lists the states each action may start from.
var itUserTransitions = map[models.ITUserStatus][]models.ITUserStatus{
	models.ITUserActive:  {models.ITUserDraft, models.ITUserRevoked},
	models.ITUserDraft:   {models.ITUserActive},
	models.ITUserRevoked: {models.ITUserDraft, models.ITUserActive},
	models.ITUserRetired: {models.ITUserRevoked},
}

func (s *Service) CreateITUser(ctx context.Context, actor models.Actor, u *models.ITUser) (*models.ITUser, error) {
	if u.SystemUserID == 0 {
		return nil, fmt.Errorf("%w: system_user_id is required", ErrValidation)
	}

	u.Status = models.ITUserDraft

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		su, err := tx.GetSystemUser(ctx, u.SystemUserID)
		if err != nil {
			return err
		}

		if strings.TrimSpace(u.Name) == "" {
			u.Name = su.Login
		}

		if err := tx.CreateITUser(ctx, u); err != nil {
			return err
		}

		return s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityLow,
			fmt.Sprintf("IT user created: %s", u.Name),
			fmt.Sprintf("IT user %q was bound to system user %s.", u.Name, su.Login),
			models.RefTo(models.ModelITUser, u.ID, u.Name)))
	})
	if err != nil {
		return nil, fmt.Errorf("create it user: %w", err)
	}

	return u, nil
}

func (s *Service) ActivateITUser(ctx context.Context, actor models.Actor, id int64) (*models.ITUser, error) {
	return s.moveITUser(ctx, actor, id, models.ITUserActive)
}

// SuspendITUser sends an active user back to draft. Responsible links stay.
func (s *Service) SuspendITUser(ctx context.Context, actor models.Actor, id int64) (*models.ITUser, error) {
	return s.moveITUser(ctx, actor, id, models.ITUserDraft)
}

// RevokeITUser withdraws access and clears the user as responsible of every
// hardware they held.
func (s *Service) RevokeITUser(ctx context.Context, actor models.Actor, id int64) (*models.ITUser, error) {
	return s.moveITUser(ctx, actor, id, models.ITUserRevoked)
}

func (s *Service) RetireITUser(ctx context.Context, actor models.Actor, id int64) (*models.ITUser, error) {
	return s.moveITUser(ctx, actor, id, models.ITUserRetired)
}

func allowedFrom(to, from models.ITUserStatus) bool {
	for _, s := range itUserTransitions[to] {
		if s == from {
			return true
		}
	}

	return false
}

func (s *Service) moveITUser(ctx context.Context, actor models.Actor, id int64, to models.ITUserStatus) (*models.ITUser, error) {
	var u *models.ITUser

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		u, err = tx.GetITUser(ctx, id)
		if err != nil {
			return err
		}

		if !allowedFrom(to, u.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, u.Status, to)
		}

		from := u.Status
		u.Status = to

		if err := tx.UpdateITUser(ctx, u); err != nil {
			return err
		}

		if err := s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityMedium,
			fmt.Sprintf("IT user %s: %s", to, u.Name),
			fmt.Sprintf("IT user %q moved from %s to %s.", u.Name, from, to),
			models.RefTo(models.ModelITUser, u.ID, u.Name))); err != nil {
			return err
		}

		if to == models.ITUserRevoked {
			return s.releaseHardware(ctx, tx, actor, u)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("it user %d: %w", id, err)
	}

	return u, nil
}

func (s *Service) releaseHardware(ctx context.Context, tx store.Tx, actor models.Actor, u *models.ITUser) error {
	held, err := tx.ListHardware(ctx, models.HardwareFilter{ResponsibleID: &u.ID})
	if err != nil {
		return err
	}

	for _, hw := range held {
		hw.ResponsibleID = nil

		if err := tx.UpdateHardware(ctx, hw); err != nil {
			return err
		}

		if err := s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityMedium,
			fmt.Sprintf("Hardware updated: %s", hw.Name),
			fmt.Sprintf("Responsible %q cleared after revocation.", u.Name),
			models.RefTo(models.ModelHardware, hw.ID, hw.Name))); err != nil {
			return err
		}
	}

	if len(held) > 0 {
		s.logger.Info().Int64("it_user_id", u.ID).Int("hardware", len(held)).Msg("responsible links cleared")
	}

	return nil
}
