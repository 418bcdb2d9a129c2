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

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sgich/assetradar/pkg/models"
)

func (t *pgTx) CreatePartner(ctx context.Context, p *models.Partner) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO partners (name) VALUES ($1) RETURNING id`, p.Name).Scan(&p.ID)
	return mapError(fmt.Sprintf("create partner %q", p.Name), err)
}

func (t *pgTx) GetPartner(ctx context.Context, id int64) (*models.Partner, error) {
	var p models.Partner

	if err := t.tx.QueryRow(ctx, `SELECT id, name FROM partners WHERE id = $1`, id).Scan(&p.ID, &p.Name); err != nil {
		return nil, mapError(fmt.Sprintf("partner %d", id), err)
	}

	return &p, nil
}

func (t *pgTx) CreateSystemUser(ctx context.Context, u *models.SystemUser) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO system_users (login, password_hash, partner_id, active)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Login, u.PasswordHash, u.PartnerID, u.Active).Scan(&u.ID)

	return mapError(fmt.Sprintf("create login %q", u.Login), err)
}

func (t *pgTx) getSystemUser(ctx context.Context, what, where string, arg interface{}) (*models.SystemUser, error) {
	var u models.SystemUser

	err := t.tx.QueryRow(ctx, `
		SELECT id, login, password_hash, partner_id, active FROM system_users WHERE `+where, arg).
		Scan(&u.ID, &u.Login, &u.PasswordHash, &u.PartnerID, &u.Active)
	if err != nil {
		return nil, mapError(what, err)
	}

	return &u, nil
}

func (t *pgTx) GetSystemUser(ctx context.Context, id int64) (*models.SystemUser, error) {
	return t.getSystemUser(ctx, fmt.Sprintf("system user %d", id), "id = $1", id)
}

func (t *pgTx) GetSystemUserByLogin(ctx context.Context, login string) (*models.SystemUser, error) {
	return t.getSystemUser(ctx, fmt.Sprintf("login %q", login), "login = $1", login)
}

func (t *pgTx) CreateITUser(ctx context.Context, u *models.ITUser) error {
	if u.Status == "" {
		u.Status = models.ITUserDraft
	}

	err := t.tx.QueryRow(ctx, `
		INSERT INTO it_users (system_user_id, name, status) VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		u.SystemUserID, u.Name, string(u.Status)).Scan(&u.ID, &u.CreatedAt)

	return mapError(fmt.Sprintf("create it user for system user %d", u.SystemUserID), err)
}

func (t *pgTx) GetITUser(ctx context.Context, id int64) (*models.ITUser, error) {
	var (
		u      models.ITUser
		status string
	)

	err := t.tx.QueryRow(ctx, `
		SELECT id, system_user_id, name, status, created_at FROM it_users WHERE id = $1`, id).
		Scan(&u.ID, &u.SystemUserID, &u.Name, &status, &u.CreatedAt)
	if err != nil {
		return nil, mapError(fmt.Sprintf("it user %d", id), err)
	}

	u.Status = models.ITUserStatus(status)

	return &u, nil
}

func (t *pgTx) UpdateITUser(ctx context.Context, u *models.ITUser) error {
	tag, err := t.tx.Exec(ctx, `UPDATE it_users SET name = $2, status = $3 WHERE id = $1`,
		u.ID, u.Name, string(u.Status))

	return expectRow(fmt.Sprintf("update it user %d", u.ID), tag, err)
}

func (t *pgTx) CreateProfile(ctx context.Context, p *models.Profile) error {
	if err := t.tx.QueryRow(ctx, `INSERT INTO profiles (name) VALUES ($1) RETURNING id`, p.Name).Scan(&p.ID); err != nil {
		return mapError(fmt.Sprintf("create profile %q", p.Name), err)
	}

	return t.writeProfileLinks(ctx, p)
}

func (t *pgTx) writeProfileLinks(ctx context.Context, p *models.Profile) error {
	if err := t.replaceLinks(ctx, profileSoftwareLinks, p.ID, p.AllowedSoftware); err != nil {
		return err
	}

	return t.replaceLinks(ctx, profileMemberLinks, p.ID, p.Members)
}

func (t *pgTx) loadProfileLinks(ctx context.Context, p *models.Profile) error {
	var err error

	if p.AllowedSoftware, err = t.linkedIDs(ctx, profileSoftwareLinks, p.ID); err != nil {
		return err
	}

	p.Members, err = t.linkedIDs(ctx, profileMemberLinks, p.ID)

	return err
}

func (t *pgTx) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	p := &models.Profile{}

	if err := t.tx.QueryRow(ctx, `SELECT id, name FROM profiles WHERE id = $1`, id).Scan(&p.ID, &p.Name); err != nil {
		return nil, mapError(fmt.Sprintf("profile %d", id), err)
	}

	if err := t.loadProfileLinks(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (t *pgTx) UpdateProfile(ctx context.Context, p *models.Profile) error {
	tag, err := t.tx.Exec(ctx, `UPDATE profiles SET name = $2 WHERE id = $1`, p.ID, p.Name)
	if err := expectRow(fmt.Sprintf("update profile %d", p.ID), tag, err); err != nil {
		return err
	}

	return t.writeProfileLinks(ctx, p)
}

func (t *pgTx) DeleteProfile(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	return expectRow(fmt.Sprintf("delete profile %d", id), tag, err)
}

func (t *pgTx) listProfiles(ctx context.Context, query string, args ...interface{}) ([]*models.Profile, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list profiles", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Profile, error) {
		p := &models.Profile{}
		return p, row.Scan(&p.ID, &p.Name)
	})
	if err != nil {
		return nil, mapError("scan profiles", err)
	}

	for _, p := range out {
		if err := t.loadProfileLinks(ctx, p); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (t *pgTx) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	return t.listProfiles(ctx, `SELECT id, name FROM profiles ORDER BY id`)
}

func (t *pgTx) ProfilesForMember(ctx context.Context, itUserID int64) ([]*models.Profile, error) {
	return t.listProfiles(ctx, `
		SELECT p.id, p.name FROM profiles p
		JOIN profile_members m ON m.profile_id = p.id
		WHERE m.it_user_id = $1 ORDER BY p.id`, itUserID)
}

func (t *pgTx) GetConfigParameter(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := t.tx.QueryRow(ctx, `SELECT value FROM config_parameters WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, mapError(fmt.Sprintf("config parameter %q", key), err)
	}

	return value, true, nil
}

func (t *pgTx) SetConfigParameter(ctx context.Context, key, value string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO config_parameters (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)

	return mapError(fmt.Sprintf("set config parameter %q", key), err)
}
