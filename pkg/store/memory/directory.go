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

package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

func (t *memTx) CreatePartner(_ context.Context, p *models.Partner) error {
	p.ID = t.nextID()
	t.st.partners[p.ID] = clonePtr(p)

	return nil
}

func (t *memTx) GetPartner(_ context.Context, id int64) (*models.Partner, error) {
	p, ok := t.st.partners[id]
	if !ok {
		return nil, fmt.Errorf("partner %d: %w", id, store.ErrNotFound)
	}

	return clonePtr(p), nil
}

func (t *memTx) CreateSystemUser(_ context.Context, u *models.SystemUser) error {
	for _, other := range t.st.users {
		if other.Login == u.Login {
			return fmt.Errorf("login %q: %w", u.Login, store.ErrConflict)
		}
	}

	u.ID = t.nextID()
	t.st.users[u.ID] = clonePtr(u)

	return nil
}

func (t *memTx) GetSystemUser(_ context.Context, id int64) (*models.SystemUser, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}

	return clonePtr(u), nil
}

func (t *memTx) GetSystemUserByLogin(_ context.Context, login string) (*models.SystemUser, error) {
	for _, u := range t.st.users {
		if u.Login == login {
			return clonePtr(u), nil
		}
	}

	return nil, fmt.Errorf("user %q: %w", login, store.ErrNotFound)
}

func (t *memTx) CreateITUser(_ context.Context, u *models.ITUser) error {
	for _, other := range t.st.itUsers {
		if other.SystemUserID == u.SystemUserID {
			return fmt.Errorf("it user for system user %d: %w", u.SystemUserID, store.ErrConflict)
		}
	}

	u.ID = t.nextID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	t.st.itUsers[u.ID] = clonePtr(u)

	return nil
}

func (t *memTx) GetITUser(_ context.Context, id int64) (*models.ITUser, error) {
	u, ok := t.st.itUsers[id]
	if !ok {
		return nil, fmt.Errorf("it user %d: %w", id, store.ErrNotFound)
	}

	return clonePtr(u), nil
}

func (t *memTx) UpdateITUser(_ context.Context, u *models.ITUser) error {
	if _, ok := t.st.itUsers[u.ID]; !ok {
		return fmt.Errorf("it user %d: %w", u.ID, store.ErrNotFound)
	}

	t.st.itUsers[u.ID] = clonePtr(u)

	return nil
}

func (t *memTx) profileNameTaken(p *models.Profile) bool {
	for _, other := range t.st.profiles {
		if other.ID != p.ID && other.Name == p.Name {
			return true
		}
	}

	return false
}

func (t *memTx) CreateProfile(_ context.Context, p *models.Profile) error {
	if t.profileNameTaken(p) {
		return fmt.Errorf("profile %q: %w", p.Name, store.ErrConflict)
	}

	p.ID = t.nextID()
	t.st.profiles[p.ID] = copyProfile(p)

	return nil
}

func (t *memTx) GetProfile(_ context.Context, id int64) (*models.Profile, error) {
	p, ok := t.st.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %d: %w", id, store.ErrNotFound)
	}

	return copyProfile(p), nil
}

func (t *memTx) UpdateProfile(_ context.Context, p *models.Profile) error {
	if _, ok := t.st.profiles[p.ID]; !ok {
		return fmt.Errorf("profile %d: %w", p.ID, store.ErrNotFound)
	}

	if t.profileNameTaken(p) {
		return fmt.Errorf("profile %q: %w", p.Name, store.ErrConflict)
	}

	t.st.profiles[p.ID] = copyProfile(p)

	return nil
}

func (t *memTx) DeleteProfile(_ context.Context, id int64) error {
	if _, ok := t.st.profiles[id]; !ok {
		return fmt.Errorf("profile %d: %w", id, store.ErrNotFound)
	}

	delete(t.st.profiles, id)

	return nil
}

func (t *memTx) ListProfiles(_ context.Context) ([]*models.Profile, error) {
	out := make([]*models.Profile, 0, len(t.st.profiles))
	for _, id := range sortedKeys(t.st.profiles) {
		out = append(out, copyProfile(t.st.profiles[id]))
	}

	return out, nil
}

func (t *memTx) ProfilesForMember(_ context.Context, itUserID int64) ([]*models.Profile, error) {
	out := make([]*models.Profile, 0)

	for _, id := range sortedKeys(t.st.profiles) {
		p := t.st.profiles[id]
		if containsID(p.Members, itUserID) {
			out = append(out, copyProfile(p))
		}
	}

	return out, nil
}

func (t *memTx) GetConfigParameter(_ context.Context, key string) (string, bool, error) {
	v, ok := t.st.params[key]
	return v, ok, nil
}

func (t *memTx) SetConfigParameter(_ context.Context, key, value string) error {
	t.st.params[key] = value
	return nil
}
