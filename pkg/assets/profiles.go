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
	"slices"
	"strings"

	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

// ProfilePatch replaces the fields that are set. A nil slice leaves the
// collection unchanged; an empty one clears it.
type ProfilePatch struct {
	Name            *string `json:"name,omitempty"`
	AllowedSoftware []int64 `json:"allowed_software,omitempty"`
	Members         []int64 `json:"members,omitempty"`
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))

	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	return out
}

func sameSet(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}

	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)

	return slices.Equal(x, y)
}

func (s *Service) checkProfileRefs(ctx context.Context, tx store.Tx, p *models.Profile) error {
	for _, id := range p.AllowedSoftware {
		if _, err := tx.GetSoftware(ctx, id); err != nil {
			return err
		}
	}

	for _, id := range p.Members {
		if _, err := tx.GetITUser(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) CreateProfile(ctx context.Context, actor models.Actor, p *models.Profile) (*models.Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: profile name is required", ErrValidation)
	}

	p.AllowedSoftware = dedupe(p.AllowedSoftware)
	p.Members = dedupe(p.Members)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := s.checkProfileRefs(ctx, tx, p); err != nil {
			return err
		}

		if err := tx.CreateProfile(ctx, p); err != nil {
			return err
		}

		if err := s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityLow,
			fmt.Sprintf("Profile created: %s", p.Name),
			fmt.Sprintf("Profile %q allows %d software and has %d members.", p.Name, len(p.AllowedSoftware), len(p.Members)),
			models.RefTo(models.ModelProfile, p.ID, p.Name))); err != nil {
			return err
		}

		_, err := s.checkMembers(ctx, tx, actor, p)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return p, nil
}

func (s *Service) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	var p *models.Profile

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		p, err = tx.GetProfile(ctx, id)

		return err
	})

	return p, err
}

// UpdateProfile records a medium incident when the allow-list or the member
// set changed, then re-checks every member against it.
func (s *Service) UpdateProfile(ctx context.Context, actor models.Actor, id int64, patch ProfilePatch) (*models.Profile, error) {
	var p *models.Profile

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		p, err = tx.GetProfile(ctx, id)
		if err != nil {
			return err
		}

		var changed []string

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return fmt.Errorf("%w: profile name is required", ErrValidation)
			}

			p.Name = name
		}

		if patch.AllowedSoftware != nil {
			next := dedupe(patch.AllowedSoftware)
			if !sameSet(next, p.AllowedSoftware) {
				changed = append(changed, "allowed software")
			}

			p.AllowedSoftware = next
		}

		if patch.Members != nil {
			next := dedupe(patch.Members)
			if !sameSet(next, p.Members) {
				changed = append(changed, "members")
			}

			p.Members = next
		}

		if err := s.checkProfileRefs(ctx, tx, p); err != nil {
			return err
		}

		if err := tx.UpdateProfile(ctx, p); err != nil {
			return err
		}

		if len(changed) == 0 {
			return nil
		}

		if err := s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityMedium,
			fmt.Sprintf("Profile updated: %s", p.Name),
			fmt.Sprintf("Changed %s.", strings.Join(changed, " and ")),
			models.RefTo(models.ModelProfile, p.ID, p.Name))); err != nil {
			return err
		}

		_, err = s.checkMembers(ctx, tx, actor, p)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update profile %d: %w", id, err)
	}

	return p, nil
}

func (s *Service) DeleteProfile(ctx context.Context, actor models.Actor, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProfile(ctx, id)
		if err != nil {
			return err
		}

		if err := tx.DeleteProfile(ctx, id); err != nil {
			return err
		}

		return s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityHigh,
			fmt.Sprintf("Profile deleted: %s", p.Name),
			fmt.Sprintf("Profile %q with %d members was deleted.", p.Name, len(p.Members)),
			models.TextRef(models.ModelProfile, p.Name)))
	})
	if err != nil {
		return fmt.Errorf("delete profile %d: %w", id, err)
	}

	return nil
}

// InvolvedHardware is the union of the hardware each member is responsible for.
func (s *Service) InvolvedHardware(ctx context.Context, profileID int64) ([]*models.Hardware, error) {
	var out []*models.Hardware

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProfile(ctx, profileID)
		if err != nil {
			return err
		}

		seen := make(map[int64]struct{})

		for _, member := range p.Members {
			held, err := tx.ListHardware(ctx, models.HardwareFilter{ResponsibleID: &member})
			if err != nil {
				return err
			}

			for _, hw := range held {
				if _, dup := seen[hw.ID]; dup {
					continue
				}

				seen[hw.ID] = struct{}{}
				out = append(out, hw)
			}
		}

		return nil
	})

	return out, err
}
