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

	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

// Violation is one piece of software found outside a profile's allow-list.
type Violation struct {
	ProfileID  int64 `json:"profile_id,string"`
	ITUserID   int64 `json:"it_user_id,string"`
	HardwareID int64 `json:"hardware_id,string"`
	SoftwareID int64 `json:"software_id,string"`
	IncidentID int64 `json:"incident_id,string,omitempty"`
}

func complianceFingerprint(profileID, itUserID, softwareID int64) string {
	return fmt.Sprintf("compliance:%d:%d:%d", profileID, itUserID, softwareID)
}

// CheckProfile runs the compliance check for every member of a profile
// against that profile's allow-list. Violations never block anything; they
// become medium incidents.
func (s *Service) CheckProfile(ctx context.Context, actor models.Actor, profileID int64) ([]Violation, error) {
	var out []Violation

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProfile(ctx, profileID)
		if err != nil {
			return err
		}

		out, err = s.checkMembers(ctx, tx, actor, p)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("check profile %d: %w", profileID, err)
	}

	return out, nil
}

func (s *Service) checkMembers(ctx context.Context, tx store.Tx, actor models.Actor, p *models.Profile) ([]Violation, error) {
	var out []Violation

	for _, m := range p.Members {
		v, err := s.checkAgainst(ctx, tx, actor, p, m)
		if err != nil {
			return nil, err
		}

		out = append(out, v...)
	}

	return out, nil
}

// checkMember re-checks an IT user against each of their profiles in turn.
// A user in no profile has nothing to comply with.
func (s *Service) checkMember(ctx context.Context, tx store.Tx, actor models.Actor, itUserID int64) ([]Violation, error) {
	profiles, err := tx.ProfilesForMember(ctx, itUserID)
	if err != nil {
		return nil, err
	}

	var out []Violation

	for _, p := range profiles {
		v, err := s.checkAgainst(ctx, tx, actor, p, itUserID)
		if err != nil {
			return nil, err
		}

		out = append(out, v...)
	}

	return out, nil
}

// checkAgainst compares the software on every hardware the IT user is
// responsible for with the allow-list of p.
func (s *Service) checkAgainst(ctx context.Context, tx store.Tx, actor models.Actor, p *models.Profile, itUserID int64) ([]Violation, error) {
	allowed := make(map[int64]struct{}, len(p.AllowedSoftware))
	for _, id := range p.AllowedSoftware {
		allowed[id] = struct{}{}
	}

	user, err := tx.GetITUser(ctx, itUserID)
	if err != nil {
		return nil, err
	}

	held, err := tx.ListHardware(ctx, models.HardwareFilter{ResponsibleID: &itUserID})
	if err != nil {
		return nil, err
	}

	var out []Violation

	for _, hw := range held {
		installed, err := tx.HardwareSoftware(ctx, hw.ID)
		if err != nil {
			return nil, err
		}

		for _, sw := range installed {
			if _, ok := allowed[sw.ID]; ok {
				continue
			}

			v := Violation{ProfileID: p.ID, ITUserID: user.ID, HardwareID: hw.ID, SoftwareID: sw.ID}

			inc := incidents.New(models.SeverityMedium,
				fmt.Sprintf("Unauthorized software: %s", sw.Label()),
				fmt.Sprintf("%s is installed on %s, responsible %q, and is not allowed by profile %q.",
					sw.Label(), hw.Name, user.Name, p.Name),
				models.RefTo(models.ModelITUser, user.ID, user.Name))
			inc.Fingerprint = complianceFingerprint(p.ID, user.ID, sw.ID)

			wrote, err := s.journal.RecordOnce(ctx, tx, actor, inc)
			if err != nil {
				return nil, err
			}

			if wrote {
				v.IncidentID = inc.ID
			}

			out = append(out, v)
		}
	}

	if len(out) > 0 {
		s.logger.Warn().Int64("profile_id", p.ID).Int64("it_user_id", itUserID).Int("violations", len(out)).
			Msg("software compliance violations")
	}

	return out, nil
}
