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

// Package assets manages hardware, IT users and profiles, and audits every
// tracked change through the incident journal.
package assets

import (
	"context"
	"fmt"
	"strings"

	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

const defaultPingLimit = 50

type Service struct {
	store   store.Store
	journal *incidents.Journal
	logger  logger.Logger
}

func NewService(st store.Store, journal *incidents.Journal, log logger.Logger) *Service {
	return &Service{store: st, journal: journal, logger: log}
}

// HardwarePatch carries the fields an operator may change. Nil means unchanged.
type HardwarePatch struct {
	Name             *string                 `json:"name,omitempty"`
	Subtype          *models.HardwareSubtype `json:"subtype,omitempty"`
	InventoryNumber  *string                 `json:"inventory_number,omitempty"`
	Status           *models.HardwareStatus  `json:"status,omitempty"`
	ResponsibleID    *int64                  `json:"responsible_id,string,omitempty"`
	ClearResponsible bool                    `json:"clear_responsible,omitempty"`
}

func validSubtype(s models.HardwareSubtype) bool {
	switch s {
	case models.SubtypePC, models.SubtypeLaptop, models.SubtypeServer, models.SubtypeMobile, models.SubtypeOther:
		return true
	default:
		return false
	}
}

func (s *Service) checkResponsible(ctx context.Context, tx store.Tx, id *int64) error {
	if id == nil {
		return nil
	}

	_, err := tx.GetITUser(ctx, *id)

	return err
}

func (s *Service) CreateHardware(ctx context.Context, actor models.Actor, hw *models.Hardware) (*models.Hardware, error) {
	hw.Name = strings.TrimSpace(hw.Name)
	if hw.Name == "" {
		return nil, fmt.Errorf("%w: hardware name is required", ErrValidation)
	}

	if hw.Subtype == "" {
		hw.Subtype = models.SubtypeOther
	}

	if hw.Status == "" {
		hw.Status = models.HardwareDraft
	}

	if !validSubtype(hw.Subtype) || !hw.Status.Valid() {
		return nil, fmt.Errorf("%w: subtype %q status %q", ErrValidation, hw.Subtype, hw.Status)
	}

	hw.ConnectionStatus = models.ConnectionPending
	hw.LastPingAt = nil

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := s.checkResponsible(ctx, tx, hw.ResponsibleID); err != nil {
			return err
		}

		if err := tx.CreateHardware(ctx, hw); err != nil {
			return err
		}

		return s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityLow,
			fmt.Sprintf("Hardware created: %s", hw.Name),
			fmt.Sprintf("Hardware %q was registered.", hw.Name),
			models.RefTo(models.ModelHardware, hw.ID, hw.Name)))
	})
	if err != nil {
		return nil, fmt.Errorf("create hardware: %w", err)
	}

	return hw, nil
}

func (s *Service) GetHardware(ctx context.Context, id int64) (*models.Hardware, error) {
	var hw *models.Hardware

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		hw, err = tx.GetHardware(ctx, id)

		return err
	})

	return hw, err
}

func (s *Service) ListHardware(ctx context.Context, filter models.HardwareFilter) ([]*models.Hardware, error) {
	var out []*models.Hardware

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		out, err = tx.ListHardware(ctx, filter)

		return err
	})

	return out, err
}

// Pings returns the probe history of a hardware, newest first.
func (s *Service) Pings(ctx context.Context, hardwareID int64, limit int) ([]*models.PingRecord, error) {
	if limit <= 0 {
		limit = defaultPingLimit
	}

	var out []*models.PingRecord

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetHardware(ctx, hardwareID); err != nil {
			return err
		}

		var err error

		out, err = tx.ListPings(ctx, hardwareID, limit)

		return err
	})

	return out, err
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// applyPatch updates hw in place and lists the tracked fields that changed.
func applyPatch(hw *models.Hardware, p HardwarePatch) ([]string, error) {
	var changed []string

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: hardware name is required", ErrValidation)
		}

		if name != hw.Name {
			changed = append(changed, fmt.Sprintf("name %q -> %q", hw.Name, name))
			hw.Name = name
		}
	}

	if p.Status != nil && *p.Status != hw.Status {
		if !p.Status.Valid() {
			return nil, fmt.Errorf("%w: status %q", ErrValidation, *p.Status)
		}

		changed = append(changed, fmt.Sprintf("status %s -> %s", hw.Status, *p.Status))
		hw.Status = *p.Status
	}

	next := hw.ResponsibleID
	if p.ClearResponsible {
		next = nil
	} else if p.ResponsibleID != nil {
		next = p.ResponsibleID
	}

	if !sameID(next, hw.ResponsibleID) {
		changed = append(changed, "responsible")
		hw.ResponsibleID = next
	}

	if p.Subtype != nil {
		if !validSubtype(*p.Subtype) {
			return nil, fmt.Errorf("%w: subtype %q", ErrValidation, *p.Subtype)
		}

		hw.Subtype = *p.Subtype
	}

	if p.InventoryNumber != nil {
		hw.InventoryNumber = strings.TrimSpace(*p.InventoryNumber)
	}

	return changed, nil
}

// UpdateHardware applies p. A change to name, status or responsible records
// a medium incident; a new responsible triggers a compliance check.
func (s *Service) UpdateHardware(ctx context.Context, actor models.Actor, id int64, p HardwarePatch) (*models.Hardware, error) {
	var hw *models.Hardware

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		hw, err = tx.GetHardware(ctx, id)
		if err != nil {
			return err
		}

		before := hw.ResponsibleID

		changed, err := applyPatch(hw, p)
		if err != nil {
			return err
		}

		if err := s.checkResponsible(ctx, tx, hw.ResponsibleID); err != nil {
			return err
		}

		if err := tx.UpdateHardware(ctx, hw); err != nil {
			return err
		}

		if len(changed) == 0 {
			return nil
		}

		if err := s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityMedium,
			fmt.Sprintf("Hardware updated: %s", hw.Name),
			fmt.Sprintf("Changed %s.", strings.Join(changed, ", ")),
			models.RefTo(models.ModelHardware, hw.ID, hw.Name))); err != nil {
			return err
		}

		if hw.ResponsibleID != nil && !sameID(before, hw.ResponsibleID) {
			_, err = s.checkMember(ctx, tx, actor, *hw.ResponsibleID)
		}

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update hardware %d: %w", id, err)
	}

	return hw, nil
}

// DeleteHardware removes the asset and records a high incident that keeps
// only a textual reference to it.
func (s *Service) DeleteHardware(ctx context.Context, actor models.Actor, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		hw, err := tx.GetHardware(ctx, id)
		if err != nil {
			return err
		}

		if err := tx.DeleteHardware(ctx, id); err != nil {
			return err
		}

		label := hw.Name
		if hw.UniqueID != "" {
			label = fmt.Sprintf("%s (%s)", hw.Name, hw.UniqueID)
		}

		return s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityHigh,
			fmt.Sprintf("Hardware deleted: %s", hw.Name),
			fmt.Sprintf("Hardware %s was deleted.", label),
			models.TextRef(models.ModelHardware, label)))
	})
	if err != nil {
		return fmt.Errorf("delete hardware %d: %w", id, err)
	}

	s.logger.Info().Int64("hardware_id", id).Msg("hardware deleted")

	return nil
}

// HardwareChanged re-checks the responsible's compliance after the
// hardware's software or components were replaced.
func (s *Service) HardwareChanged(ctx context.Context, tx store.Tx, actor models.Actor, hardwareID int64) error {
	hw, err := tx.GetHardware(ctx, hardwareID)
	if err != nil {
		return err
	}

	if hw.ResponsibleID == nil {
		return nil
	}

	_, err = s.checkMember(ctx, tx, actor, *hw.ResponsibleID)

	return err
}
