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

package backlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

// List returns the entries in status, or all entries when status is empty.
func (s *Service) List(ctx context.Context, status models.BacklogStatus) ([]*models.BacklogEntry, error) {
	var out []*models.BacklogEntry

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		out, err = tx.ListBacklogEntries(ctx, status)

		return err
	})

	return out, err
}

func (s *Service) Get(ctx context.Context, id int64) (*models.BacklogEntry, error) {
	var out *models.BacklogEntry

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		out, err = tx.GetBacklogEntry(ctx, id)

		return err
	})

	return out, err
}

// Promote materializes a pending entry into the hardware asset with the
// same unique_id, creating it when absent, and marks the entry processed.
func (s *Service) Promote(ctx context.Context, actor models.Actor, id int64) (*models.Hardware, error) {
	var hw *models.Hardware

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		entry, err := tx.GetBacklogEntry(ctx, id)
		if err != nil {
			return err
		}

		if entry.Status != models.BacklogPending {
			return fmt.Errorf("%w: promote %s entry %d", ErrInvalidTransition, entry.Status, id)
		}

		hw, err = s.upsertHardware(ctx, tx, actor, entry)
		if err != nil {
			return err
		}

		entry.Status = models.BacklogProcessed
		entry.HardwareID = &hw.ID

		if err := tx.UpdateBacklogEntry(ctx, entry); err != nil {
			return err
		}

		return s.transfer(ctx, tx, actor, entry.ID, hw.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("promote backlog entry %d: %w", id, err)
	}

	s.logger.Info().Int64("backlog_id", id).Int64("hardware_id", hw.ID).Msg("backlog entry promoted")

	return hw, nil
}

func (s *Service) upsertHardware(ctx context.Context, tx store.Tx, actor models.Actor, entry *models.BacklogEntry) (*models.Hardware, error) {
	hw, err := tx.GetHardwareByUniqueID(ctx, entry.UniqueID)

	switch {
	case errors.Is(err, store.ErrNotFound):
		hw = &models.Hardware{
			UniqueID:         entry.UniqueID,
			Name:             entry.DescriptiveName,
			Subtype:          InferSubtype(entry.RawSnapshot),
			Status:           models.HardwareDraft,
			ConnectionStatus: models.ConnectionPending,
		}

		if err := tx.CreateHardware(ctx, hw); err != nil {
			return nil, err
		}

		inc := incidents.New(models.SeverityLow,
			fmt.Sprintf("Hardware created: %s", hw.Name),
			fmt.Sprintf("Hardware %s was materialized from backlog entry %d.", hw.UniqueID, entry.ID),
			models.RefTo(models.ModelHardware, hw.ID, hw.Name))

		if err := s.journal.Record(ctx, tx, actor, inc); err != nil {
			return nil, err
		}

		return hw, nil
	case err != nil:
		return nil, err
	default:
		if hw.Subtype == "" || hw.Subtype == models.SubtypeOther {
			hw.Subtype = InferSubtype(entry.RawSnapshot)
		}

		if err := tx.UpdateHardware(ctx, hw); err != nil {
			return nil, err
		}

		return hw, nil
	}
}

// transfer copies the entry's IP, software and component links onto the
// hardware and runs the hardware hook.
func (s *Service) transfer(ctx context.Context, tx store.Tx, actor models.Actor, entryID, hardwareID int64) error {
	ips, err := tx.BacklogIPs(ctx, entryID)
	if err != nil {
		return err
	}

	if err := tx.SetHardwareIPs(ctx, hardwareID, idsOf(ips, func(ip *models.IPAddress) int64 { return ip.ID })); err != nil {
		return err
	}

	software, err := tx.BacklogSoftware(ctx, entryID)
	if err != nil {
		return err
	}

	if err := tx.SetHardwareSoftware(ctx, hardwareID, idsOf(software, func(sw *models.Software) int64 { return sw.ID })); err != nil {
		return err
	}

	components, err := tx.BacklogComponents(ctx, entryID)
	if err != nil {
		return err
	}

	if err := tx.SetHardwareComponents(ctx, hardwareID, idsOf(components, func(c *models.Component) int64 { return c.ID })); err != nil {
		return err
	}

	if s.hook == nil {
		return nil
	}

	return s.hook.HardwareChanged(ctx, tx, actor, hardwareID)
}

func idsOf[T any](items []T, id func(T) int64) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}

	return out
}

// Ignore sets a pending entry aside. A later ingest re-opens it.
func (s *Service) Ignore(ctx context.Context, id int64) (*models.BacklogEntry, error) {
	var entry *models.BacklogEntry

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		entry, err = tx.GetBacklogEntry(ctx, id)
		if err != nil {
			return err
		}

		switch entry.Status {
		case models.BacklogIgnored:
			return nil
		case models.BacklogPending:
		default:
			return fmt.Errorf("%w: ignore %s entry %d", ErrInvalidTransition, entry.Status, id)
		}

		entry.Status = models.BacklogIgnored

		return tx.UpdateBacklogEntry(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("ignore backlog entry %d: %w", id, err)
	}

	return entry, nil
}
