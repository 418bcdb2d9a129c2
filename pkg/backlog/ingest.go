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

// Package backlog accepts host snapshots into the backlog and promotes
// approved entries into hardware assets.
package backlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/metrics"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

// HardwareHook runs inside the unit of work that changed a hardware's
// software or components.
type HardwareHook interface {
	HardwareChanged(ctx context.Context, tx store.Tx, actor models.Actor, hardwareID int64) error
}

type Service struct {
	store   store.Store
	journal *incidents.Journal
	modules models.ModulesConfig
	hook    HardwareHook
	logger  logger.Logger
}

func NewService(st store.Store, journal *incidents.Journal, modules models.ModulesConfig, log logger.Logger) *Service {
	return &Service{store: st, journal: journal, modules: modules, logger: log}
}

// SetHardwareHook installs the hook called after hardware links change.
func (s *Service) SetHardwareHook(h HardwareHook) {
	s.hook = h
}

// Capabilities reports the optional inventory modules this server accepts.
func (s *Service) Capabilities() models.Capabilities {
	return models.Capabilities{
		Hardware: s.modules.Hardware,
		Software: s.modules.Software,
		Network:  s.modules.Network,
	}
}

func validatePayload(p *models.InventoryPayload) error {
	if p == nil {
		return fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}

	p.UniqueID = strings.TrimSpace(p.UniqueID)
	if p.UniqueID == "" {
		return fmt.Errorf("%w: unique_id is required", ErrInvalidPayload)
	}

	p.Type = p.Type.Normalize()

	if strings.TrimSpace(p.DescriptiveName) == "" {
		p.DescriptiveName = p.UniqueID
	}

	return nil
}

// Ingest upserts the backlog entry for p.UniqueID as one unit of work. The
// entry row stays locked for the whole transaction, so concurrent ingests of
// the same host run one after the other.
func (s *Service) Ingest(ctx context.Context, actor models.Actor, p *models.InventoryPayload) (*models.IngestResult, error) {
	if err := validatePayload(p); err != nil {
		return nil, err
	}

	if !s.modules.Software {
		p.DetectedSoftware = nil
	}

	if !s.modules.Network {
		p.DetectedIPs = nil
	}

	hash, err := snapshotHash(p)
	if err != nil {
		return nil, err
	}

	ips, rejected := normalizeIPs(p.DetectedIPs)
	if len(rejected) > 0 {
		s.logger.Warn().Str("unique_id", p.UniqueID).Strs("rejected", rejected).Msg("ignoring malformed addresses")
	}

	sys := actor.Sudo()
	result := &models.IngestResult{}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		entry, created, err := tx.LockBacklogEntry(ctx, p.UniqueID)
		if err != nil {
			return err
		}

		result.BacklogID = entry.ID
		result.Created = created
		result.Changed = created || entry.SnapshotHash != hash

		reopened := entry.Status == models.BacklogIgnored
		if reopened {
			entry.Status = models.BacklogPending
		}

		if !result.Changed && !reopened {
			return nil
		}

		entry.DescriptiveName = p.DescriptiveName
		entry.Type = p.Type
		entry.RawSnapshot = rawOrEmpty(p.RawSnapshot)
		entry.SnapshotHash = hash

		if err := tx.UpdateBacklogEntry(ctx, entry); err != nil {
			return err
		}

		if result.Changed {
			if err := s.unpack(ctx, tx, sys, entry, ips, p); err != nil {
				return err
			}
		}

		return s.recordIngest(ctx, tx, sys, entry, created, result.Changed)
	})
	if err != nil {
		return nil, fmt.Errorf("ingest %q: %w", p.UniqueID, err)
	}

	outcome := "unchanged"

	switch {
	case result.Created:
		outcome = "created"
	case result.Changed:
		outcome = "changed"
	}

	metrics.RecordIngest(ctx, outcome)

	s.logger.Info().
		Str("unique_id", p.UniqueID).
		Int64("backlog_id", result.BacklogID).
		Str("outcome", outcome).
		Msg("inventory ingested")

	return result, nil
}

func rawOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}

	return raw
}

func (s *Service) recordIngest(ctx context.Context, tx store.Tx, actor models.Actor, entry *models.BacklogEntry, created, changed bool) error {
	ref := models.RefTo(models.ModelBacklogEntry, entry.ID, entry.DescriptiveName)

	switch {
	case created:
		return s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityLow,
			fmt.Sprintf("New host discovered: %s", entry.DescriptiveName),
			fmt.Sprintf("Backlog entry created for %s by the inventory agent.", entry.UniqueID), ref))
	case changed:
		return s.journal.Record(ctx, tx, actor, incidents.New(models.SeverityInfo,
			fmt.Sprintf("Inventory changed: %s", entry.DescriptiveName),
			fmt.Sprintf("A new snapshot for %s differs from the stored one.", entry.UniqueID), ref))
	default:
		return nil
	}
}

// unpack replaces the entry's IP, component and software sets with the ones
// in p, creating catalog records as needed.
func (s *Service) unpack(ctx context.Context, tx store.Tx, actor models.Actor, entry *models.BacklogEntry, ips []string, p *models.InventoryPayload) error {
	ipIDs := make([]int64, 0, len(ips))

	for _, addr := range ips {
		ip, err := tx.FindOrCreateIP(ctx, addr)
		if err != nil {
			return err
		}

		ipIDs = append(ipIDs, ip.ID)
	}

	if err := tx.SetBacklogIPs(ctx, entry.ID, ipIDs); err != nil {
		return err
	}

	componentIDs, err := s.upsertComponents(ctx, tx, entry.UniqueID, p.DetectedComponents)
	if err != nil {
		return err
	}

	if err := tx.SetBacklogComponents(ctx, entry.ID, componentIDs); err != nil {
		return err
	}

	softwareIDs := make([]int64, 0, len(p.DetectedSoftware))

	for _, d := range p.DetectedSoftware {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}

		sw, err := tx.FindOrCreateSoftware(ctx, name, strings.TrimSpace(d.Version), strings.TrimSpace(d.Publisher))
		if err != nil {
			return err
		}

		softwareIDs = append(softwareIDs, sw.ID)
	}

	if err := tx.SetBacklogSoftware(ctx, entry.ID, softwareIDs); err != nil {
		return err
	}

	if entry.Status == models.BacklogProcessed && entry.HardwareID != nil {
		return s.transfer(ctx, tx, actor, entry.ID, *entry.HardwareID)
	}

	return nil
}

func (s *Service) upsertComponents(ctx context.Context, tx store.Tx, uniqueID string, detected []models.DetectedComponent) ([]int64, error) {
	ids := make([]int64, 0, len(detected))
	perKind := make(map[string]int)

	for _, d := range detected {
		kind := strings.TrimSpace(d.Kind)
		if kind == "" {
			kind = "Other"
		}

		index := perKind[strings.ToLower(kind)]
		perKind[strings.ToLower(kind)]++

		subtypeKind := models.KindPeripheral
		if d.Internal {
			subtypeKind = models.KindInternal
		}

		subtype, err := tx.FindOrCreateComponentSubtype(ctx, kind, subtypeKind)
		if err != nil {
			return nil, err
		}

		serial := strings.TrimSpace(d.Serial)

		fingerprint := ""
		if serial == "" {
			fingerprint = componentFingerprint(uniqueID, d, index)
		}

		model := strings.TrimSpace(d.Model)
		if model == "" {
			model = kind
		}

		c, err := tx.FindComponent(ctx, serial, fingerprint)

		switch {
		case errors.Is(err, store.ErrNotFound):
			c = &models.Component{
				Model:       model,
				SubtypeID:   subtype.ID,
				Serial:      serial,
				Fingerprint: fingerprint,
				SizeBytes:   int64(d.SizeBytes),
				SpeedHz:     int64(d.SpeedHz),
				Status:      models.ComponentOperational,
			}

			if err := tx.CreateComponent(ctx, c); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			c.Model = model
			c.SubtypeID = subtype.ID
			c.SizeBytes = int64(d.SizeBytes)
			c.SpeedHz = int64(d.SpeedHz)

			if err := tx.UpdateComponent(ctx, c); err != nil {
				return nil, err
			}
		}

		ids = append(ids, c.ID)
	}

	return ids, nil
}
