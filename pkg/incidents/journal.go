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

// Package incidents writes audit incidents inside the caller's transaction
// and notifies the acting partner once that transaction commits.
package incidents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/metrics"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

var (
	ErrInvalidTransition = errors.New("invalid incident status transition")
	ErrUnknownSeverity   = errors.New("unknown incident severity")
)

const notifyTimeout = 5 * time.Second

// Journal is the only writer of incidents.
type Journal struct {
	notifier Notifier
	logger   logger.Logger
}

func NewJournal(notifier Notifier, log logger.Logger) *Journal {
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}

	return &Journal{notifier: notifier, logger: log}
}

// New builds an incident ready for Record.
func New(severity models.Severity, title, description string, ref models.AssetRef) *models.Incident {
	return &models.Incident{
		Title:       title,
		Description: description,
		Severity:    severity,
		Asset:       ref,
	}
}

// Record writes inc in tx. The notification to actor's partner is sent only
// after tx commits, so a rollback leaves neither the row nor a toast behind.
func (j *Journal) Record(ctx context.Context, tx store.Tx, actor models.Actor, inc *models.Incident) error {
	switch inc.Severity {
	case models.SeverityInfo, models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSeverity, inc.Severity)
	}

	inc.Status = models.IncidentNew
	if inc.DetectedAt.IsZero() {
		inc.DetectedAt = time.Now().UTC()
	}

	if err := tx.CreateIncident(ctx, inc); err != nil {
		return fmt.Errorf("record incident %q: %w", inc.Title, err)
	}

	note := models.Notification{
		PartnerID:  actor.PartnerID,
		Type:       models.NotificationTypeFor(inc.Severity),
		Title:      inc.Title,
		Message:    inc.Description,
		Sticky:     inc.Severity == models.SeverityHigh,
		IncidentID: inc.ID,
	}
	severity := string(inc.Severity)

	tx.AfterCommit(func() {
		metrics.RecordIncident(context.Background(), severity)

		if note.PartnerID == 0 {
			j.logger.Debug().Int64("incident_id", note.IncidentID).Msg("incident has no partner to notify")
			return
		}

		nctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := j.notifier.Notify(nctx, note); err != nil {
			j.logger.Warn().Err(err).
				Int64("incident_id", note.IncidentID).
				Int64("partner_id", note.PartnerID).
				Msg("failed to deliver incident notification")
		}
	})

	return nil
}

// RecordOnce records inc unless an open incident with the same fingerprint
// already exists. It reports whether a new incident was written.
func (j *Journal) RecordOnce(ctx context.Context, tx store.Tx, actor models.Actor, inc *models.Incident) (bool, error) {
	if inc.Fingerprint == "" {
		return true, j.Record(ctx, tx, actor, inc)
	}

	existing, err := tx.ListIncidents(ctx, models.IncidentFilter{Fingerprint: inc.Fingerprint})
	if err != nil {
		return false, fmt.Errorf("look up incident %q: %w", inc.Fingerprint, err)
	}

	for _, e := range existing {
		if e.Status.Open() {
			return false, nil
		}
	}

	return true, j.Record(ctx, tx, actor, inc)
}

var statusRank = map[models.IncidentStatus]int{
	models.IncidentNew:        0,
	models.IncidentInProgress: 1,
	models.IncidentResolved:   2,
	models.IncidentClosed:     3,
}

// Advance moves an incident forward through new, in_progress, resolved,
// closed. Steps may be skipped; going back is refused.
func (j *Journal) Advance(ctx context.Context, tx store.Tx, id int64, to models.IncidentStatus) (*models.Incident, error) {
	target, ok := statusRank[to]
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	inc, err := tx.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	if target <= statusRank[inc.Status] {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inc.Status, to)
	}

	if err := tx.UpdateIncidentStatus(ctx, id, to); err != nil {
		return nil, err
	}

	inc.Status = to

	return inc, nil
}
