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

// Package workplan keeps calendar workplans inside the current year and
// scores their execution with the AI advisor.
package workplan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sgich/assetradar/pkg/llm"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

type Service struct {
	store       store.Store
	advisor     llm.Client
	aiPartnerID int64
	logger      logger.Logger
	now         func() time.Time
}

// NewService builds the workplan service. Chatter notes are authored by
// aiPartnerID.
func NewService(st store.Store, advisor llm.Client, aiPartnerID int64, log logger.Logger) *Service {
	return &Service{
		store:       st,
		advisor:     advisor,
		aiPartnerID: aiPartnerID,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// EventPatch carries the event fields to change. Nil fields are kept.
type EventPatch struct {
	Name       *string            `json:"name"`
	Start      *time.Time         `json:"start"`
	Stop       *time.Time         `json:"stop"`
	Section    *string            `json:"section"`
	Priority   *string            `json:"priority"`
	Recurrence *models.Recurrence `json:"recurrence"`
	Attendees  []models.Attendee  `json:"attendees"`
}

func (s *Service) CreateWorkplan(ctx context.Context, actor models.Actor, w *models.Workplan) (*models.Workplan, error) {
	w.Name = strings.TrimSpace(w.Name)
	if w.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	if w.StartDate.IsZero() {
		w.StartDate = s.now()
	}

	if w.EndDate != nil && w.EndDate.Before(w.StartDate) {
		return nil, fmt.Errorf("%w: end_date before start_date", ErrValidation)
	}

	if w.OwnerPartnerID == 0 {
		w.OwnerPartnerID = actor.PartnerID
	}

	w.QualitativeAnalysis = ""

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateWorkplan(ctx, w)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("workplan_id", w.ID).Str("name", w.Name).Msg("workplan created")

	return w, nil
}

func (s *Service) GetWorkplan(ctx context.Context, id int64) (*models.Workplan, error) {
	var w *models.Workplan

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		w, err = tx.GetWorkplan(ctx, id)

		return err
	})

	return w, err
}

// AddEvent stores a new event. A recurrence end past the cutoff is clamped.
func (s *Service) AddEvent(ctx context.Context, planID int64, ev *models.WorkplanEvent) (*models.WorkplanEvent, error) {
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", ErrValidation)
	}

	if err := NormalizeForCreate(ev, s.now()); err != nil {
		return nil, err
	}

	ev.WorkplanID = planID

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetWorkplan(ctx, planID); err != nil {
			return err
		}

		return tx.CreateWorkplanEvent(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	return ev, nil
}

// UpdateEvent applies patch. Unlike AddEvent it rejects anything past the
// cutoff instead of clamping.
func (s *Service) UpdateEvent(ctx context.Context, planID, eventID int64, patch EventPatch) (*models.WorkplanEvent, error) {
	var ev *models.WorkplanEvent

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		ev, err = tx.GetWorkplanEvent(ctx, eventID)
		if err != nil {
			return err
		}

		if ev.WorkplanID != planID {
			return fmt.Errorf("event %d of workplan %d: %w", eventID, planID, store.ErrNotFound)
		}

		if patch.Name != nil {
			ev.Name = strings.TrimSpace(*patch.Name)
			if ev.Name == "" {
				return fmt.Errorf("%w: event name is required", ErrValidation)
			}
		}

		if patch.Start != nil {
			ev.Start = *patch.Start
		}

		if patch.Stop != nil {
			ev.Stop = *patch.Stop
		}

		if patch.Section != nil {
			ev.Section = *patch.Section
		}

		if patch.Priority != nil {
			ev.Priority = *patch.Priority
		}

		if patch.Recurrence != nil {
			ev.Recurrence = patch.Recurrence
		}

		if patch.Attendees != nil {
			ev.Attendees = patch.Attendees
		}

		if err := Validate(ev, s.now()); err != nil {
			return err
		}

		return tx.UpdateWorkplanEvent(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	return ev, nil
}

func (s *Service) ListEvaluations(ctx context.Context, planID int64) ([]*models.Evaluation, error) {
	var out []*models.Evaluation

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetWorkplan(ctx, planID); err != nil {
			return err
		}

		var err error

		out, err = tx.ListEvaluations(ctx, planID)

		return err
	})

	return out, err
}
