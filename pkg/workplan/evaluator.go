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

package workplan

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

const promptHeader = `Eres un asistente que evalúa la ejecución de planes de trabajo.
Plan: %s
Periodo evaluado: %s a %s

Con base en los eventos listados, responde con:
1) el porcentaje global de cumplimiento,
2) una calificación de 0 a 10,
3) un comentario cualitativo sobre la ejecución,
4) recomendaciones concretas para mejorar.

Eventos (nombre | fecha planificada | participó | sección | prioridad):
`

const promptDateLayout = "2006-01-02 15:04"

// Occurrences expands the plan's events into the instances that started
// between the plan start and now, oldest first.
func (s *Service) Occurrences(ctx context.Context, planID int64) ([]models.EventOccurrence, error) {
	var (
		plan   *models.Workplan
		events []*models.WorkplanEvent
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		if plan, err = tx.GetWorkplan(ctx, planID); err != nil {
			return err
		}

		events, err = tx.ListWorkplanEvents(ctx, planID)

		return err
	})
	if err != nil {
		return nil, err
	}

	return s.expand(plan, events, s.now())
}

func (s *Service) expand(plan *models.Workplan, events []*models.WorkplanEvent, now time.Time) ([]models.EventOccurrence, error) {
	to := now
	if plan.EndDate != nil && plan.EndDate.Before(to) {
		to = *plan.EndDate
	}

	out := make([]models.EventOccurrence, 0, len(events))

	for _, ev := range events {
		starts, err := Occurrences(ev, plan.StartDate, to)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}

		length := ev.Stop.Sub(ev.Start)

		for _, start := range starts {
			stop := start.Add(length)

			out = append(out, models.EventOccurrence{
				EventID:      ev.ID,
				Name:         ev.Name,
				Start:        start,
				Stop:         stop,
				Section:      ev.Section,
				Priority:     ev.Priority,
				Participated: ev.Participated(),
				IsInCurrentMonthUntilToday: start.Year() == now.Year() &&
					start.Month() == now.Month() && !start.After(now),
				IsOngoing: !start.After(now) && now.Before(stop),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })

	return out, nil
}

// BuildPrompt renders the fixed header followed by one line per occurrence.
func BuildPrompt(plan *models.Workplan, occ []models.EventOccurrence, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, promptHeader, plan.Name,
		plan.StartDate.Format(time.DateOnly), now.Format(time.DateOnly))

	for _, o := range occ {
		participated := "no"
		if o.Participated {
			participated = "sí"
		}

		fmt.Fprintf(&b, "- %s | %s | %s | %s | %s\n",
			o.Name, o.Start.Format(promptDateLayout), participated, orDash(o.Section), orDash(o.Priority))
	}

	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}

	return s
}

// Score returns the attended share of occ as a percentage and its 0-10
// rendering rounded to one decimal.
func Score(occ []models.EventOccurrence) (compliancePct, score float64) {
	if len(occ) == 0 {
		return 0, 0
	}

	attended := 0

	for _, o := range occ {
		if o.Participated {
			attended++
		}
	}

	compliancePct = float64(attended) / float64(len(occ)) * 100
	score = math.Round(compliancePct) / 10

	return compliancePct, score
}

// Evaluate sends the plan's past events to the advisor and stores its answer.
// The prompt is posted as a chatter note on the plan before dispatch; the
// evaluation and the plan's qualitative analysis are written only when the
// advisor answers.
func (s *Service) Evaluate(ctx context.Context, actor models.Actor, planID int64) (*models.Evaluation, error) {
	now := s.now()

	var (
		plan   *models.Workplan
		prompt string
		occ    []models.EventOccurrence
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		if plan, err = tx.GetWorkplan(ctx, planID); err != nil {
			return err
		}

		events, err := tx.ListWorkplanEvents(ctx, planID)
		if err != nil {
			return err
		}

		if occ, err = s.expand(plan, events, now); err != nil {
			return err
		}

		if len(occ) == 0 {
			return fmt.Errorf("workplan %d: %w", planID, ErrNothingToEvaluate)
		}

		prompt = BuildPrompt(plan, occ, now)

		author := actor.PartnerID
		if author == 0 {
			author = s.aiPartnerID
		}

		return tx.PostChatterNote(ctx, &models.ChatterNote{
			Model:           models.ModelWorkplan,
			RecordID:        planID,
			AuthorPartnerID: author,
			Body:            prompt,
			PostedAt:        now,
		})
	})
	if err != nil {
		return nil, err
	}

	answer, err := s.advisor.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("evaluate workplan %d: %w", planID, err)
	}

	compliance, score := Score(occ)

	eval := &models.Evaluation{
		WorkplanID:        planID,
		At:                now,
		ScoreQuantitative: score,
		CompliancePct:     compliance,
		QualitativeText:   answer,
		Prompt:            prompt,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateEvaluation(ctx, eval); err != nil {
			return err
		}

		return tx.SetWorkplanAnalysis(ctx, planID, answer)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("workplan_id", planID).
		Int("occurrences", len(occ)).
		Float64("compliance_pct", compliance).
		Msg("workplan evaluated")

	return eval, nil
}
