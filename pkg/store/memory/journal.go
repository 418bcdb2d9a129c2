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

func (t *memTx) CreateIncident(_ context.Context, inc *models.Incident) error {
	inc.ID = t.nextID()
	if inc.DetectedAt.IsZero() {
		inc.DetectedAt = time.Now().UTC()
	}

	t.st.incidents[inc.ID] = copyIncident(inc)

	return nil
}

func (t *memTx) GetIncident(_ context.Context, id int64) (*models.Incident, error) {
	inc, ok := t.st.incidents[id]
	if !ok {
		return nil, fmt.Errorf("incident %d: %w", id, store.ErrNotFound)
	}

	return copyIncident(inc), nil
}

func matchIncident(inc *models.Incident, f models.IncidentFilter) bool {
	switch {
	case f.Severity != "" && inc.Severity != f.Severity:
		return false
	case f.Status != "" && inc.Status != f.Status:
		return false
	case f.AssetModel != "" && inc.Asset.Model != f.AssetModel:
		return false
	case f.AssetID != nil && (inc.Asset.ID == nil || *inc.Asset.ID != *f.AssetID):
		return false
	case f.Fingerprint != "" && inc.Fingerprint != f.Fingerprint:
		return false
	default:
		return true
	}
}

func (t *memTx) ListIncidents(_ context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	keys := sortedKeys(t.st.incidents)
	out := make([]*models.Incident, 0)

	for i := len(keys) - 1; i >= 0; i-- {
		inc := t.st.incidents[keys[i]]
		if !matchIncident(inc, filter) {
			continue
		}

		out = append(out, copyIncident(inc))

		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}

	return out, nil
}

func (t *memTx) UpdateIncidentStatus(_ context.Context, id int64, status models.IncidentStatus) error {
	inc, ok := t.st.incidents[id]
	if !ok {
		return fmt.Errorf("incident %d: %w", id, store.ErrNotFound)
	}

	inc.Status = status

	return nil
}

func (t *memTx) AppendPing(_ context.Context, rec *models.PingRecord) error {
	rec.ID = t.nextID()
	t.st.pings = append(t.st.pings, clonePtr(rec))

	return nil
}

func (t *memTx) LatestPing(_ context.Context, hardwareID int64) (*models.PingRecord, error) {
	for i := len(t.st.pings) - 1; i >= 0; i-- {
		if t.st.pings[i].HardwareID == hardwareID {
			return clonePtr(t.st.pings[i]), nil
		}
	}

	return nil, fmt.Errorf("ping history of hardware %d: %w", hardwareID, store.ErrNotFound)
}

func (t *memTx) ListPings(_ context.Context, hardwareID int64, limit int) ([]*models.PingRecord, error) {
	out := make([]*models.PingRecord, 0)

	for i := len(t.st.pings) - 1; i >= 0; i-- {
		if t.st.pings[i].HardwareID != hardwareID {
			continue
		}

		out = append(out, clonePtr(t.st.pings[i]))

		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

func (t *memTx) CreateWorkplan(_ context.Context, w *models.Workplan) error {
	w.ID = t.nextID()
	t.st.workplans[w.ID] = copyWorkplan(w)

	return nil
}

func (t *memTx) GetWorkplan(_ context.Context, id int64) (*models.Workplan, error) {
	w, ok := t.st.workplans[id]
	if !ok {
		return nil, fmt.Errorf("workplan %d: %w", id, store.ErrNotFound)
	}

	return copyWorkplan(w), nil
}

func (t *memTx) SetWorkplanAnalysis(_ context.Context, id int64, text string) error {
	w, ok := t.st.workplans[id]
	if !ok {
		return fmt.Errorf("workplan %d: %w", id, store.ErrNotFound)
	}

	w.QualitativeAnalysis = text

	return nil
}

func (t *memTx) CreateWorkplanEvent(_ context.Context, ev *models.WorkplanEvent) error {
	if _, ok := t.st.workplans[ev.WorkplanID]; !ok {
		return fmt.Errorf("workplan %d: %w", ev.WorkplanID, store.ErrNotFound)
	}

	ev.ID = t.nextID()
	t.st.events[ev.ID] = copyEvent(ev)

	return nil
}

func (t *memTx) GetWorkplanEvent(_ context.Context, id int64) (*models.WorkplanEvent, error) {
	ev, ok := t.st.events[id]
	if !ok {
		return nil, fmt.Errorf("workplan event %d: %w", id, store.ErrNotFound)
	}

	return copyEvent(ev), nil
}

func (t *memTx) UpdateWorkplanEvent(_ context.Context, ev *models.WorkplanEvent) error {
	if _, ok := t.st.events[ev.ID]; !ok {
		return fmt.Errorf("workplan event %d: %w", ev.ID, store.ErrNotFound)
	}

	t.st.events[ev.ID] = copyEvent(ev)

	return nil
}

func (t *memTx) ListWorkplanEvents(_ context.Context, workplanID int64) ([]*models.WorkplanEvent, error) {
	out := make([]*models.WorkplanEvent, 0)

	for _, id := range sortedKeys(t.st.events) {
		ev := t.st.events[id]
		if ev.WorkplanID == workplanID {
			out = append(out, copyEvent(ev))
		}
	}

	return out, nil
}

func (t *memTx) CreateEvaluation(_ context.Context, ev *models.Evaluation) error {
	ev.ID = t.nextID()
	t.st.evaluations = append(t.st.evaluations, clonePtr(ev))

	return nil
}

func (t *memTx) ListEvaluations(_ context.Context, workplanID int64) ([]*models.Evaluation, error) {
	out := make([]*models.Evaluation, 0)

	for _, ev := range t.st.evaluations {
		if ev.WorkplanID == workplanID {
			out = append(out, clonePtr(ev))
		}
	}

	return out, nil
}

func (t *memTx) PostChatterNote(_ context.Context, note *models.ChatterNote) error {
	note.ID = t.nextID()
	if note.PostedAt.IsZero() {
		note.PostedAt = time.Now().UTC()
	}

	t.st.notes = append(t.st.notes, clonePtr(note))

	return nil
}

func (t *memTx) ListChatterNotes(_ context.Context, model string, recordID int64) ([]*models.ChatterNote, error) {
	out := make([]*models.ChatterNote, 0)

	for _, n := range t.st.notes {
		if n.Model == model && n.RecordID == recordID {
			out = append(out, clonePtr(n))
		}
	}

	return out, nil
}

func (t *memTx) CreateChannel(_ context.Context, ch *models.ChatChannel) error {
	ch.ID = t.nextID()
	t.st.channels[ch.ID] = copyChannel(ch)

	return nil
}

func (t *memTx) GetChannel(_ context.Context, id int64) (*models.ChatChannel, error) {
	ch, ok := t.st.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %d: %w", id, store.ErrNotFound)
	}

	return copyChannel(ch), nil
}

func (t *memTx) PostMessage(_ context.Context, msg *models.ChatMessage) error {
	if _, ok := t.st.channels[msg.ChannelID]; !ok {
		return fmt.Errorf("channel %d: %w", msg.ChannelID, store.ErrNotFound)
	}

	msg.ID = t.nextID()
	if msg.PostedAt.IsZero() {
		msg.PostedAt = time.Now().UTC()
	}

	t.st.messages = append(t.st.messages, clonePtr(msg))

	return nil
}

func (t *memTx) ListMessages(_ context.Context, channelID int64, limit int) ([]*models.ChatMessage, error) {
	out := make([]*models.ChatMessage, 0)

	for _, m := range t.st.messages {
		if m.ChannelID == channelID {
			out = append(out, clonePtr(m))
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out, nil
}
