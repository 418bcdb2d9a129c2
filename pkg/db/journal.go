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

package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sgich/assetradar/pkg/models"
)

const incidentColumns = `id, title, description, severity, status, detected_at,
	asset_model, asset_id, asset_label, fingerprint`

func scanIncident(row pgx.Row) (*models.Incident, error) {
	var (
		inc      models.Incident
		severity string
		status   string
	)

	if err := row.Scan(&inc.ID, &inc.Title, &inc.Description, &severity, &status, &inc.DetectedAt,
		&inc.Asset.Model, &inc.Asset.ID, &inc.Asset.Label, &inc.Fingerprint); err != nil {
		return nil, err
	}

	inc.Severity = models.Severity(severity)
	inc.Status = models.IncidentStatus(status)

	return &inc, nil
}

func (t *pgTx) CreateIncident(ctx context.Context, inc *models.Incident) error {
	if inc.DetectedAt.IsZero() {
		inc.DetectedAt = time.Now().UTC()
	}

	if inc.Status == "" {
		inc.Status = models.IncidentNew
	}

	err := t.tx.QueryRow(ctx, `
		INSERT INTO incidents (title, description, severity, status, detected_at,
		                       asset_model, asset_id, asset_label, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		inc.Title, inc.Description, string(inc.Severity), string(inc.Status), inc.DetectedAt,
		inc.Asset.Model, inc.Asset.ID, inc.Asset.Label, inc.Fingerprint).Scan(&inc.ID)

	return mapError(fmt.Sprintf("create incident %q", inc.Title), err)
}

func (t *pgTx) GetIncident(ctx context.Context, id int64) (*models.Incident, error) {
	inc, err := scanIncident(t.tx.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("incident %d", id), err)
	}

	return inc, nil
}

// buildIncidentQuery renders the SELECT for ListIncidents, newest first.
func buildIncidentQuery(f models.IncidentFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	add := func(clause string, v interface{}) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Severity != "" {
		add("severity = $%d", string(f.Severity))
	}

	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	if f.AssetModel != "" {
		add("asset_model = $%d", f.AssetModel)
	}

	if f.AssetID != nil {
		add("asset_id = $%d", *f.AssetID)
	}

	if f.Fingerprint != "" {
		add("fingerprint = $%d", f.Fingerprint)
	}

	var b strings.Builder

	b.WriteString(`SELECT ` + incidentColumns + ` FROM incidents`)

	if len(clauses) > 0 {
		b.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}

	b.WriteString(" ORDER BY id DESC")

	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	return b.String(), args
}

func (t *pgTx) ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	query, args := buildIncidentQuery(filter)

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list incidents", err)
	}
	defer rows.Close()

	out := make([]*models.Incident, 0)

	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, mapError("scan incident", err)
		}

		out = append(out, inc)
	}

	return out, mapError("iterate incidents", rows.Err())
}

func (t *pgTx) UpdateIncidentStatus(ctx context.Context, id int64, status models.IncidentStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE incidents SET status = $2 WHERE id = $1`, id, string(status))
	return expectRow(fmt.Sprintf("update incident %d", id), tag, err)
}

func (t *pgTx) AppendPing(ctx context.Context, rec *models.PingRecord) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO ping_history (hardware_id, at, status, rtt_ms) VALUES ($1, $2, $3, $4)
		RETURNING id`, rec.HardwareID, rec.At, string(rec.Status), rec.RTTMs).Scan(&rec.ID)

	return mapError(fmt.Sprintf("append ping for hardware %d", rec.HardwareID), err)
}

func (t *pgTx) queryPings(ctx context.Context, hardwareID int64, limit int) ([]*models.PingRecord, error) {
	query := `SELECT id, hardware_id, at, status, rtt_ms FROM ping_history
		WHERE hardware_id = $1 ORDER BY id DESC`
	args := []interface{}{hardwareID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list pings", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.PingRecord, error) {
		var (
			rec    models.PingRecord
			status string
		)

		err := row.Scan(&rec.ID, &rec.HardwareID, &rec.At, &status, &rec.RTTMs)
		rec.Status = models.ConnectionStatus(status)

		return &rec, err
	})
	if err != nil {
		return nil, mapError("scan pings", err)
	}

	return out, nil
}

func (t *pgTx) LatestPing(ctx context.Context, hardwareID int64) (*models.PingRecord, error) {
	recs, err := t.queryPings(ctx, hardwareID, 1)
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, mapError(fmt.Sprintf("ping history of hardware %d", hardwareID), pgx.ErrNoRows)
	}

	return recs[0], nil
}

func (t *pgTx) ListPings(ctx context.Context, hardwareID int64, limit int) ([]*models.PingRecord, error) {
	return t.queryPings(ctx, hardwareID, limit)
}

func (t *pgTx) CreateWorkplan(ctx context.Context, w *models.Workplan) error {
	var owner *int64
	if w.OwnerPartnerID != 0 {
		owner = &w.OwnerPartnerID
	}

	err := t.tx.QueryRow(ctx, `
		INSERT INTO workplans (name, start_date, end_date, owner_partner_id, qualitative_analysis)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		w.Name, w.StartDate, w.EndDate, owner, w.QualitativeAnalysis).Scan(&w.ID)

	return mapError(fmt.Sprintf("create workplan %q", w.Name), err)
}

func (t *pgTx) GetWorkplan(ctx context.Context, id int64) (*models.Workplan, error) {
	var w models.Workplan

	err := t.tx.QueryRow(ctx, `
		SELECT id, name, start_date, end_date, COALESCE(owner_partner_id, 0), qualitative_analysis
		FROM workplans WHERE id = $1`, id).
		Scan(&w.ID, &w.Name, &w.StartDate, &w.EndDate, &w.OwnerPartnerID, &w.QualitativeAnalysis)
	if err != nil {
		return nil, mapError(fmt.Sprintf("workplan %d", id), err)
	}

	return &w, nil
}

func (t *pgTx) SetWorkplanAnalysis(ctx context.Context, id int64, text string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE workplans SET qualitative_analysis = $2 WHERE id = $1`, id, text)
	return expectRow(fmt.Sprintf("workplan analysis %d", id), tag, err)
}

const eventColumns = `id, workplan_id, name, start_at, stop_at, section, priority,
	rrule_freq, rrule_interval, rrule_count, rrule_until`

func scanEvent(row pgx.Row) (*models.WorkplanEvent, error) {
	var (
		ev       models.WorkplanEvent
		freq     *string
		interval int
		count    int
		until    *time.Time
	)

	if err := row.Scan(&ev.ID, &ev.WorkplanID, &ev.Name, &ev.Start, &ev.Stop, &ev.Section, &ev.Priority,
		&freq, &interval, &count, &until); err != nil {
		return nil, err
	}

	if freq != nil {
		ev.Recurrence = &models.Recurrence{
			Freq:     models.Frequency(*freq),
			Interval: interval,
			Count:    count,
			Until:    until,
		}
	}

	return &ev, nil
}

// recurrenceArgs flattens r into the rrule_* columns.
func recurrenceArgs(r *models.Recurrence) (*string, int, int, *time.Time) {
	if r == nil {
		return nil, 1, 0, nil
	}

	freq := string(r.Freq)
	interval := r.Interval

	if interval < 1 {
		interval = 1
	}

	return &freq, interval, r.Count, r.Until
}

func (t *pgTx) writeAttendees(ctx context.Context, ev *models.WorkplanEvent) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM event_attendees WHERE event_id = $1`, ev.ID)

	for _, a := range ev.Attendees {
		batch.Queue(`
			INSERT INTO event_attendees (event_id, partner_id, participated) VALUES ($1, $2, $3)
			ON CONFLICT (event_id, partner_id) DO UPDATE SET participated = EXCLUDED.participated`,
			ev.ID, a.PartnerID, a.Participated)
	}

	return sendBatchExecAll(ctx, batch, t.tx.SendBatch, "event attendees")
}

func (t *pgTx) loadAttendees(ctx context.Context, ev *models.WorkplanEvent) error {
	rows, err := t.tx.Query(ctx, `
		SELECT partner_id, participated FROM event_attendees WHERE event_id = $1 ORDER BY partner_id`, ev.ID)
	if err != nil {
		return mapError("list attendees", err)
	}

	ev.Attendees, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Attendee, error) {
		var a models.Attendee
		return a, row.Scan(&a.PartnerID, &a.Participated)
	})

	return mapError("scan attendees", err)
}

func (t *pgTx) CreateWorkplanEvent(ctx context.Context, ev *models.WorkplanEvent) error {
	freq, interval, count, until := recurrenceArgs(ev.Recurrence)

	err := t.tx.QueryRow(ctx, `
		INSERT INTO workplan_events (workplan_id, name, start_at, stop_at, section, priority,
		                             rrule_freq, rrule_interval, rrule_count, rrule_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		ev.WorkplanID, ev.Name, ev.Start, ev.Stop, ev.Section, ev.Priority,
		freq, interval, count, until).Scan(&ev.ID)
	if err != nil {
		return mapError(fmt.Sprintf("create workplan event %q", ev.Name), err)
	}

	return t.writeAttendees(ctx, ev)
}

func (t *pgTx) GetWorkplanEvent(ctx context.Context, id int64) (*models.WorkplanEvent, error) {
	ev, err := scanEvent(t.tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM workplan_events WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("workplan event %d", id), err)
	}

	if err := t.loadAttendees(ctx, ev); err != nil {
		return nil, err
	}

	return ev, nil
}

func (t *pgTx) UpdateWorkplanEvent(ctx context.Context, ev *models.WorkplanEvent) error {
	freq, interval, count, until := recurrenceArgs(ev.Recurrence)

	tag, err := t.tx.Exec(ctx, `
		UPDATE workplan_events
		SET name = $2, start_at = $3, stop_at = $4, section = $5, priority = $6,
		    rrule_freq = $7, rrule_interval = $8, rrule_count = $9, rrule_until = $10
		WHERE id = $1`,
		ev.ID, ev.Name, ev.Start, ev.Stop, ev.Section, ev.Priority, freq, interval, count, until)
	if err := expectRow(fmt.Sprintf("update workplan event %d", ev.ID), tag, err); err != nil {
		return err
	}

	return t.writeAttendees(ctx, ev)
}

func (t *pgTx) ListWorkplanEvents(ctx context.Context, workplanID int64) ([]*models.WorkplanEvent, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+eventColumns+` FROM workplan_events
		WHERE workplan_id = $1 ORDER BY id`, workplanID)
	if err != nil {
		return nil, mapError("list workplan events", err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.WorkplanEvent, error) {
		return scanEvent(row)
	})
	if err != nil {
		return nil, mapError("scan workplan events", err)
	}

	for _, ev := range events {
		if err := t.loadAttendees(ctx, ev); err != nil {
			return nil, err
		}
	}

	return events, nil
}

func (t *pgTx) CreateEvaluation(ctx context.Context, ev *models.Evaluation) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO evaluations (workplan_id, at, score_quantitative, compliance_pct, qualitative_text, prompt)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		ev.WorkplanID, ev.At, ev.ScoreQuantitative, ev.CompliancePct, ev.QualitativeText, ev.Prompt).Scan(&ev.ID)

	return mapError(fmt.Sprintf("create evaluation for workplan %d", ev.WorkplanID), err)
}

func (t *pgTx) ListEvaluations(ctx context.Context, workplanID int64) ([]*models.Evaluation, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, workplan_id, at, score_quantitative, compliance_pct, qualitative_text, prompt
		FROM evaluations WHERE workplan_id = $1 ORDER BY id`, workplanID)
	if err != nil {
		return nil, mapError("list evaluations", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Evaluation, error) {
		var ev models.Evaluation
		return &ev, row.Scan(&ev.ID, &ev.WorkplanID, &ev.At, &ev.ScoreQuantitative,
			&ev.CompliancePct, &ev.QualitativeText, &ev.Prompt)
	})

	return out, mapError("scan evaluations", err)
}

func (t *pgTx) PostChatterNote(ctx context.Context, note *models.ChatterNote) error {
	if note.PostedAt.IsZero() {
		note.PostedAt = time.Now().UTC()
	}

	err := t.tx.QueryRow(ctx, `
		INSERT INTO chatter_notes (model_name, record_id, author_partner_id, body, posted_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		note.Model, note.RecordID, note.AuthorPartnerID, note.Body, note.PostedAt).Scan(&note.ID)

	return mapError(fmt.Sprintf("post note on %s/%d", note.Model, note.RecordID), err)
}

func (t *pgTx) ListChatterNotes(ctx context.Context, model string, recordID int64) ([]*models.ChatterNote, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, model_name, record_id, author_partner_id, body, posted_at
		FROM chatter_notes WHERE model_name = $1 AND record_id = $2 ORDER BY id`, model, recordID)
	if err != nil {
		return nil, mapError("list chatter notes", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.ChatterNote, error) {
		var n models.ChatterNote
		return &n, row.Scan(&n.ID, &n.Model, &n.RecordID, &n.AuthorPartnerID, &n.Body, &n.PostedAt)
	})

	return out, mapError("scan chatter notes", err)
}

func (t *pgTx) CreateChannel(ctx context.Context, ch *models.ChatChannel) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO chat_channels (name, kind) VALUES ($1, $2) RETURNING id`,
		ch.Name, string(ch.Kind)).Scan(&ch.ID)
	if err != nil {
		return mapError(fmt.Sprintf("create channel %q", ch.Name), err)
	}

	return t.replaceLinks(ctx, channelMemberLinks, ch.ID, ch.Members)
}

func (t *pgTx) GetChannel(ctx context.Context, id int64) (*models.ChatChannel, error) {
	var (
		ch   models.ChatChannel
		kind string
	)

	if err := t.tx.QueryRow(ctx, `SELECT id, name, kind FROM chat_channels WHERE id = $1`, id).
		Scan(&ch.ID, &ch.Name, &kind); err != nil {
		return nil, mapError(fmt.Sprintf("channel %d", id), err)
	}

	ch.Kind = models.ChannelKind(kind)

	members, err := t.linkedIDs(ctx, channelMemberLinks, ch.ID)
	if err != nil {
		return nil, err
	}

	ch.Members = members

	return &ch, nil
}

func (t *pgTx) PostMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg.PostedAt.IsZero() {
		msg.PostedAt = time.Now().UTC()
	}

	err := t.tx.QueryRow(ctx, `
		INSERT INTO chat_messages (channel_id, author_partner_id, body, posted_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		msg.ChannelID, msg.AuthorPartnerID, msg.Body, msg.PostedAt).Scan(&msg.ID)

	return mapError(fmt.Sprintf("post message to channel %d", msg.ChannelID), err)
}

// ListMessages keeps the last limit messages and returns them oldest first.
func (t *pgTx) ListMessages(ctx context.Context, channelID int64, limit int) ([]*models.ChatMessage, error) {
	query := `SELECT id, channel_id, author_partner_id, body, posted_at FROM chat_messages
		WHERE channel_id = $1 ORDER BY id`
	args := []interface{}{channelID}

	if limit > 0 {
		query = `SELECT * FROM (
			SELECT id, channel_id, author_partner_id, body, posted_at FROM chat_messages
			WHERE channel_id = $1 ORDER BY id DESC LIMIT $2) recent ORDER BY id`
		args = append(args, limit)
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list messages", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.ChatMessage, error) {
		var m models.ChatMessage
		return &m, row.Scan(&m.ID, &m.ChannelID, &m.AuthorPartnerID, &m.Body, &m.PostedAt)
	})

	return out, mapError("scan messages", err)
}
