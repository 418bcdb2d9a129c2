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

	"github.com/jackc/pgx/v5"

	"github.com/sgich/assetradar/pkg/models"
)

const backlogColumns = `id, unique_id, descriptive_name, type, raw_snapshot, snapshot_hash,
	status, hardware_id, created_at, updated_at`

func scanBacklogEntry(row pgx.Row) (*models.BacklogEntry, error) {
	var (
		e      models.BacklogEntry
		raw    []byte
		typ    string
		status string
	)

	if err := row.Scan(&e.ID, &e.UniqueID, &e.DescriptiveName, &typ, &raw, &e.SnapshotHash,
		&status, &e.HardwareID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}

	e.Type = models.BacklogType(typ)
	e.Status = models.BacklogStatus(status)
	e.RawSnapshot = raw

	return &e, nil
}

// LockBacklogEntry upserts on unique_id so concurrent ingests of the same
// host serialize on the row lock. xmax = 0 marks a fresh insert.
func (t *pgTx) LockBacklogEntry(ctx context.Context, uniqueID string) (*models.BacklogEntry, bool, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO backlog_entries (unique_id)
		VALUES ($1)
		ON CONFLICT (unique_id) DO UPDATE SET unique_id = EXCLUDED.unique_id
		RETURNING `+backlogColumns+`, (xmax = 0) AS inserted`, uniqueID)

	var (
		e        models.BacklogEntry
		raw      []byte
		typ      string
		status   string
		inserted bool
	)

	if err := row.Scan(&e.ID, &e.UniqueID, &e.DescriptiveName, &typ, &raw, &e.SnapshotHash,
		&status, &e.HardwareID, &e.CreatedAt, &e.UpdatedAt, &inserted); err != nil {
		return nil, false, mapError("lock backlog entry", err)
	}

	e.Type = models.BacklogType(typ)
	e.Status = models.BacklogStatus(status)
	e.RawSnapshot = raw

	return &e, inserted, nil
}

func (t *pgTx) GetBacklogEntry(ctx context.Context, id int64) (*models.BacklogEntry, error) {
	e, err := scanBacklogEntry(t.tx.QueryRow(ctx,
		`SELECT `+backlogColumns+` FROM backlog_entries WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("backlog entry %d", id), err)
	}

	return e, nil
}

func (t *pgTx) ListBacklogEntries(ctx context.Context, status models.BacklogStatus) ([]*models.BacklogEntry, error) {
	query := `SELECT ` + backlogColumns + ` FROM backlog_entries`
	args := []interface{}{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}

	query += ` ORDER BY id`

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list backlog entries", err)
	}
	defer rows.Close()

	out := make([]*models.BacklogEntry, 0)

	for rows.Next() {
		e, err := scanBacklogEntry(rows)
		if err != nil {
			return nil, mapError("scan backlog entry", err)
		}

		out = append(out, e)
	}

	return out, mapError("iterate backlog entries", rows.Err())
}

func (t *pgTx) UpdateBacklogEntry(ctx context.Context, e *models.BacklogEntry) error {
	raw := []byte(e.RawSnapshot)
	if len(raw) == 0 {
		raw = []byte(`{}`)
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE backlog_entries
		SET descriptive_name = $2, type = $3, raw_snapshot = $4, snapshot_hash = $5,
		    status = $6, hardware_id = $7, updated_at = now()
		WHERE id = $1`,
		e.ID, e.DescriptiveName, string(e.Type.Normalize()), raw, e.SnapshotHash,
		string(e.Status), e.HardwareID)

	return expectRow(fmt.Sprintf("update backlog entry %d", e.ID), tag, err)
}

func (t *pgTx) SetBacklogIPs(ctx context.Context, entryID int64, ipIDs []int64) error {
	return t.replaceLinks(ctx, backlogIPLinks, entryID, ipIDs)
}

func (t *pgTx) SetBacklogComponents(ctx context.Context, entryID int64, componentIDs []int64) error {
	return t.replaceLinks(ctx, backlogComponentLinks, entryID, componentIDs)
}

func (t *pgTx) SetBacklogSoftware(ctx context.Context, entryID int64, softwareIDs []int64) error {
	return t.replaceLinks(ctx, backlogSoftwareLinks, entryID, softwareIDs)
}

func (t *pgTx) BacklogIPs(ctx context.Context, entryID int64) ([]*models.IPAddress, error) {
	return t.queryIPs(ctx, `
		SELECT ip.id, ip.address FROM backlog_ips l
		JOIN ip_addresses ip ON ip.id = l.ip_id
		WHERE l.backlog_id = $1 ORDER BY l.position`, entryID)
}

func (t *pgTx) BacklogComponents(ctx context.Context, entryID int64) ([]*models.Component, error) {
	return t.queryComponents(ctx, `
		SELECT `+componentColumnsPrefixed+` FROM backlog_components l
		JOIN components c ON c.id = l.component_id
		WHERE l.backlog_id = $1 ORDER BY c.id`, entryID)
}

func (t *pgTx) BacklogSoftware(ctx context.Context, entryID int64) ([]*models.Software, error) {
	return t.querySoftware(ctx, `
		SELECT s.id, s.name, s.version, s.publisher, s.canonical_key FROM backlog_software l
		JOIN software_assets s ON s.id = l.software_id
		WHERE l.backlog_id = $1 ORDER BY s.id`, entryID)
}
