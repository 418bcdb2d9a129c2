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

const (
	componentColumnsPrefixed = `c.id, c.model, COALESCE(c.subtype_id, 0), c.serial_number, c.fingerprint,
	c.size_bytes, c.speed_hz, c.status, c.hardware_id`

	hardwareColumns = `id, unique_id, name, subtype, inventory_number, status, responsible_id,
	connection_status, last_ping_at, created_at, updated_at`
)

func (t *pgTx) queryIPs(ctx context.Context, query string, args ...interface{}) ([]*models.IPAddress, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("query ip addresses", err)
	}
	defer rows.Close()

	out := make([]*models.IPAddress, 0)

	for rows.Next() {
		var ip models.IPAddress
		if err := rows.Scan(&ip.ID, &ip.Address); err != nil {
			return nil, mapError("scan ip address", err)
		}

		out = append(out, &ip)
	}

	return out, mapError("iterate ip addresses", rows.Err())
}

func scanComponent(row pgx.Row) (*models.Component, error) {
	var (
		c           models.Component
		serial      *string
		fingerprint *string
		status      string
	)

	if err := row.Scan(&c.ID, &c.Model, &c.SubtypeID, &serial, &fingerprint,
		&c.SizeBytes, &c.SpeedHz, &status, &c.HardwareID); err != nil {
		return nil, err
	}

	c.Serial = derefString(serial)
	c.Fingerprint = derefString(fingerprint)
	c.Status = models.ComponentStatus(status)

	return &c, nil
}

func (t *pgTx) queryComponents(ctx context.Context, query string, args ...interface{}) ([]*models.Component, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("query components", err)
	}
	defer rows.Close()

	out := make([]*models.Component, 0)

	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, mapError("scan component", err)
		}

		out = append(out, c)
	}

	return out, mapError("iterate components", rows.Err())
}

func (t *pgTx) querySoftware(ctx context.Context, query string, args ...interface{}) ([]*models.Software, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("query software", err)
	}
	defer rows.Close()

	out := make([]*models.Software, 0)

	for rows.Next() {
		var sw models.Software
		if err := rows.Scan(&sw.ID, &sw.Name, &sw.Version, &sw.Publisher, &sw.CanonicalKey); err != nil {
			return nil, mapError("scan software", err)
		}

		out = append(out, &sw)
	}

	return out, mapError("iterate software", rows.Err())
}

func (t *pgTx) FindOrCreateIP(ctx context.Context, address string) (*models.IPAddress, error) {
	var ip models.IPAddress

	err := t.tx.QueryRow(ctx, `
		INSERT INTO ip_addresses (address) VALUES ($1)
		ON CONFLICT (address) DO UPDATE SET address = EXCLUDED.address
		RETURNING id, address`, address).Scan(&ip.ID, &ip.Address)
	if err != nil {
		return nil, mapError(fmt.Sprintf("ip address %q", address), err)
	}

	return &ip, nil
}

func (t *pgTx) FindOrCreateComponentSubtype(ctx context.Context, name string, kind models.SubtypeKind) (*models.ComponentSubtype, error) {
	var (
		st      models.ComponentSubtype
		kindStr string
	)

	err := t.tx.QueryRow(ctx, `
		INSERT INTO component_subtypes (name, kind) VALUES ($1, $2)
		ON CONFLICT (name, kind) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, kind`, name, string(kind)).Scan(&st.ID, &st.Name, &kindStr)
	if err != nil {
		return nil, mapError(fmt.Sprintf("component subtype %q", name), err)
	}

	st.Kind = models.SubtypeKind(kindStr)

	return &st, nil
}

func (t *pgTx) FindComponent(ctx context.Context, serial, fingerprint string) (*models.Component, error) {
	query := `SELECT ` + componentColumnsPrefixed + ` FROM components c WHERE c.fingerprint = $1`
	key := fingerprint

	if serial != "" {
		query = `SELECT ` + componentColumnsPrefixed + ` FROM components c WHERE c.serial_number = $1`
		key = serial
	}

	c, err := scanComponent(t.tx.QueryRow(ctx, query, key))
	if err != nil {
		return nil, mapError(fmt.Sprintf("component %q/%q", serial, fingerprint), err)
	}

	return c, nil
}

func (t *pgTx) CreateComponent(ctx context.Context, c *models.Component) error {
	if c.Status == "" {
		c.Status = models.ComponentOperational
	}

	err := t.tx.QueryRow(ctx, `
		INSERT INTO components (model, subtype_id, serial_number, fingerprint, size_bytes, speed_hz, status, hardware_id)
		VALUES ($1, NULLIF($2::bigint, 0), $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		c.Model, c.SubtypeID, nullIfEmpty(c.Serial), nullIfEmpty(c.Fingerprint),
		c.SizeBytes, c.SpeedHz, string(c.Status), c.HardwareID).Scan(&c.ID)

	return mapError(fmt.Sprintf("create component %q", c.Model), err)
}

func (t *pgTx) UpdateComponent(ctx context.Context, c *models.Component) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE components
		SET model = $2, subtype_id = NULLIF($3::bigint, 0), serial_number = $4, fingerprint = $5,
		    size_bytes = $6, speed_hz = $7, status = $8, hardware_id = $9
		WHERE id = $1`,
		c.ID, c.Model, c.SubtypeID, nullIfEmpty(c.Serial), nullIfEmpty(c.Fingerprint),
		c.SizeBytes, c.SpeedHz, string(c.Status), c.HardwareID)

	return expectRow(fmt.Sprintf("update component %d", c.ID), tag, err)
}

func (t *pgTx) FindOrCreateSoftware(ctx context.Context, name, version, publisher string) (*models.Software, error) {
	var sw models.Software

	err := t.tx.QueryRow(ctx, `
		INSERT INTO software_assets (name, version, publisher, canonical_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (canonical_key) DO UPDATE SET canonical_key = EXCLUDED.canonical_key
		RETURNING id, name, version, publisher, canonical_key`,
		name, version, publisher, models.SoftwareKey(name, version)).
		Scan(&sw.ID, &sw.Name, &sw.Version, &sw.Publisher, &sw.CanonicalKey)
	if err != nil {
		return nil, mapError(fmt.Sprintf("software %q", name), err)
	}

	return &sw, nil
}

func (t *pgTx) GetSoftware(ctx context.Context, id int64) (*models.Software, error) {
	var sw models.Software

	err := t.tx.QueryRow(ctx, `
		SELECT id, name, version, publisher, canonical_key FROM software_assets WHERE id = $1`, id).
		Scan(&sw.ID, &sw.Name, &sw.Version, &sw.Publisher, &sw.CanonicalKey)
	if err != nil {
		return nil, mapError(fmt.Sprintf("software %d", id), err)
	}

	return &sw, nil
}

func scanHardware(row pgx.Row) (*models.Hardware, error) {
	var (
		hw        models.Hardware
		uniqueID  *string
		inventory *string
		subtype   string
		status    string
		conn      string
	)

	if err := row.Scan(&hw.ID, &uniqueID, &hw.Name, &subtype, &inventory, &status,
		&hw.ResponsibleID, &conn, &hw.LastPingAt, &hw.CreatedAt, &hw.UpdatedAt); err != nil {
		return nil, err
	}

	hw.UniqueID = derefString(uniqueID)
	hw.InventoryNumber = derefString(inventory)
	hw.Subtype = models.HardwareSubtype(subtype)
	hw.Status = models.HardwareStatus(status)
	hw.ConnectionStatus = models.ConnectionStatus(conn)

	return &hw, nil
}

func (t *pgTx) GetHardware(ctx context.Context, id int64) (*models.Hardware, error) {
	hw, err := scanHardware(t.tx.QueryRow(ctx,
		`SELECT `+hardwareColumns+` FROM hardware WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("hardware %d", id), err)
	}

	return hw, nil
}

func (t *pgTx) GetHardwareByUniqueID(ctx context.Context, uniqueID string) (*models.Hardware, error) {
	hw, err := scanHardware(t.tx.QueryRow(ctx,
		`SELECT `+hardwareColumns+` FROM hardware WHERE unique_id = $1`, uniqueID))
	if err != nil {
		return nil, mapError(fmt.Sprintf("hardware %q", uniqueID), err)
	}

	return hw, nil
}

// buildHardwareFilter renders the WHERE clause for ListHardware.
func buildHardwareFilter(filter models.HardwareFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	if filter.ResponsibleID != nil {
		args = append(args, *filter.ResponsibleID)
		clauses = append(clauses, fmt.Sprintf("responsible_id = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (t *pgTx) ListHardware(ctx context.Context, filter models.HardwareFilter) ([]*models.Hardware, error) {
	where, args := buildHardwareFilter(filter)

	rows, err := t.tx.Query(ctx, `SELECT `+hardwareColumns+` FROM hardware`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, mapError("list hardware", err)
	}
	defer rows.Close()

	out := make([]*models.Hardware, 0)

	for rows.Next() {
		hw, err := scanHardware(rows)
		if err != nil {
			return nil, mapError("scan hardware", err)
		}

		out = append(out, hw)
	}

	return out, mapError("iterate hardware", rows.Err())
}

func (t *pgTx) CreateHardware(ctx context.Context, hw *models.Hardware) error {
	if hw.ConnectionStatus == "" {
		hw.ConnectionStatus = models.ConnectionPending
	}

	err := t.tx.QueryRow(ctx, `
		INSERT INTO hardware (unique_id, name, subtype, inventory_number, status, responsible_id, connection_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		nullIfEmpty(hw.UniqueID), hw.Name, string(hw.Subtype), nullIfEmpty(hw.InventoryNumber),
		string(hw.Status), hw.ResponsibleID, string(hw.ConnectionStatus)).
		Scan(&hw.ID, &hw.CreatedAt, &hw.UpdatedAt)

	return mapError(fmt.Sprintf("create hardware %q", hw.Name), err)
}

func (t *pgTx) UpdateHardware(ctx context.Context, hw *models.Hardware) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE hardware
		SET unique_id = $2, name = $3, subtype = $4, inventory_number = $5, status = $6,
		    responsible_id = $7, connection_status = $8, last_ping_at = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		hw.ID, nullIfEmpty(hw.UniqueID), hw.Name, string(hw.Subtype), nullIfEmpty(hw.InventoryNumber),
		string(hw.Status), hw.ResponsibleID, string(hw.ConnectionStatus), hw.LastPingAt).
		Scan(&hw.UpdatedAt)

	return mapError(fmt.Sprintf("update hardware %d", hw.ID), err)
}

// DeleteHardware relies on the schema to cascade links and pings and to
// detach components and backlog entries.
func (t *pgTx) DeleteHardware(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM hardware WHERE id = $1`, id)
	return expectRow(fmt.Sprintf("delete hardware %d", id), tag, err)
}

func (t *pgTx) SetConnectionStatus(ctx context.Context, hardwareID int64, status models.ConnectionStatus, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE hardware SET connection_status = $2, last_ping_at = $3 WHERE id = $1`,
		hardwareID, string(status), at)

	return expectRow(fmt.Sprintf("connection status %d", hardwareID), tag, err)
}

func (t *pgTx) SetHardwareIPs(ctx context.Context, hardwareID int64, ipIDs []int64) error {
	return t.replaceLinks(ctx, hardwareIPLinks, hardwareID, ipIDs)
}

func (t *pgTx) HardwareIPs(ctx context.Context, hardwareID int64) ([]*models.IPAddress, error) {
	return t.queryIPs(ctx, `
		SELECT ip.id, ip.address FROM hardware_ips l
		JOIN ip_addresses ip ON ip.id = l.ip_id
		WHERE l.hardware_id = $1 ORDER BY l.position`, hardwareID)
}

func (t *pgTx) SetHardwareSoftware(ctx context.Context, hardwareID int64, softwareIDs []int64) error {
	return t.replaceLinks(ctx, hardwareSoftwareLinks, hardwareID, softwareIDs)
}

func (t *pgTx) HardwareSoftware(ctx context.Context, hardwareID int64) ([]*models.Software, error) {
	return t.querySoftware(ctx, `
		SELECT s.id, s.name, s.version, s.publisher, s.canonical_key FROM hardware_software l
		JOIN software_assets s ON s.id = l.software_id
		WHERE l.hardware_id = $1 ORDER BY s.id`, hardwareID)
}

func (t *pgTx) SetHardwareComponents(ctx context.Context, hardwareID int64, componentIDs []int64) error {
	if componentIDs == nil {
		componentIDs = []int64{}
	}

	batch := &pgx.Batch{}
	batch.Queue(`UPDATE components SET hardware_id = NULL
		WHERE hardware_id = $1 AND NOT (id = ANY($2))`, hardwareID, componentIDs)
	batch.Queue(`UPDATE components SET hardware_id = $1 WHERE id = ANY($2)`, hardwareID, componentIDs)

	return sendBatchExecAll(ctx, batch, t.tx.SendBatch, "attach components")
}

func (t *pgTx) HardwareComponents(ctx context.Context, hardwareID int64) ([]*models.Component, error) {
	return t.queryComponents(ctx, `
		SELECT `+componentColumnsPrefixed+` FROM components c
		WHERE c.hardware_id = $1 ORDER BY c.id`, hardwareID)
}
