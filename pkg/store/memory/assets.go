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
	"encoding/json"
	"fmt"
	"time"

	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

func (t *memTx) LockBacklogEntry(_ context.Context, uniqueID string) (*models.BacklogEntry, bool, error) {
	for _, e := range t.st.backlog {
		if e.UniqueID == uniqueID {
			return copyBacklog(e), false, nil
		}
	}

	now := time.Now().UTC()
	e := &models.BacklogEntry{
		ID:          t.nextID(),
		UniqueID:    uniqueID,
		Type:        models.BacklogTypeUnknown,
		RawSnapshot: json.RawMessage(`{}`),
		Status:      models.BacklogPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.st.backlog[e.ID] = e

	return copyBacklog(e), true, nil
}

func (t *memTx) GetBacklogEntry(_ context.Context, id int64) (*models.BacklogEntry, error) {
	e, ok := t.st.backlog[id]
	if !ok {
		return nil, fmt.Errorf("backlog entry %d: %w", id, store.ErrNotFound)
	}

	return copyBacklog(e), nil
}

func (t *memTx) ListBacklogEntries(_ context.Context, status models.BacklogStatus) ([]*models.BacklogEntry, error) {
	out := make([]*models.BacklogEntry, 0)

	for _, id := range sortedKeys(t.st.backlog) {
		e := t.st.backlog[id]
		if status != "" && e.Status != status {
			continue
		}

		out = append(out, copyBacklog(e))
	}

	return out, nil
}

func (t *memTx) UpdateBacklogEntry(_ context.Context, entry *models.BacklogEntry) error {
	if _, ok := t.st.backlog[entry.ID]; !ok {
		return fmt.Errorf("backlog entry %d: %w", entry.ID, store.ErrNotFound)
	}

	c := copyBacklog(entry)
	c.UpdatedAt = time.Now().UTC()
	t.st.backlog[entry.ID] = c

	return nil
}

func (t *memTx) SetBacklogIPs(_ context.Context, entryID int64, ipIDs []int64) error {
	t.st.backlogIPs[entryID] = cloneIDs(ipIDs)
	return nil
}

func (t *memTx) SetBacklogComponents(_ context.Context, entryID int64, componentIDs []int64) error {
	t.st.backlogComponents[entryID] = cloneIDs(componentIDs)
	return nil
}

func (t *memTx) SetBacklogSoftware(_ context.Context, entryID int64, softwareIDs []int64) error {
	t.st.backlogSoftware[entryID] = cloneIDs(softwareIDs)
	return nil
}

func (t *memTx) BacklogIPs(_ context.Context, entryID int64) ([]*models.IPAddress, error) {
	return t.ipsByID(t.st.backlogIPs[entryID]), nil
}

func (t *memTx) BacklogComponents(_ context.Context, entryID int64) ([]*models.Component, error) {
	return t.componentsByID(t.st.backlogComponents[entryID]), nil
}

func (t *memTx) BacklogSoftware(_ context.Context, entryID int64) ([]*models.Software, error) {
	return t.softwareByID(t.st.backlogSoftware[entryID]), nil
}

func (t *memTx) ipsByID(ids []int64) []*models.IPAddress {
	out := make([]*models.IPAddress, 0, len(ids))
	for _, id := range ids {
		if ip, ok := t.st.ips[id]; ok {
			out = append(out, clonePtr(ip))
		}
	}

	return out
}

func (t *memTx) componentsByID(ids []int64) []*models.Component {
	out := make([]*models.Component, 0, len(ids))
	for _, id := range ids {
		if c, ok := t.st.components[id]; ok {
			out = append(out, copyComponent(c))
		}
	}

	return out
}

func (t *memTx) softwareByID(ids []int64) []*models.Software {
	out := make([]*models.Software, 0, len(ids))
	for _, id := range ids {
		if sw, ok := t.st.software[id]; ok {
			out = append(out, clonePtr(sw))
		}
	}

	return out
}

func (t *memTx) FindOrCreateIP(_ context.Context, address string) (*models.IPAddress, error) {
	for _, ip := range t.st.ips {
		if ip.Address == address {
			return clonePtr(ip), nil
		}
	}

	ip := &models.IPAddress{ID: t.nextID(), Address: address}
	t.st.ips[ip.ID] = ip

	return clonePtr(ip), nil
}

func (t *memTx) FindOrCreateComponentSubtype(_ context.Context, name string, kind models.SubtypeKind) (*models.ComponentSubtype, error) {
	for _, st := range t.st.subtypes {
		if st.Name == name && st.Kind == kind {
			return clonePtr(st), nil
		}
	}

	st := &models.ComponentSubtype{ID: t.nextID(), Name: name, Kind: kind}
	t.st.subtypes[st.ID] = st

	return clonePtr(st), nil
}

func (t *memTx) FindComponent(_ context.Context, serial, fingerprint string) (*models.Component, error) {
	for _, id := range sortedKeys(t.st.components) {
		c := t.st.components[id]

		if serial != "" && c.Serial == serial {
			return copyComponent(c), nil
		}

		if serial == "" && fingerprint != "" && c.Fingerprint == fingerprint {
			return copyComponent(c), nil
		}
	}

	return nil, fmt.Errorf("component %q/%q: %w", serial, fingerprint, store.ErrNotFound)
}

func (t *memTx) componentKeyTaken(c *models.Component) bool {
	for _, other := range t.st.components {
		if other.ID == c.ID {
			continue
		}

		if c.Serial != "" && other.Serial == c.Serial {
			return true
		}

		if c.Fingerprint != "" && other.Fingerprint == c.Fingerprint {
			return true
		}
	}

	return false
}

func (t *memTx) CreateComponent(_ context.Context, c *models.Component) error {
	if t.componentKeyTaken(c) {
		return fmt.Errorf("component serial %q: %w", c.Serial, store.ErrConflict)
	}

	c.ID = t.nextID()
	t.st.components[c.ID] = copyComponent(c)

	return nil
}

func (t *memTx) UpdateComponent(_ context.Context, c *models.Component) error {
	if _, ok := t.st.components[c.ID]; !ok {
		return fmt.Errorf("component %d: %w", c.ID, store.ErrNotFound)
	}

	if t.componentKeyTaken(c) {
		return fmt.Errorf("component serial %q: %w", c.Serial, store.ErrConflict)
	}

	t.st.components[c.ID] = copyComponent(c)

	return nil
}

func (t *memTx) FindOrCreateSoftware(_ context.Context, name, version, publisher string) (*models.Software, error) {
	key := models.SoftwareKey(name, version)

	for _, sw := range t.st.software {
		if sw.CanonicalKey == key {
			return clonePtr(sw), nil
		}
	}

	sw := &models.Software{
		ID:           t.nextID(),
		Name:         name,
		Version:      version,
		Publisher:    publisher,
		CanonicalKey: key,
	}
	t.st.software[sw.ID] = sw

	return clonePtr(sw), nil
}

func (t *memTx) GetSoftware(_ context.Context, id int64) (*models.Software, error) {
	sw, ok := t.st.software[id]
	if !ok {
		return nil, fmt.Errorf("software %d: %w", id, store.ErrNotFound)
	}

	return clonePtr(sw), nil
}

func (t *memTx) GetHardware(_ context.Context, id int64) (*models.Hardware, error) {
	hw, ok := t.st.hardware[id]
	if !ok {
		return nil, fmt.Errorf("hardware %d: %w", id, store.ErrNotFound)
	}

	return copyHardware(hw), nil
}

func (t *memTx) GetHardwareByUniqueID(_ context.Context, uniqueID string) (*models.Hardware, error) {
	for _, hw := range t.st.hardware {
		if uniqueID != "" && hw.UniqueID == uniqueID {
			return copyHardware(hw), nil
		}
	}

	return nil, fmt.Errorf("hardware %q: %w", uniqueID, store.ErrNotFound)
}

func (t *memTx) ListHardware(_ context.Context, filter models.HardwareFilter) ([]*models.Hardware, error) {
	out := make([]*models.Hardware, 0)

	for _, id := range sortedKeys(t.st.hardware) {
		hw := t.st.hardware[id]

		if filter.Status != "" && hw.Status != filter.Status {
			continue
		}

		if filter.ResponsibleID != nil && (hw.ResponsibleID == nil || *hw.ResponsibleID != *filter.ResponsibleID) {
			continue
		}

		out = append(out, copyHardware(hw))
	}

	return out, nil
}

func (t *memTx) hardwareKeyTaken(hw *models.Hardware) bool {
	for _, other := range t.st.hardware {
		if other.ID == hw.ID {
			continue
		}

		if hw.UniqueID != "" && other.UniqueID == hw.UniqueID {
			return true
		}

		if hw.InventoryNumber != "" && other.InventoryNumber == hw.InventoryNumber {
			return true
		}
	}

	return false
}

func (t *memTx) CreateHardware(_ context.Context, hw *models.Hardware) error {
	if t.hardwareKeyTaken(hw) {
		return fmt.Errorf("hardware %q: %w", hw.Name, store.ErrConflict)
	}

	now := time.Now().UTC()
	hw.ID = t.nextID()
	hw.CreatedAt = now
	hw.UpdatedAt = now
	t.st.hardware[hw.ID] = copyHardware(hw)

	return nil
}

func (t *memTx) UpdateHardware(_ context.Context, hw *models.Hardware) error {
	if _, ok := t.st.hardware[hw.ID]; !ok {
		return fmt.Errorf("hardware %d: %w", hw.ID, store.ErrNotFound)
	}

	if t.hardwareKeyTaken(hw) {
		return fmt.Errorf("hardware %q: %w", hw.Name, store.ErrConflict)
	}

	hw.UpdatedAt = time.Now().UTC()
	t.st.hardware[hw.ID] = copyHardware(hw)

	return nil
}

func (t *memTx) DeleteHardware(_ context.Context, id int64) error {
	if _, ok := t.st.hardware[id]; !ok {
		return fmt.Errorf("hardware %d: %w", id, store.ErrNotFound)
	}

	delete(t.st.hardware, id)
	delete(t.st.hardwareIPs, id)
	delete(t.st.hardwareSoftware, id)

	for _, c := range t.st.components {
		if c.HardwareID != nil && *c.HardwareID == id {
			c.HardwareID = nil
		}
	}

	for _, e := range t.st.backlog {
		if e.HardwareID != nil && *e.HardwareID == id {
			e.HardwareID = nil
		}
	}

	kept := t.st.pings[:0]
	for _, p := range t.st.pings {
		if p.HardwareID != id {
			kept = append(kept, p)
		}
	}

	t.st.pings = kept

	return nil
}

func (t *memTx) SetConnectionStatus(_ context.Context, hardwareID int64, status models.ConnectionStatus, at time.Time) error {
	hw, ok := t.st.hardware[hardwareID]
	if !ok {
		return fmt.Errorf("hardware %d: %w", hardwareID, store.ErrNotFound)
	}

	c := copyHardware(hw)
	c.ConnectionStatus = status
	c.LastPingAt = &at
	t.st.hardware[hardwareID] = c

	return nil
}

func (t *memTx) SetHardwareIPs(_ context.Context, hardwareID int64, ipIDs []int64) error {
	t.st.hardwareIPs[hardwareID] = cloneIDs(ipIDs)
	return nil
}

func (t *memTx) HardwareIPs(_ context.Context, hardwareID int64) ([]*models.IPAddress, error) {
	return t.ipsByID(t.st.hardwareIPs[hardwareID]), nil
}

func (t *memTx) SetHardwareSoftware(_ context.Context, hardwareID int64, softwareIDs []int64) error {
	t.st.hardwareSoftware[hardwareID] = cloneIDs(softwareIDs)
	return nil
}

func (t *memTx) HardwareSoftware(_ context.Context, hardwareID int64) ([]*models.Software, error) {
	return t.softwareByID(t.st.hardwareSoftware[hardwareID]), nil
}

func (t *memTx) SetHardwareComponents(_ context.Context, hardwareID int64, componentIDs []int64) error {
	for _, c := range t.st.components {
		attached := c.HardwareID != nil && *c.HardwareID == hardwareID

		switch {
		case containsID(componentIDs, c.ID):
			id := hardwareID
			c.HardwareID = &id
		case attached:
			c.HardwareID = nil
		}
	}

	return nil
}

func (t *memTx) HardwareComponents(_ context.Context, hardwareID int64) ([]*models.Component, error) {
	out := make([]*models.Component, 0)

	for _, id := range sortedKeys(t.st.components) {
		c := t.st.components[id]
		if c.HardwareID != nil && *c.HardwareID == hardwareID {
			out = append(out, copyComponent(c))
		}
	}

	return out, nil
}
