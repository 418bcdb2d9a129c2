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

package models

import (
	"encoding/json"
	"strings"
	"time"
)

type BacklogType string

const (
	BacklogTypeHardware BacklogType = "hardware"
	BacklogTypeSoftware BacklogType = "software"
	BacklogTypeNetwork  BacklogType = "network"
	BacklogTypeUnknown  BacklogType = "unknown"
)

// Normalize maps unrecognised values to BacklogTypeUnknown.
func (t BacklogType) Normalize() BacklogType {
	switch t {
	case BacklogTypeHardware, BacklogTypeSoftware, BacklogTypeNetwork:
		return t
	default:
		return BacklogTypeUnknown
	}
}

type BacklogStatus string

const (
	BacklogPending   BacklogStatus = "pending"
	BacklogProcessed BacklogStatus = "processed"
	BacklogIgnored   BacklogStatus = "ignored"
)

// BacklogEntry is the latest snapshot of a host awaiting promotion.
type BacklogEntry struct {
	ID              int64           `json:"id,string"`
	UniqueID        string          `json:"unique_id"`
	DescriptiveName string          `json:"descriptive_name"`
	Type            BacklogType     `json:"type"`
	RawSnapshot     json.RawMessage `json:"raw_snapshot"`
	SnapshotHash    string          `json:"snapshot_hash"`
	Status          BacklogStatus   `json:"status"`
	HardwareID      *int64          `json:"hardware_id,string,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type HardwareSubtype string

const (
	SubtypePC     HardwareSubtype = "pc"
	SubtypeLaptop HardwareSubtype = "laptop"
	SubtypeServer HardwareSubtype = "server"
	SubtypeMobile HardwareSubtype = "mobile"
	SubtypeOther  HardwareSubtype = "other"
)

type HardwareStatus string

const (
	HardwareDraft    HardwareStatus = "draft"
	HardwareActive   HardwareStatus = "active"
	HardwareInRepair HardwareStatus = "in_repair"
	HardwareRetired  HardwareStatus = "retired"
)

// Valid reports whether s is one of the known hardware states.
func (s HardwareStatus) Valid() bool {
	switch s {
	case HardwareDraft, HardwareActive, HardwareInRepair, HardwareRetired:
		return true
	default:
		return false
	}
}

type ConnectionStatus string

const (
	ConnectionOnline      ConnectionStatus = "online"
	ConnectionOffline     ConnectionStatus = "offline"
	ConnectionUnreachable ConnectionStatus = "unreachable"
	ConnectionPending     ConnectionStatus = "pending"
	ConnectionUnknown     ConnectionStatus = "unknown"
)

// Hardware is a managed endpoint promoted from the backlog or created by an operator.
type Hardware struct {
	ID               int64            `json:"id,string"`
	UniqueID         string           `json:"unique_id,omitempty"`
	Name             string           `json:"name"`
	Subtype          HardwareSubtype  `json:"subtype"`
	InventoryNumber  string           `json:"inventory_number,omitempty"`
	Status           HardwareStatus   `json:"status"`
	ResponsibleID    *int64           `json:"responsible_id,string,omitempty"`
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	LastPingAt       *time.Time       `json:"last_ping_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// HardwareFilter narrows ListHardware. Zero values match everything.
type HardwareFilter struct {
	Status        HardwareStatus
	ResponsibleID *int64
}

type ComponentStatus string

const (
	ComponentOperational ComponentStatus = "operational"
	ComponentMaintenance ComponentStatus = "maintenance"
	ComponentFailed      ComponentStatus = "failed"
	ComponentRetired     ComponentStatus = "retired"
)

type SubtypeKind string

const (
	KindInternal   SubtypeKind = "internal"
	KindPeripheral SubtypeKind = "peripheral"
)

type ComponentSubtype struct {
	ID   int64       `json:"id,string"`
	Name string      `json:"name"`
	Kind SubtypeKind `json:"kind"`
}

// Component is a replaceable part. Serial, when set, identifies it across hosts;
// Fingerprint identifies serial-less parts within one host.
type Component struct {
	ID          int64           `json:"id,string"`
	Model       string          `json:"model"`
	SubtypeID   int64           `json:"subtype_id,string"`
	Serial      string          `json:"serial_number,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	SizeBytes   int64           `json:"size_bytes,omitempty"`
	SpeedHz     int64           `json:"speed_hz,omitempty"`
	Status      ComponentStatus `json:"status"`
	HardwareID  *int64          `json:"hardware_id,string,omitempty"`
}

type IPAddress struct {
	ID      int64  `json:"id,string"`
	Address string `json:"address"`
}

// Software is a catalog record keyed by canonical name and version.
type Software struct {
	ID           int64  `json:"id,string"`
	Name         string `json:"name"`
	Version      string `json:"version"`
	Publisher    string `json:"publisher,omitempty"`
	CanonicalKey string `json:"canonical_key"`
}

// SoftwareKey returns the canonical identity of a name/version pair.
func SoftwareKey(name, version string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " ")) + "|" + strings.TrimSpace(version)
}

// Label renders the software for incident texts.
func (s *Software) Label() string {
	if s.Version == "" {
		return s.Name
	}

	return s.Name + " " + s.Version
}
