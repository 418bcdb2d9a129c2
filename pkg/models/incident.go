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

import "time"

type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type IncidentStatus string

const (
	IncidentNew        IncidentStatus = "new"
	IncidentInProgress IncidentStatus = "in_progress"
	IncidentResolved   IncidentStatus = "resolved"
	IncidentClosed     IncidentStatus = "closed"
)

// Open reports whether the incident still needs attention.
func (s IncidentStatus) Open() bool {
	return s == IncidentNew || s == IncidentInProgress
}

// Model names used in asset references and chatter notes.
const (
	ModelBacklogEntry = "backlog_entry"
	ModelHardware     = "hardware"
	ModelITUser       = "it_user"
	ModelProfile      = "profile"
	ModelWorkplan     = "workplan"
)

// AssetRef points at the record an incident is about. ID is nil for
// deleted records, which keep only Label.
type AssetRef struct {
	Model string `json:"model_name"`
	ID    *int64 `json:"id,string,omitempty"`
	Label string `json:"label,omitempty"`
}

// RefTo builds a live reference.
func RefTo(model string, id int64, label string) AssetRef {
	return AssetRef{Model: model, ID: &id, Label: label}
}

// TextRef builds a reference to a record that no longer exists.
func TextRef(model, label string) AssetRef {
	return AssetRef{Model: model, Label: label}
}

type Incident struct {
	ID          int64          `json:"id,string"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Severity    Severity       `json:"severity"`
	Status      IncidentStatus `json:"status"`
	DetectedAt  time.Time      `json:"detected_at"`
	Asset       AssetRef       `json:"asset_ref"`
	Fingerprint string         `json:"fingerprint,omitempty"`
}

// IncidentFilter narrows ListIncidents. Zero values match everything.
type IncidentFilter struct {
	Severity    Severity
	Status      IncidentStatus
	AssetModel  string
	AssetID     *int64
	Fingerprint string
	Limit       int
}

type NotificationType string

const (
	NotifyDanger  NotificationType = "danger"
	NotifyWarning NotificationType = "warning"
	NotifyInfo    NotificationType = "info"
)

// NotificationTypeFor maps incident severity to the bus notification type.
func NotificationTypeFor(s Severity) NotificationType {
	switch s {
	case SeverityHigh:
		return NotifyDanger
	case SeverityMedium:
		return NotifyWarning
	case SeverityLow, SeverityInfo:
		return NotifyInfo
	default:
		return NotifyInfo
	}
}

// Notification is a transient message broadcast to a partner.
type Notification struct {
	PartnerID  int64            `json:"partner_id"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Sticky     bool             `json:"sticky"`
	IncidentID int64            `json:"incident_id"`
}

// PingRecord is one reachability probe result.
type PingRecord struct {
	ID         int64            `json:"id,string"`
	HardwareID int64            `json:"hardware_id,string"`
	At         time.Time        `json:"at"`
	Status     ConnectionStatus `json:"status"`
	RTTMs      float64          `json:"rtt_ms"`
}
