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

// Package store defines the transactional record store used by core.
// Every write happens inside WithTx; a returned error rolls back the whole
// unit of work, including the incidents written by it.
package store

import (
	"context"
	"time"

	"github.com/sgich/assetradar/pkg/models"
)

// Store opens units of work and hands out advisory locks.
type Store interface {
	// WithTx runs fn in a transaction. Hooks registered with Tx.AfterCommit
	// run after a successful commit and never after a rollback.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// TryAdvisoryLock takes a process-independent lock named by key. ok is
	// false when another holder has it; release must be called when ok.
	TryAdvisoryLock(ctx context.Context, key string) (release func(), ok bool, err error)
	Close()
}

// Tx is the set of repositories bound to one unit of work.
type Tx interface {
	BacklogRepository
	AssetRepository
	DirectoryRepository
	IncidentRepository
	PingRepository
	WorkplanRepository
	ChatRepository

	// AfterCommit queues fn to run once the transaction commits.
	AfterCommit(fn func())
}

type BacklogRepository interface {
	// LockBacklogEntry returns the entry for uniqueID, creating a pending one
	// when absent. The row stays locked until the transaction ends.
	LockBacklogEntry(ctx context.Context, uniqueID string) (entry *models.BacklogEntry, created bool, err error)
	GetBacklogEntry(ctx context.Context, id int64) (*models.BacklogEntry, error)
	ListBacklogEntries(ctx context.Context, status models.BacklogStatus) ([]*models.BacklogEntry, error)
	UpdateBacklogEntry(ctx context.Context, entry *models.BacklogEntry) error
	SetBacklogIPs(ctx context.Context, entryID int64, ipIDs []int64) error
	SetBacklogComponents(ctx context.Context, entryID int64, componentIDs []int64) error
	SetBacklogSoftware(ctx context.Context, entryID int64, softwareIDs []int64) error
	BacklogIPs(ctx context.Context, entryID int64) ([]*models.IPAddress, error)
	BacklogComponents(ctx context.Context, entryID int64) ([]*models.Component, error)
	BacklogSoftware(ctx context.Context, entryID int64) ([]*models.Software, error)
}

type AssetRepository interface {
	FindOrCreateIP(ctx context.Context, address string) (*models.IPAddress, error)
	FindOrCreateComponentSubtype(ctx context.Context, name string, kind models.SubtypeKind) (*models.ComponentSubtype, error)
	// FindComponent looks up by serial when set, by fingerprint otherwise.
	FindComponent(ctx context.Context, serial, fingerprint string) (*models.Component, error)
	CreateComponent(ctx context.Context, c *models.Component) error
	UpdateComponent(ctx context.Context, c *models.Component) error
	FindOrCreateSoftware(ctx context.Context, name, version, publisher string) (*models.Software, error)
	GetSoftware(ctx context.Context, id int64) (*models.Software, error)

	GetHardware(ctx context.Context, id int64) (*models.Hardware, error)
	GetHardwareByUniqueID(ctx context.Context, uniqueID string) (*models.Hardware, error)
	ListHardware(ctx context.Context, filter models.HardwareFilter) ([]*models.Hardware, error)
	CreateHardware(ctx context.Context, hw *models.Hardware) error
	UpdateHardware(ctx context.Context, hw *models.Hardware) error
	DeleteHardware(ctx context.Context, id int64) error
	SetConnectionStatus(ctx context.Context, hardwareID int64, status models.ConnectionStatus, at time.Time) error
	// SetHardwareIPs keeps the given order; the first address is the one pinged.
	SetHardwareIPs(ctx context.Context, hardwareID int64, ipIDs []int64) error
	HardwareIPs(ctx context.Context, hardwareID int64) ([]*models.IPAddress, error)
	SetHardwareSoftware(ctx context.Context, hardwareID int64, softwareIDs []int64) error
	HardwareSoftware(ctx context.Context, hardwareID int64) ([]*models.Software, error)
	// SetHardwareComponents attaches the given components and detaches the rest.
	SetHardwareComponents(ctx context.Context, hardwareID int64, componentIDs []int64) error
	HardwareComponents(ctx context.Context, hardwareID int64) ([]*models.Component, error)
}

type DirectoryRepository interface {
	CreatePartner(ctx context.Context, p *models.Partner) error
	GetPartner(ctx context.Context, id int64) (*models.Partner, error)
	CreateSystemUser(ctx context.Context, u *models.SystemUser) error
	GetSystemUser(ctx context.Context, id int64) (*models.SystemUser, error)
	GetSystemUserByLogin(ctx context.Context, login string) (*models.SystemUser, error)

	CreateITUser(ctx context.Context, u *models.ITUser) error
	GetITUser(ctx context.Context, id int64) (*models.ITUser, error)
	UpdateITUser(ctx context.Context, u *models.ITUser) error

	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id int64) (*models.Profile, error)
	// UpdateProfile replaces name, allowed software and members.
	UpdateProfile(ctx context.Context, p *models.Profile) error
	DeleteProfile(ctx context.Context, id int64) error
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
	ProfilesForMember(ctx context.Context, itUserID int64) ([]*models.Profile, error)

	GetConfigParameter(ctx context.Context, key string) (string, bool, error)
	SetConfigParameter(ctx context.Context, key, value string) error
}

type IncidentRepository interface {
	CreateIncident(ctx context.Context, inc *models.Incident) error
	GetIncident(ctx context.Context, id int64) (*models.Incident, error)
	// ListIncidents returns the newest first.
	ListIncidents(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error)
	UpdateIncidentStatus(ctx context.Context, id int64, status models.IncidentStatus) error
}

type PingRepository interface {
	AppendPing(ctx context.Context, rec *models.PingRecord) error
	LatestPing(ctx context.Context, hardwareID int64) (*models.PingRecord, error)
	// ListPings returns the newest first.
	ListPings(ctx context.Context, hardwareID int64, limit int) ([]*models.PingRecord, error)
}

type WorkplanRepository interface {
	CreateWorkplan(ctx context.Context, w *models.Workplan) error
	GetWorkplan(ctx context.Context, id int64) (*models.Workplan, error)
	SetWorkplanAnalysis(ctx context.Context, id int64, text string) error
	CreateWorkplanEvent(ctx context.Context, ev *models.WorkplanEvent) error
	GetWorkplanEvent(ctx context.Context, id int64) (*models.WorkplanEvent, error)
	UpdateWorkplanEvent(ctx context.Context, ev *models.WorkplanEvent) error
	ListWorkplanEvents(ctx context.Context, workplanID int64) ([]*models.WorkplanEvent, error)
	CreateEvaluation(ctx context.Context, ev *models.Evaluation) error
	ListEvaluations(ctx context.Context, workplanID int64) ([]*models.Evaluation, error)
	PostChatterNote(ctx context.Context, note *models.ChatterNote) error
	ListChatterNotes(ctx context.Context, model string, recordID int64) ([]*models.ChatterNote, error)
}

type ChatRepository interface {
	CreateChannel(ctx context.Context, ch *models.ChatChannel) error
	GetChannel(ctx context.Context, id int64) (*models.ChatChannel, error)
	PostMessage(ctx context.Context, msg *models.ChatMessage) error
	// ListMessages returns messages oldest first.
	ListMessages(ctx context.Context, channelID int64, limit int) ([]*models.ChatMessage, error)
}
