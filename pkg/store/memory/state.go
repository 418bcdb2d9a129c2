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
	"encoding/json"

	"github.com/sgich/assetradar/pkg/models"
)

type state struct {
	seq int64

	backlog           map[int64]*models.BacklogEntry
	backlogIPs        map[int64][]int64
	backlogComponents map[int64][]int64
	backlogSoftware   map[int64][]int64

	ips        map[int64]*models.IPAddress
	subtypes   map[int64]*models.ComponentSubtype
	components map[int64]*models.Component
	software   map[int64]*models.Software

	hardware         map[int64]*models.Hardware
	hardwareIPs      map[int64][]int64
	hardwareSoftware map[int64][]int64

	partners map[int64]*models.Partner
	users    map[int64]*models.SystemUser
	itUsers  map[int64]*models.ITUser
	profiles map[int64]*models.Profile
	params   map[string]string

	incidents map[int64]*models.Incident
	pings     []*models.PingRecord

	workplans   map[int64]*models.Workplan
	events      map[int64]*models.WorkplanEvent
	evaluations []*models.Evaluation
	notes       []*models.ChatterNote

	channels map[int64]*models.ChatChannel
	messages []*models.ChatMessage
}

func newState() *state {
	return &state{
		backlog:           make(map[int64]*models.BacklogEntry),
		backlogIPs:        make(map[int64][]int64),
		backlogComponents: make(map[int64][]int64),
		backlogSoftware:   make(map[int64][]int64),
		ips:               make(map[int64]*models.IPAddress),
		subtypes:          make(map[int64]*models.ComponentSubtype),
		components:        make(map[int64]*models.Component),
		software:          make(map[int64]*models.Software),
		hardware:          make(map[int64]*models.Hardware),
		hardwareIPs:       make(map[int64][]int64),
		hardwareSoftware:  make(map[int64][]int64),
		partners:          make(map[int64]*models.Partner),
		users:             make(map[int64]*models.SystemUser),
		itUsers:           make(map[int64]*models.ITUser),
		profiles:          make(map[int64]*models.Profile),
		params:            make(map[string]string),
		incidents:         make(map[int64]*models.Incident),
		workplans:         make(map[int64]*models.Workplan),
		events:            make(map[int64]*models.WorkplanEvent),
		channels:          make(map[int64]*models.ChatChannel),
	}
}

func (s *state) clone() *state {
	params := make(map[string]string, len(s.params))
	for k, v := range s.params {
		params[k] = v
	}

	return &state{
		seq:               s.seq,
		backlog:           cloneMap(s.backlog, copyBacklog),
		backlogIPs:        cloneLinks(s.backlogIPs),
		backlogComponents: cloneLinks(s.backlogComponents),
		backlogSoftware:   cloneLinks(s.backlogSoftware),
		ips:               cloneMap(s.ips, clonePtr[models.IPAddress]),
		subtypes:          cloneMap(s.subtypes, clonePtr[models.ComponentSubtype]),
		components:        cloneMap(s.components, copyComponent),
		software:          cloneMap(s.software, clonePtr[models.Software]),
		hardware:          cloneMap(s.hardware, copyHardware),
		hardwareIPs:       cloneLinks(s.hardwareIPs),
		hardwareSoftware:  cloneLinks(s.hardwareSoftware),
		partners:          cloneMap(s.partners, clonePtr[models.Partner]),
		users:             cloneMap(s.users, clonePtr[models.SystemUser]),
		itUsers:           cloneMap(s.itUsers, clonePtr[models.ITUser]),
		profiles:          cloneMap(s.profiles, copyProfile),
		params:            params,
		incidents:         cloneMap(s.incidents, copyIncident),
		pings:             append([]*models.PingRecord(nil), s.pings...),
		workplans:         cloneMap(s.workplans, copyWorkplan),
		events:            cloneMap(s.events, copyEvent),
		evaluations:       append([]*models.Evaluation(nil), s.evaluations...),
		notes:             append([]*models.ChatterNote(nil), s.notes...),
		channels:          cloneMap(s.channels, copyChannel),
		messages:          append([]*models.ChatMessage(nil), s.messages...),
	}
}

// Append-only rows (pings, evaluations, notes, messages) are never mutated
// after insert, so the slices above share their elements.

func copyBacklog(e *models.BacklogEntry) *models.BacklogEntry {
	c := *e
	c.RawSnapshot = append(json.RawMessage(nil), e.RawSnapshot...)
	c.HardwareID = clonePtr(e.HardwareID)

	return &c
}

func copyComponent(comp *models.Component) *models.Component {
	c := *comp
	c.HardwareID = clonePtr(comp.HardwareID)

	return &c
}

func copyHardware(hw *models.Hardware) *models.Hardware {
	c := *hw
	c.ResponsibleID = clonePtr(hw.ResponsibleID)
	c.LastPingAt = clonePtr(hw.LastPingAt)

	return &c
}

func copyProfile(p *models.Profile) *models.Profile {
	c := *p
	c.AllowedSoftware = cloneIDs(p.AllowedSoftware)
	c.Members = cloneIDs(p.Members)

	return &c
}

func copyIncident(inc *models.Incident) *models.Incident {
	c := *inc
	c.Asset.ID = clonePtr(inc.Asset.ID)

	return &c
}

func copyWorkplan(w *models.Workplan) *models.Workplan {
	c := *w
	c.EndDate = clonePtr(w.EndDate)

	return &c
}

func copyEvent(ev *models.WorkplanEvent) *models.WorkplanEvent {
	c := *ev
	c.Attendees = append([]models.Attendee(nil), ev.Attendees...)

	if ev.Recurrence != nil {
		r := *ev.Recurrence
		r.Until = clonePtr(ev.Recurrence.Until)
		c.Recurrence = &r
	}

	return &c
}

func copyChannel(ch *models.ChatChannel) *models.ChatChannel {
	c := *ch
	c.Members = cloneIDs(ch.Members)

	return &c
}
