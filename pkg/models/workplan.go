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

type Workplan struct {
	ID                  int64      `json:"id,string"`
	Name                string     `json:"name"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	OwnerPartnerID      int64      `json:"owner_partner_id,string"`
	QualitativeAnalysis string     `json:"qualitative_analysis,omitempty"`
}

type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Recurrence repeats an event. Exactly one of Until or Count bounds it.
type Recurrence struct {
	Freq     Frequency  `json:"freq"`
	Interval int        `json:"interval"`
	Count    int        `json:"count,omitempty"`
	Until    *time.Time `json:"until,omitempty"`
}

type Attendee struct {
	PartnerID    int64 `json:"partner_id,string"`
	Participated bool  `json:"participated"`
}

type WorkplanEvent struct {
	ID         int64       `json:"id,string"`
	WorkplanID int64       `json:"workplan_id,string"`
	Name       string      `json:"name"`
	Start      time.Time   `json:"start"`
	Stop       time.Time   `json:"stop"`
	Section    string      `json:"section,omitempty"`
	Priority   string      `json:"priority,omitempty"`
	Recurrence *Recurrence `json:"recurrence,omitempty"`
	Attendees  []Attendee  `json:"attendees"`
}

// Participated is true when any attendee was marked present.
func (e *WorkplanEvent) Participated() bool {
	for _, a := range e.Attendees {
		if a.Participated {
			return true
		}
	}

	return false
}

// EventOccurrence is one expanded instance of a (possibly recurring) event.
type EventOccurrence struct {
	EventID                    int64     `json:"event_id,string"`
	Name                       string    `json:"name"`
	Start                      time.Time `json:"start"`
	Stop                       time.Time `json:"stop"`
	Section                    string    `json:"section,omitempty"`
	Priority                   string    `json:"priority,omitempty"`
	Participated               bool      `json:"participated"`
	IsInCurrentMonthUntilToday bool      `json:"is_in_current_month_until_today"`
	IsOngoing                  bool      `json:"is_ongoing"`
}

type Evaluation struct {
	ID                int64     `json:"id,string"`
	WorkplanID        int64     `json:"workplan_id,string"`
	At                time.Time `json:"at"`
	ScoreQuantitative float64   `json:"score_quantitative"`
	CompliancePct     float64   `json:"compliance_pct"`
	QualitativeText   string    `json:"qualitative_text"`
	Prompt            string    `json:"prompt"`
}

// ChatterNote is an audit message attached to a record.
type ChatterNote struct {
	ID              int64     `json:"id,string"`
	Model           string    `json:"model_name"`
	RecordID        int64     `json:"record_id,string"`
	AuthorPartnerID int64     `json:"author_partner_id,string"`
	Body            string    `json:"body"`
	PostedAt        time.Time `json:"posted_at"`
}

type ChannelKind string

const (
	ChannelDirect ChannelKind = "direct"
	ChannelGroup  ChannelKind = "channel"
)

type ChatChannel struct {
	ID      int64       `json:"id,string"`
	Name    string      `json:"name"`
	Kind    ChannelKind `json:"kind"`
	Members []int64     `json:"members"`
}

type ChatMessage struct {
	ID              int64     `json:"id,string"`
	ChannelID       int64     `json:"channel_id,string"`
	AuthorPartnerID int64     `json:"author_partner_id,string"`
	Body            string    `json:"body"`
	PostedAt        time.Time `json:"posted_at"`
}
