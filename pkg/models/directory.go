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

// Partner is an addressable identity: notifications and chat messages target partners.
type Partner struct {
	ID   int64  `json:"id,string"`
	Name string `json:"name"`
}

// SystemUser is a login account of core.
type SystemUser struct {
	ID           int64  `json:"id,string"`
	Login        string `json:"login"`
	PasswordHash string `json:"-"`
	PartnerID    int64  `json:"partner_id,string"`
	Active       bool   `json:"active"`
}

// Actor is the identity a unit of work runs on behalf of.
type Actor struct {
	UserID    int64
	PartnerID int64
	Login     string
	System    bool
}

// Sudo returns a copy of a that bypasses per-user checks but keeps the
// notification address of the original caller.
func (a Actor) Sudo() Actor {
	a.System = true
	return a
}

type ITUserStatus string

const (
	ITUserDraft   ITUserStatus = "draft"
	ITUserActive  ITUserStatus = "active"
	ITUserRevoked ITUserStatus = "revoked"
	ITUserRetired ITUserStatus = "retired"
)

// ITUser is the authorization overlay bound to one system user.
type ITUser struct {
	ID           int64        `json:"id,string"`
	SystemUserID int64        `json:"system_user_id,string"`
	Name         string       `json:"name"`
	Status       ITUserStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Profile is a named allow-list of software shared by its members.
type Profile struct {
	ID              int64   `json:"id,string"`
	Name            string  `json:"name"`
	AllowedSoftware []int64 `json:"allowed_software"`
	Members         []int64 `json:"members"`
}
