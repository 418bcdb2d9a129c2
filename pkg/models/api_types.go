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

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type SessionRequest struct {
	DB       string `json:"db"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token     string    `json:"token"`
	UID       int64     `json:"uid,string"`
	PartnerID int64     `json:"partner_id,string"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VersionInfo struct {
	ServerVersion string `json:"server_version"`
	APIVersion    string `json:"api_version"`
}

// IngestResult is returned by submit_inventory.
type IngestResult struct {
	BacklogID int64 `json:"backlog_id,string"`
	Created   bool  `json:"created"`
	Changed   bool  `json:"changed"`
}
