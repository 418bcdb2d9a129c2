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

package api

import (
	"net/http"
	"strconv"

	"github.com/sgich/assetradar/pkg/models"
)

type advanceRequest struct {
	Status models.IncidentStatus `json:"status"`
}

func (s *APIServer) listIncidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.IncidentFilter{
		Severity:    models.Severity(q.Get("severity")),
		Status:      models.IncidentStatus(q.Get("status")),
		AssetModel:  q.Get("model"),
		Fingerprint: q.Get("fingerprint"),
	}

	if raw := q.Get("asset_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.fail(w, r, badRequest("invalid asset_id"))
			return
		}

		filter.AssetID = &id
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	filter.Limit = limit

	list, err := s.incidents.List(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if list == nil {
		list = []*models.Incident{}
	}

	s.writeJSON(w, http.StatusOK, list)
}

func (s *APIServer) advanceIncident(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req advanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if req.Status == "" {
		s.fail(w, r, badRequest("status is required"))
		return
	}

	inc, err := s.incidents.Advance(r.Context(), id, req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, inc)
}
