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

	"github.com/sgich/assetradar/pkg/models"
)

func (s *APIServer) handleInventory(w http.ResponseWriter, r *http.Request) {
	var payload models.InventoryPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.backlog.Ingest(r.Context(), actorFrom(r), &payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *APIServer) listBacklog(w http.ResponseWriter, r *http.Request) {
	status := models.BacklogStatus(r.URL.Query().Get("status"))

	switch status {
	case "", models.BacklogPending, models.BacklogProcessed, models.BacklogIgnored:
	default:
		s.fail(w, r, badRequest("invalid status"))
		return
	}

	entries, err := s.backlog.List(r.Context(), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, entries)
}

func (s *APIServer) getBacklogEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	entry, err := s.backlog.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, entry)
}

func (s *APIServer) promoteBacklogEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	hw, err := s.backlog.Promote(r.Context(), actorFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, hw)
}

func (s *APIServer) ignoreBacklogEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	entry, err := s.backlog.Ignore(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, entry)
}
