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

	"github.com/gorilla/mux"

	"github.com/sgich/assetradar/pkg/assets"
	"github.com/sgich/assetradar/pkg/models"
)

func (s *APIServer) listHardware(w http.ResponseWriter, r *http.Request) {
	filter := models.HardwareFilter{Status: models.HardwareStatus(r.URL.Query().Get("status"))}

	if raw := r.URL.Query().Get("responsible_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.fail(w, r, badRequest("invalid responsible_id"))
			return
		}

		filter.ResponsibleID = &id
	}

	list, err := s.assets.ListHardware(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, list)
}

func (s *APIServer) createHardware(w http.ResponseWriter, r *http.Request) {
	var hw models.Hardware
	if err := decodeJSON(w, r, &hw); err != nil {
		s.fail(w, r, err)
		return
	}

	created, err := s.assets.CreateHardware(r.Context(), actorFrom(r), &hw)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, created)
}

func (s *APIServer) getHardware(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	hw, err := s.assets.GetHardware(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, hw)
}

func (s *APIServer) updateHardware(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var patch assets.HardwarePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}

	hw, err := s.assets.UpdateHardware(r.Context(), actorFrom(r), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, hw)
}

func (s *APIServer) deleteHardware(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.assets.DeleteHardware(r.Context(), actorFrom(r), id); err != nil {
		s.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) listPings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	pings, err := s.assets.Pings(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, pings)
}

func (s *APIServer) createITUser(w http.ResponseWriter, r *http.Request) {
	var u models.ITUser
	if err := decodeJSON(w, r, &u); err != nil {
		s.fail(w, r, err)
		return
	}

	created, err := s.assets.CreateITUser(r.Context(), actorFrom(r), &u)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, created)
}

func (s *APIServer) moveITUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var (
		u     *models.ITUser
		actor = actorFrom(r)
	)

	switch mux.Vars(r)["action"] {
	case "activate":
		u, err = s.assets.ActivateITUser(r.Context(), actor, id)
	case "suspend":
		u, err = s.assets.SuspendITUser(r.Context(), actor, id)
	case "revoke":
		u, err = s.assets.RevokeITUser(r.Context(), actor, id)
	case "retire":
		u, err = s.assets.RetireITUser(r.Context(), actor, id)
	default:
		err = badRequest("unknown action")
	}

	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, u)
}

func (s *APIServer) createProfile(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, err)
		return
	}

	created, err := s.assets.CreateProfile(r.Context(), actorFrom(r), &p)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, created)
}

func (s *APIServer) getProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	p, err := s.assets.GetProfile(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, p)
}

func (s *APIServer) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var patch assets.ProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}

	p, err := s.assets.UpdateProfile(r.Context(), actorFrom(r), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, p)
}

func (s *APIServer) deleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.assets.DeleteProfile(r.Context(), actorFrom(r), id); err != nil {
		s.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) checkProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	violations, err := s.assets.CheckProfile(r.Context(), actorFrom(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if violations == nil {
		violations = []assets.Violation{}
	}

	s.writeJSON(w, http.StatusOK, violations)
}
