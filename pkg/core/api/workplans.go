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
	"github.com/sgich/assetradar/pkg/workplan"
)

func (s *APIServer) createWorkplan(w http.ResponseWriter, r *http.Request) {
	var plan models.Workplan
	if err := decodeJSON(w, r, &plan); err != nil {
		s.fail(w, r, err)
		return
	}

	created, err := s.workplans.CreateWorkplan(r.Context(), actorFrom(r), &plan)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, created)
}

func (s *APIServer) getWorkplan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	plan, err := s.workplans.GetWorkplan(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, plan)
}

func (s *APIServer) addEvent(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var ev models.WorkplanEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		s.fail(w, r, err)
		return
	}

	created, err := s.workplans.AddEvent(r.Context(), planID, &ev)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, created)
}

func (s *APIServer) updateEvent(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	eventID, err := pathID(r, "eid")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var patch workplan.EventPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}

	ev, err := s.workplans.UpdateEvent(r.Context(), planID, eventID, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ev)
}

func (s *APIServer) listOccurrences(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	occ, err := s.workplans.Occurrences(r.Context(), planID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if occ == nil {
		occ = []models.EventOccurrence{}
	}

	s.writeJSON(w, http.StatusOK, occ)
}

func (s *APIServer) evaluateWorkplan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	eval, err := s.workplans.Evaluate(r.Context(), actorFrom(r), planID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, eval)
}

func (s *APIServer) listEvaluations(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	evals, err := s.workplans.ListEvaluations(r.Context(), planID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if evals == nil {
		evals = []*models.Evaluation{}
	}

	s.writeJSON(w, http.StatusOK, evals)
}
