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

type postMessageRequest struct {
	Body            string `json:"body"`
	AuthorPartnerID int64  `json:"author_partner_id,string,omitempty"`
}

type postMessageResponse struct {
	Message *models.ChatMessage `json:"message"`
	Reply   *models.ChatMessage `json:"reply,omitempty"`
}

func (s *APIServer) postMessage(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req postMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	actor := actorFrom(r)

	var msg, reply *models.ChatMessage

	if req.AuthorPartnerID != 0 {
		msg, reply, err = s.chat.PostAs(r.Context(), actor, channelID, req.AuthorPartnerID, req.Body)
	} else {
		msg, reply, err = s.chat.Post(r.Context(), actor, channelID, req.Body)
	}

	if err != nil {
		if msg != nil {
			s.logger.Warn().Err(err).
				Int64("channel_id", channelID).
				Int64("message_id", msg.ID).
				Msg("Message stored without assistant reply")
		}

		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, postMessageResponse{Message: msg, Reply: reply})
}

func (s *APIServer) listMessages(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	msgs, err := s.chat.Messages(r.Context(), channelID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}

	s.writeJSON(w, http.StatusOK, msgs)
}
