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
	"errors"
	"net/http"
	"strings"

	"github.com/sgich/assetradar/pkg/core/auth"
	"github.com/sgich/assetradar/pkg/models"
)

func (s *APIServer) handleSession(w http.ResponseWriter, r *http.Request) {
	var req models.SessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	session, err := s.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Info().Str("login", req.Login).Msg("Rejected login")
		}

		s.fail(w, r, err)

		return
	}

	s.writeJSON(w, http.StatusOK, session)
}

// authenticationMiddleware requires a valid Bearer token and stores the
// actor it names in the request context.
func (s *APIServer) authenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" || s.authService == nil {
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		actor, err := s.authService.VerifyToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			s.fail(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
	})
}

func actorFrom(r *http.Request) models.Actor {
	actor, _ := auth.ActorFromContext(r.Context())

	return actor
}
