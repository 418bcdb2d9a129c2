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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sgich/assetradar/pkg/assets"
	"github.com/sgich/assetradar/pkg/backlog"
	"github.com/sgich/assetradar/pkg/chatbridge"
	"github.com/sgich/assetradar/pkg/core/auth"
	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/llm"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/workplan"
)

// httpError encapsulates an error message and HTTP status code.
type httpError struct {
	Message string
	Status  int
}

func (h httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", h.Status, h.Message)
}

func badRequest(msg string) error {
	return httpError{Message: msg, Status: http.StatusBadRequest}
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{store.ErrNotFound, http.StatusNotFound},
	{store.ErrConflict, http.StatusConflict},
	{backlog.ErrInvalidTransition, http.StatusConflict},
	{assets.ErrInvalidTransition, http.StatusConflict},
	{incidents.ErrInvalidTransition, http.StatusConflict},
	{backlog.ErrInvalidPayload, http.StatusBadRequest},
	{assets.ErrValidation, http.StatusBadRequest},
	{workplan.ErrValidation, http.StatusBadRequest},
	{workplan.ErrRecurrenceOutOfRange, http.StatusBadRequest},
	{workplan.ErrNothingToEvaluate, http.StatusBadRequest},
	{chatbridge.ErrEmptyMessage, http.StatusBadRequest},
	{incidents.ErrUnknownSeverity, http.StatusBadRequest},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{chatbridge.ErrImpersonation, http.StatusForbidden},
	{chatbridge.ErrNotChannelUser, http.StatusForbidden},
	{llm.ErrLLMUnavailable, http.StatusBadGateway},
	{llm.ErrEmptyCompletion, http.StatusBadGateway},
	{llm.ErrMisconfigured, http.StatusBadGateway},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	var he httpError
	if errors.As(err, &he) {
		return he.Status
	}

	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status
		}
	}

	return http.StatusInternalServerError
}

// fail writes err as a JSON error. Internal errors are logged and reported
// without detail.
func (s *APIServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	msg := err.Error()

	var he httpError
	if errors.As(err, &he) {
		msg = he.Message
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", r.Header.Get(requestIDHeader)).
			Str("path", r.URL.Path).
			Msg("Request failed")

		msg = "internal server error"
	}

	writeError(w, msg, status)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
