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

// Package api provides the HTTP API of core.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sgich/assetradar/pkg/assets"
	"github.com/sgich/assetradar/pkg/backlog"
	"github.com/sgich/assetradar/pkg/chatbridge"
	"github.com/sgich/assetradar/pkg/core/auth"
	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/version"
	"github.com/sgich/assetradar/pkg/workplan"
)

const (
	// PathPrefix is the root of every route.
	PathPrefix = "/api/v1"

	maxBodyBytes        = 8 << 20
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 90 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	shutdownTimeout     = 10 * time.Second
	requestIDHeader     = "X-Request-ID"
)

type APIServer struct {
	router      *mux.Router
	authService auth.AuthService
	backlog     *backlog.Service
	assets      *assets.Service
	incidents   *incidents.Service
	workplans   *workplan.Service
	chat        *chatbridge.Bridge
	logger      logger.Logger
}

// NewAPIServer creates a new API server instance with the given options.
func NewAPIServer(log logger.Logger, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router: mux.NewRouter(),
		logger: log,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithAuthService adds an authentication service to the API server
func WithAuthService(a auth.AuthService) func(server *APIServer) {
	return func(server *APIServer) {
		server.authService = a
	}
}

func WithBacklog(b *backlog.Service) func(server *APIServer) {
	return func(server *APIServer) {
		server.backlog = b
	}
}

func WithAssets(a *assets.Service) func(server *APIServer) {
	return func(server *APIServer) {
		server.assets = a
	}
}

func WithIncidents(i *incidents.Service) func(server *APIServer) {
	return func(server *APIServer) {
		server.incidents = i
	}
}

func WithWorkplans(w *workplan.Service) func(server *APIServer) {
	return func(server *APIServer) {
		server.workplans = w
	}
}

func WithChat(c *chatbridge.Bridge) func(server *APIServer) {
	return func(server *APIServer) {
		server.chat = c
	}
}

// Handler exposes the router, mostly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

func (s *APIServer) setupRoutes() {
	s.router.Use(s.requestIDMiddleware, s.loggingMiddleware)

	api := s.router.PathPrefix(PathPrefix).Subrouter()

	api.HandleFunc("/session", s.handleSession).Methods(http.MethodPost)
	api.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(s.authenticationMiddleware)

	protected.HandleFunc("/capabilities", s.handleCapabilities).Methods(http.MethodGet)
	protected.HandleFunc("/inventory", s.handleInventory).Methods(http.MethodPost)
	protected.HandleFunc("/backlog", s.listBacklog).Methods(http.MethodGet)
	protected.HandleFunc("/backlog/{id}", s.getBacklogEntry).Methods(http.MethodGet)
	protected.HandleFunc("/backlog/{id}/promote", s.promoteBacklogEntry).Methods(http.MethodPost)
	protected.HandleFunc("/backlog/{id}/ignore", s.ignoreBacklogEntry).Methods(http.MethodPost)

	protected.HandleFunc("/hardware", s.listHardware).Methods(http.MethodGet)
	protected.HandleFunc("/hardware", s.createHardware).Methods(http.MethodPost)
	protected.HandleFunc("/hardware/{id}", s.getHardware).Methods(http.MethodGet)
	protected.HandleFunc("/hardware/{id}", s.updateHardware).Methods(http.MethodPatch)
	protected.HandleFunc("/hardware/{id}", s.deleteHardware).Methods(http.MethodDelete)
	protected.HandleFunc("/hardware/{id}/pings", s.listPings).Methods(http.MethodGet)

	protected.HandleFunc("/it-users", s.createITUser).Methods(http.MethodPost)
	protected.HandleFunc("/it-users/{id}/{action:activate|suspend|revoke|retire}", s.moveITUser).Methods(http.MethodPost)

	protected.HandleFunc("/profiles", s.createProfile).Methods(http.MethodPost)
	protected.HandleFunc("/profiles/{id}", s.getProfile).Methods(http.MethodGet)
	protected.HandleFunc("/profiles/{id}", s.updateProfile).Methods(http.MethodPatch)
	protected.HandleFunc("/profiles/{id}", s.deleteProfile).Methods(http.MethodDelete)
	protected.HandleFunc("/profiles/{id}/check", s.checkProfile).Methods(http.MethodPost)

	protected.HandleFunc("/incidents", s.listIncidents).Methods(http.MethodGet)
	protected.HandleFunc("/incidents/{id}", s.advanceIncident).Methods(http.MethodPatch)

	protected.HandleFunc("/workplans", s.createWorkplan).Methods(http.MethodPost)
	protected.HandleFunc("/workplans/{id}", s.getWorkplan).Methods(http.MethodGet)
	protected.HandleFunc("/workplans/{id}/events", s.addEvent).Methods(http.MethodPost)
	protected.HandleFunc("/workplans/{id}/events/{eid}", s.updateEvent).Methods(http.MethodPatch)
	protected.HandleFunc("/workplans/{id}/occurrences", s.listOccurrences).Methods(http.MethodGet)
	protected.HandleFunc("/workplans/{id}/evaluate", s.evaluateWorkplan).Methods(http.MethodPost)
	protected.HandleFunc("/workplans/{id}/evaluations", s.listEvaluations).Methods(http.MethodGet)

	protected.HandleFunc("/chat/channels/{id}/messages", s.postMessage).Methods(http.MethodPost)
	protected.HandleFunc("/chat/channels/{id}/messages", s.listMessages).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "not found", http.StatusNotFound)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *APIServer) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *APIServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		r.Header.Set(requestIDHeader, id)

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *APIServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		ev := s.logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			ev = s.logger.Warn()
		}

		ev.Str("request_id", r.Header.Get(requestIDHeader)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	})
}

func (s *APIServer) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, models.VersionInfo{
		ServerVersion: version.GetVersion(),
		APIVersion:    version.APIVersion,
	})
}

func (s *APIServer) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backlog.Capabilities())
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}

	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + name)
	}

	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("invalid " + name)
	}

	return n, nil
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Error encoding response")
	}
}
