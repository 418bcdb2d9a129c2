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

// Package core wires the asset registry services together and serves them
// over HTTP.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sgich/assetradar/pkg/assets"
	"github.com/sgich/assetradar/pkg/backlog"
	"github.com/sgich/assetradar/pkg/chatbridge"
	"github.com/sgich/assetradar/pkg/core/api"
	"github.com/sgich/assetradar/pkg/core/auth"
	"github.com/sgich/assetradar/pkg/db"
	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/lifecycle"
	"github.com/sgich/assetradar/pkg/llm"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/metrics"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/reachability"
	"github.com/sgich/assetradar/pkg/secrets"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/store/memory"
	"github.com/sgich/assetradar/pkg/version"
	"github.com/sgich/assetradar/pkg/workplan"
)

const shutdownTimeout = 10 * time.Second

var errDatabaseError = errors.New("database error")

// NewServer opens the configured store and builds every service on it.
func NewServer(ctx context.Context, cfg *models.CoreServiceConfig, log logger.Logger) (*Server, error) {
	st, err := openStore(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}

	s, err := newServer(ctx, cfg, st, secrets.NewKeyringResolver(), log)
	if err != nil {
		st.Close()
		return nil, err
	}

	return s, nil
}

func openStore(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (store.Store, error) {
	if cfg.Driver == models.DatabaseDriverMemory {
		log.Warn().Msg("Using the in-memory store; data is lost on exit")

		return memory.New(), nil
	}

	database, err := db.Open(ctx, cfg, lifecycle.Child(log, "db"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errDatabaseError, err)
	}

	return database, nil
}

// newServer builds the services on an already opened store. A failure
// leaves st open for the caller to close.
func newServer(
	ctx context.Context, cfg *models.CoreServiceConfig, st store.Store, resolver secrets.Resolver, log logger.Logger,
) (*Server, error) {
	jwtSecret, err := resolveSecrets(cfg, resolver)
	if err != nil {
		return nil, err
	}

	if err := ensureBuiltins(ctx, st, cfg, log); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	if err := seedUsers(ctx, st, cfg.Users, cfg.SystemPartnerID, log); err != nil {
		return nil, err
	}

	s := &Server{config: cfg, store: st, logger: log}

	var notifier incidents.Notifier = incidents.NewLogNotifier(lifecycle.Child(log, "notify"))

	if cfg.NATS != nil && cfg.NATS.URL != "" {
		bus, conn, err := incidents.ConnectBus(ctx, cfg.NATS, lifecycle.Child(log, "nats"))
		if err != nil {
			return nil, err
		}

		notifier, s.natsConn = bus, conn
	}

	if _, err := metrics.Initialize(ctx, &cfg.Metrics, version.GetVersion()); err == nil {
		s.metricsOn = true
	} else if !errors.Is(err, metrics.ErrMetricsDisabled) {
		log.Warn().Err(err).Msg("Metrics exporter unavailable, continuing without it")
	}

	s.journal = incidents.NewJournal(notifier, lifecycle.Child(log, "incidents"))

	s.authService, err = auth.NewAuth(&auth.Config{
		DBName:          cfg.Database.Name,
		JWTSecret:       jwtSecret,
		TokenTTL:        time.Duration(cfg.TokenTTL),
		SystemPartnerID: cfg.SystemPartnerID,
	}, st)
	if err != nil {
		s.closeBus()
		return nil, err
	}

	s.assets = assets.NewService(st, s.journal, lifecycle.Child(log, "assets"))
	s.backlog = backlog.NewService(st, s.journal, cfg.Modules, lifecycle.Child(log, "backlog"))
	s.backlog.SetHardwareHook(s.assets)
	s.incidents = incidents.NewService(st, s.journal)

	router := llm.NewRouter(st, cfg.AI, resolver, lifecycle.Child(log, "llm"))
	s.workplans = workplan.NewService(st, router, cfg.AIPartnerID, lifecycle.Child(log, "workplan"))
	s.chat = chatbridge.New(st, router, cfg.AIPartnerID, cfg.AIChannelID, lifecycle.Child(log, "chat"))

	if cfg.Reachability.Enabled {
		s.monitor = reachability.NewMonitor(st, s.journal,
			reachability.NewPinger(cfg.Reachability.Mode),
			s.systemActor(),
			time.Duration(cfg.Reachability.Timeout),
			lifecycle.Child(log, "reachability"))
	}

	s.apiServer = api.NewAPIServer(lifecycle.Child(log, "api"),
		api.WithAuthService(s.authService),
		api.WithBacklog(s.backlog),
		api.WithAssets(s.assets),
		api.WithIncidents(s.incidents),
		api.WithWorkplans(s.workplans),
		api.WithChat(s.chat),
	)

	return s, nil
}

// systemActor attributes background work to the system partner.
func (s *Server) systemActor() models.Actor {
	return models.Actor{PartnerID: s.config.SystemPartnerID, Login: "system", System: true}
}

// Status summarises the running configuration.
func (s *Server) Status() Status {
	return Status{
		ListenAddr:   s.config.ListenAddr,
		Driver:       s.config.Database.Driver,
		NATS:         s.natsConn != nil,
		Metrics:      s.metricsOn,
		Reachability: s.monitor != nil,
		PingInterval: time.Duration(s.config.Reachability.Interval),
	}
}

// Start serves the API and, when enabled, runs the reachability monitor.
// It returns when ctx is cancelled or either of them fails.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.apiServer.Start(ctx, s.config.ListenAddr)
	})

	if s.monitor != nil {
		g.Go(func() error {
			err := s.monitor.Run(ctx, time.Duration(s.config.Reachability.Interval))
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		})
	}

	s.logger.Info().
		Str("version", version.GetVersion()).
		Str("listen_addr", s.config.ListenAddr).
		Bool("reachability", s.monitor != nil).
		Msg("Core started")

	return g.Wait()
}

// Shutdown releases the store, the bus connection and the metrics pipeline.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.closeBus()

	var errs []error

	if s.metricsOn {
		if err := metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}

	s.store.Close()

	s.logger.Info().Msg("Core stopped")

	return errors.Join(errs...)
}

func (s *Server) closeBus() {
	if s.natsConn == nil {
		return
	}

	if err := s.natsConn.Drain(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to drain NATS connection")
		s.natsConn.Close()
	}

	s.natsConn = nil
}
