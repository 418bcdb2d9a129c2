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

package core

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sgich/assetradar/pkg/assets"
	"github.com/sgich/assetradar/pkg/backlog"
	"github.com/sgich/assetradar/pkg/chatbridge"
	"github.com/sgich/assetradar/pkg/core/api"
	"github.com/sgich/assetradar/pkg/core/auth"
	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/reachability"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/workplan"
)

// Server owns the store, the services built on it and the API in front of
// them.
type Server struct {
	config      *models.CoreServiceConfig
	store       store.Store
	natsConn    *nats.Conn
	journal     *incidents.Journal
	authService *auth.Auth
	backlog     *backlog.Service
	assets      *assets.Service
	incidents   *incidents.Service
	workplans   *workplan.Service
	chat        *chatbridge.Bridge
	monitor     *reachability.Monitor
	apiServer   *api.APIServer
	metricsOn   bool
	logger      logger.Logger
}

// Status reports what a running core was started with.
type Status struct {
	ListenAddr   string
	Driver       string
	NATS         bool
	Metrics      bool
	Reachability bool
	PingInterval time.Duration
}
