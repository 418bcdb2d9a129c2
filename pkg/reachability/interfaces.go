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

// Package reachability pings active hardware and keeps its connection
// status and ping history current.
package reachability

//go:generate mockgen -destination=mock_pinger.go -package=reachability github.com/sgich/assetradar/pkg/reachability Pinger

import (
	"context"
	"time"

	"github.com/sgich/assetradar/pkg/models"
)

// Result is the classification of one echo attempt.
type Result struct {
	Status models.ConnectionStatus
	RTT    time.Duration
}

// Pinger sends a single echo request to addr. A returned error means the
// probe itself could not run, which the monitor records as unknown.
type Pinger interface {
	Ping(ctx context.Context, addr string, timeout time.Duration) (Result, error)
}
