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

package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/sgich/assetradar"

type instruments struct {
	ingest    metric.Int64Counter
	incidents metric.Int64Counter
	pings     metric.Int64Counter
}

//nolint:gochecknoglobals // instruments are bound once to the global provider
var (
	instOnce sync.Once
	inst     instruments
)

// load binds the counters to whatever provider is global at first use; with
// metrics disabled that is the OTel no-op provider.
func load() *instruments {
	instOnce.Do(func() {
		meter := otel.Meter(meterName)

		inst.ingest, _ = meter.Int64Counter("assetradar.ingest.requests",
			metric.WithDescription("Inventory snapshots accepted by the ingest endpoint"))
		inst.incidents, _ = meter.Int64Counter("assetradar.incidents.created",
			metric.WithDescription("Incidents written by the journal"))
		inst.pings, _ = meter.Int64Counter("assetradar.pings",
			metric.WithDescription("Reachability probes recorded"))
	})

	return &inst
}

// RecordIngest counts one ingest; outcome is created, changed or unchanged.
func RecordIngest(ctx context.Context, outcome string) {
	if c := load().ingest; c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordIncident(ctx context.Context, severity string) {
	if c := load().incidents; c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attribute.String("severity", severity)))
	}
}

func RecordPing(ctx context.Context, status string) {
	if c := load().pings; c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}
