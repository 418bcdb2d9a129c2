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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgich/assetradar/pkg/models"
)

func TestInitializeDisabled(t *testing.T) {
	ctx := context.Background()

	for name, cfg := range map[string]*models.MetricsConfig{
		"nil":         nil,
		"disabled":    {Endpoint: "localhost:4317"},
		"no endpoint": {Enabled: true},
	} {
		t.Run(name, func(t *testing.T) {
			mp, err := Initialize(ctx, cfg, "test")
			require.ErrorIs(t, err, ErrMetricsDisabled)
			assert.Nil(t, mp)
		})
	}

	assert.NoError(t, Shutdown(ctx))
}

func TestRecordersUseNoopProvider(t *testing.T) {
	ctx := context.Background()

	assert.NotPanics(t, func() {
		RecordIngest(ctx, "created")
		RecordIncident(ctx, "low")
		RecordPing(ctx, "online")
	})
}
