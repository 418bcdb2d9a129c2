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

package scheduler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sgich/assetradar/pkg/collector"
	"github.com/sgich/assetradar/pkg/ingest"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
)

const (
	mainInterval  = time.Hour
	retryInterval = 5 * time.Minute
)

var errDown = errors.New("connection refused")

type fakeCollector struct {
	opts []collector.Options
	err  error
}

func (f *fakeCollector) Collect(_ context.Context, opts collector.Options) (*models.HostSnapshot, error) {
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}

	return &models.HostSnapshot{UniqueID: "M-SERIAL-01", Hostname: "ws-01"}, nil
}

// harness stops Run after the given number of sleeps.
type harness struct {
	sched  *Scheduler
	server *ingest.MockServer
	coll   *fakeCollector
	sleeps []time.Duration
	dir    string
}

func newHarness(t *testing.T, maxSleeps int) (*harness, context.Context) {
	t.Helper()

	ctrl := gomock.NewController(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{
		server: ingest.NewMockServer(ctrl),
		coll:   &fakeCollector{},
		dir:    filepath.Join(t.TempDir(), "logs"),
	}

	h.sched = New(Config{MainInterval: mainInterval, RetryInterval: retryInterval, LogDir: h.dir},
		h.server, h.coll, logger.NewTestLogger())
	h.sched.now = func() time.Time { return time.Date(2025, 6, 2, 14, 30, 5, 0, time.UTC) }
	h.sched.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		if len(h.sleeps) >= maxSleeps {
			cancel()
			return context.Canceled
		}

		return ctx.Err()
	}

	return h, ctx
}

func (h *harness) expectHealthy(times int, caps models.Capabilities) {
	h.server.EXPECT().TestConnection(gomock.Any()).Return(&models.VersionInfo{ServerVersion: "1"}, nil).Times(times)
	h.server.EXPECT().Capabilities(gomock.Any()).Return(&caps, nil).Times(times)
}

func TestRunCycleSubmitsPayload(t *testing.T) {
	h, ctx := newHarness(t, 1)
	h.expectHealthy(1, models.Capabilities{Hardware: true, Software: true})

	h.server.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *models.InventoryPayload) (*models.IngestResult, error) {
			assert.Equal(t, "M-SERIAL-01", p.UniqueID)
			assert.Equal(t, "ws-01", p.DescriptiveName)

			return &models.IngestResult{BacklogID: 3, Created: true}, nil
		})

	res, err := h.sched.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.BacklogID)
	assert.Equal(t, []collector.Options{{Software: true}}, h.coll.opts)
}

func TestRunSleepsMainIntervalAfterSuccess(t *testing.T) {
	h, ctx := newHarness(t, 2)
	h.expectHealthy(2, models.Capabilities{Hardware: true})
	h.server.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(&models.IngestResult{BacklogID: 1}, nil).Times(2)

	require.NoError(t, h.sched.Run(ctx))
	assert.Equal(t, []time.Duration{mainInterval, mainInterval}, h.sleeps)
	assert.Equal(t, []collector.Options{{}, {}}, h.coll.opts)
}

func TestRunRetriesOnceThenSucceeds(t *testing.T) {
	h, ctx := newHarness(t, 2)

	gomock.InOrder(
		h.server.EXPECT().TestConnection(gomock.Any()).Return(nil, &ingest.TransportError{Op: "GET /api/v1/version", Err: errDown}),
		h.server.EXPECT().TestConnection(gomock.Any()).Return(&models.VersionInfo{}, nil),
	)
	h.server.EXPECT().Capabilities(gomock.Any()).Return(&models.Capabilities{}, nil)
	h.server.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(&models.IngestResult{}, nil)

	require.NoError(t, h.sched.Run(ctx))
	assert.Equal(t, []time.Duration{retryInterval, mainInterval}, h.sleeps)

	_, err := os.Stat(h.dir)
	assert.True(t, os.IsNotExist(err), "no error log after a successful retry")
}

func TestRunWritesErrorLogAfterSecondFailure(t *testing.T) {
	h, ctx := newHarness(t, 2)

	h.server.EXPECT().TestConnection(gomock.Any()).
		Return(nil, &ingest.TransportError{Op: "GET /api/v1/version", Err: errDown}).Times(2)

	require.NoError(t, h.sched.Run(ctx))
	assert.Equal(t, []time.Duration{retryInterval, mainInterval}, h.sleeps)

	data, err := os.ReadFile(filepath.Join(h.dir, "error_20250602_143005.log"))
	require.NoError(t, err)

	line := string(data)
	assert.True(t, strings.HasPrefix(line, "2025-06-02T14:30:05Z "))
	assert.Contains(t, line, "test_connection")
	assert.Contains(t, line, "connection refused")
	assert.Equal(t, 1, strings.Count(line, "\n"))
}

func TestRunDoesNotRetryRejections(t *testing.T) {
	h, ctx := newHarness(t, 1)
	h.expectHealthy(1, models.Capabilities{Hardware: true})

	h.server.EXPECT().Submit(gomock.Any(), gomock.Any()).
		Return(nil, &ingest.ServerRejection{Method: http.MethodPost, URL: "/api/v1/inventory", Status: http.StatusBadRequest})

	require.NoError(t, h.sched.Run(ctx))
	assert.Equal(t, []time.Duration{mainInterval}, h.sleeps)
}

func TestRunCycleReportsStage(t *testing.T) {
	h, ctx := newHarness(t, 1)
	h.expectHealthy(1, models.Capabilities{})
	h.coll.err = context.DeadlineExceeded

	_, err := h.sched.RunCycle(ctx)

	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, StageCollect, ce.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunStopsOnCancellation(t *testing.T) {
	h, _ := newHarness(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.server.EXPECT().TestConnection(gomock.Any()).Return(nil, context.Canceled)

	require.NoError(t, h.sched.Run(ctx))
	assert.Equal(t, []time.Duration{mainInterval}, h.sleeps)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
