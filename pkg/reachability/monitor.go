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

package reachability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/metrics"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

const (
	// LockName identifies the monitor trigger for the advisory lock.
	LockName = "assetradar.reachability.monitor"

	defaultTimeout  = 2 * time.Second
	defaultInterval = 5 * time.Minute
)

// Summary describes one monitor run.
type Summary struct {
	Skipped     bool
	Probed      int
	NoAddress   int
	Transitions int
}

type Monitor struct {
	store   store.Store
	journal *incidents.Journal
	pinger  Pinger
	actor   models.Actor
	timeout time.Duration
	now     func() time.Time
	logger  logger.Logger
}

// NewMonitor builds a monitor whose incidents are attributed to actor.
func NewMonitor(st store.Store, journal *incidents.Journal, pinger Pinger, actor models.Actor, timeout time.Duration, log logger.Logger) *Monitor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Monitor{
		store:   st,
		journal: journal,
		pinger:  pinger,
		actor:   actor,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  log,
	}
}

// NewPinger returns the pinger for mode: "icmp" speaks ICMP itself, anything
// else shells out to the ping binary.
func NewPinger(mode string) Pinger {
	if mode == "icmp" {
		return NewICMPPinger()
	}

	return NewExecPinger()
}

// RunOnce probes every active hardware sequentially. A run that finds the
// trigger lock held returns at once with Skipped set.
func (m *Monitor) RunOnce(ctx context.Context) (Summary, error) {
	var sum Summary

	release, ok, err := m.store.TryAdvisoryLock(ctx, LockName)
	if err != nil {
		return sum, fmt.Errorf("acquire monitor lock: %w", err)
	}

	if !ok {
		m.logger.Debug().Msg("previous reachability run still in flight, skipping")

		sum.Skipped = true

		return sum, nil
	}
	defer release()

	var targets []*models.Hardware

	err = m.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		targets, err = tx.ListHardware(ctx, models.HardwareFilter{Status: models.HardwareActive})

		return err
	})
	if err != nil {
		return sum, fmt.Errorf("list active hardware: %w", err)
	}

	for _, hw := range targets {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		probed, changed, err := m.probe(ctx, hw)
		if err != nil {
			m.logger.Error().Err(err).Int64("hardware_id", hw.ID).Msg("failed to record ping")
			continue
		}

		if !probed {
			sum.NoAddress++
			continue
		}

		sum.Probed++

		if changed {
			sum.Transitions++
		}
	}

	m.logger.Info().
		Int("probed", sum.Probed).
		Int("no_address", sum.NoAddress).
		Int("transitions", sum.Transitions).
		Msg("reachability run complete")

	return sum, nil
}

func (m *Monitor) firstIP(ctx context.Context, hardwareID int64) (string, error) {
	var addr string

	err := m.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		ips, err := tx.HardwareIPs(ctx, hardwareID)
		if err != nil || len(ips) == 0 {
			return err
		}

		addr = ips[0].Address

		return nil
	})

	return addr, err
}

// probe pings the first address of hw outside any transaction, then
// records the outcome in one.
func (m *Monitor) probe(ctx context.Context, hw *models.Hardware) (bool, bool, error) {
	addr, err := m.firstIP(ctx, hw.ID)
	if err != nil || addr == "" {
		return false, false, err
	}

	res, err := m.pinger.Ping(ctx, addr, m.timeout)
	if err != nil {
		if ctx.Err() != nil {
			return false, false, ctx.Err()
		}

		m.logger.Warn().Err(err).Str("ip", addr).Int64("hardware_id", hw.ID).Msg("ping probe failed")

		res = Result{Status: models.ConnectionUnknown}
	}

	rec := &models.PingRecord{HardwareID: hw.ID, At: m.now(), Status: res.Status}
	if res.Status == models.ConnectionOnline {
		rec.RTTMs = float64(res.RTT.Microseconds()) / 1000
	}

	var changed bool

	err = m.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		prev, err := tx.LatestPing(ctx, hw.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tx.AppendPing(ctx, rec); err != nil {
			return err
		}

		if err := tx.SetConnectionStatus(ctx, hw.ID, rec.Status, rec.At); err != nil {
			return err
		}

		if prev == nil || prev.Status == rec.Status {
			return nil
		}

		changed = true

		return m.journal.Record(ctx, tx, m.actor, incidents.New(models.SeverityInfo,
			fmt.Sprintf("%s is %s", hw.Name, rec.Status),
			fmt.Sprintf("Connection to %s (%s) changed from %s to %s.", hw.Name, addr, prev.Status, rec.Status),
			models.RefTo(models.ModelHardware, hw.ID, hw.Name)))
	})
	if err != nil {
		return true, false, err
	}

	metrics.RecordPing(ctx, string(rec.Status))

	return true, changed, nil
}

// Run fires RunOnce every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", interval).Msg("reachability monitor started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			go m.fire(ctx)
		}
	}
}

// fire runs off the ticker goroutine. Overlapping fires are skipped by the
// advisory lock.
func (m *Monitor) fire(ctx context.Context) {
	if _, err := m.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Error().Err(err).Msg("reachability run failed")
	}
}
