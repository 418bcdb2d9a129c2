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

// Package scheduler drives the scan agent's inventory cycles. A cycle is
// test connection, capability probe, collection and submission, run one
// step after another on the calling goroutine.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sgich/assetradar/pkg/collector"
	"github.com/sgich/assetradar/pkg/ingest"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
)

const (
	errorLogLayout = "20060102_150405"
	errorLogPerm   = 0o644
	errorDirPerm   = 0o755
)

// Collector produces one host snapshot.
type Collector interface {
	Collect(ctx context.Context, opts collector.Options) (*models.HostSnapshot, error)
}

// Config holds the cycle timing and where persistent failures are written.
type Config struct {
	MainInterval  time.Duration
	RetryInterval time.Duration
	LogDir        string
}

type Scheduler struct {
	server    ingest.Server
	collector Collector
	cfg       Config
	logger    logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, server ingest.Server, coll Collector, log logger.Logger) *Scheduler {
	return &Scheduler{
		server:    server,
		collector: coll,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run repeats cycles until ctx is cancelled. A failed cycle is retried once
// after the retry interval; a second failure is written to the error log
// and the loop waits the main interval. Cancellation is a clean stop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("main_interval", s.cfg.MainInterval).
		Dur("retry_interval", s.cfg.RetryInterval).
		Msg("Scheduler started")

	for {
		s.attempt(ctx)

		if err := s.sleep(ctx, s.cfg.MainInterval); err != nil {
			s.logger.Info().Msg("Scheduler stopped")
			return nil
		}
	}
}

// attempt runs one cycle plus at most one retry.
func (s *Scheduler) attempt(ctx context.Context) {
	err := s.cycleLogged(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}

	if ingest.IsRejection(err) {
		return
	}

	s.logger.Warn().Err(err).Dur("retry_in", s.cfg.RetryInterval).Msg("Cycle failed, retrying")

	if s.sleep(ctx, s.cfg.RetryInterval) != nil {
		return
	}

	err = s.cycleLogged(ctx)
	if err == nil || ctx.Err() != nil || ingest.IsRejection(err) {
		return
	}

	path, werr := s.writeErrorLog(err)
	if werr != nil {
		s.logger.Error().Err(werr).Msg("Could not write error log")
	}

	s.logger.Error().Err(err).Str("error_log", path).Msg("Cycle failed twice, waiting for next interval")
}

func (s *Scheduler) cycleLogged(ctx context.Context) error {
	res, err := s.RunCycle(ctx)
	if err != nil {
		var ce *CycleError
		if errors.As(err, &ce) && ingest.IsRejection(err) {
			s.logger.Error().Err(ce.Err).
				Str("stage", ce.Stage).
				Str("unique_id", ce.UniqueID).
				Int("payload_bytes", ce.PayloadBytes).
				Msg("Server rejected request")
		}

		return err
	}

	s.logger.Info().
		Int64("backlog_id", res.BacklogID).
		Bool("created", res.Created).
		Bool("changed", res.Changed).
		Msg("Inventory submitted")

	return nil
}

// RunCycle performs one cycle without retrying.
func (s *Scheduler) RunCycle(ctx context.Context) (*models.IngestResult, error) {
	info, err := s.server.TestConnection(ctx)
	if err != nil {
		return nil, &CycleError{Stage: StageConnect, Err: err}
	}

	s.logger.Debug().Str("server_version", info.ServerVersion).Msg("Server reachable")

	caps, err := s.server.Capabilities(ctx)
	if err != nil {
		return nil, &CycleError{Stage: StageCapabilities, Err: err}
	}

	snap, err := s.collector.Collect(ctx, collector.Options{Software: caps.Software})
	if err != nil {
		return nil, &CycleError{Stage: StageCollect, Err: err}
	}

	payload, err := ingest.BuildPayload(snap, *caps)
	if err != nil {
		return nil, &CycleError{Stage: StageCollect, UniqueID: snap.UniqueID, Err: err}
	}

	res, err := s.server.Submit(ctx, payload)
	if err != nil {
		return nil, &CycleError{
			Stage:        StageSubmit,
			UniqueID:     payload.UniqueID,
			PayloadBytes: len(payload.RawSnapshot),
			Err:          err,
		}
	}

	return res, nil
}

// writeErrorLog records the cause of a persistent failure as
// logs/error_<YYYYMMDD_HHMMSS>.log.
func (s *Scheduler) writeErrorLog(cause error) (string, error) {
	now := s.now()

	if err := os.MkdirAll(s.cfg.LogDir, errorDirPerm); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(s.cfg.LogDir, "error_"+now.Format(errorLogLayout)+".log")
	line := fmt.Sprintf("%s %s\n", now.UTC().Format(time.RFC3339), cause)

	if err := os.WriteFile(path, []byte(line), errorLogPerm); err != nil {
		return "", fmt.Errorf("write error log: %w", err)
	}

	return path, nil
}
