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

// Package app runs the SGICH scan agent.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sgich/assetradar/pkg/agentconfig"
	"github.com/sgich/assetradar/pkg/collector"
	"github.com/sgich/assetradar/pkg/credentials"
	"github.com/sgich/assetradar/pkg/ingest"
	"github.com/sgich/assetradar/pkg/lifecycle"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/scheduler"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitConfigError = 1
)

const logDirName = "logs"

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	// ForceWizard runs the configuration wizard and exits.
	ForceWizard bool
	ConfigPath  string
}

// wizardFunc is replaced in tests.
type wizardFunc func(ctx context.Context, path string, initial *agentconfig.Config, vault credentials.Store) (*agentconfig.Config, error)

// Run returns the process exit code.
func Run(ctx context.Context, opts Options) int {
	logCfg := logger.DefaultConfig()
	logCfg.Output = "stderr"

	log, err := lifecycle.CreateComponentLogger("scan-agent", logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return ExitConfigError
	}

	path := opts.ConfigPath
	if path == "" {
		if path, err = agentconfig.DefaultPath(); err != nil {
			log.Error().Err(err).Msg("Cannot locate configuration")
			return ExitConfigError
		}
	}

	vault := credentials.NewVault()

	cfg, err := configure(ctx, path, opts.ForceWizard, vault, agentconfig.RunWizard, log)
	if err != nil {
		log.Error().Err(err).Str("config", path).Msg("Configuration failed")
		return ExitConfigError
	}

	if opts.ForceWizard {
		log.Info().Str("config", path).Msg("Configuration saved")
		return ExitOK
	}

	password, err := vault.Get(cfg.Server.Username)
	if err != nil {
		log.Error().Err(err).Msg("Run the agent with --config to store the password")
		return ExitConfigError
	}

	coll, err := collector.New(log)
	if err != nil {
		log.Error().Err(err).Msg("Cannot collect inventory on this host")
		return ExitConfigError
	}

	agentconfig.InstallAutostart(log)

	client := ingest.NewClient(cfg.Server.URL, ingest.Credentials{
		DB:       cfg.Server.DB,
		Username: cfg.Server.Username,
		Password: password,
	}, log)

	sched := scheduler.New(scheduler.Config{
		MainInterval:  cfg.MainInterval(),
		RetryInterval: cfg.RetryInterval(),
		LogDir:        filepath.Join(filepath.Dir(path), logDirName),
	}, client, coll, log)

	log.Info().
		Str("server", cfg.Server.URL).
		Str("db", cfg.Server.DB).
		Str("username", cfg.Server.Username).
		Msg("Scan agent starting")

	if err := sched.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduler failed")
		return ExitConfigError
	}

	return ExitOK
}

// configure loads the configuration, running the wizard when forced or when
// no file exists yet.
func configure(
	ctx context.Context,
	path string,
	force bool,
	vault credentials.Store,
	wizard wizardFunc,
	log logger.Logger,
) (*agentconfig.Config, error) {
	cfg, err := agentconfig.Load(ctx, path, log)

	switch {
	case err == nil && !force:
		return cfg, nil
	case err == nil:
		return wizard(ctx, path, cfg, vault)
	case errors.Is(err, agentconfig.ErrConfigNotFound):
		log.Info().Str("config", path).Msg("No configuration found, starting wizard")

		return wizard(ctx, path, nil, vault)
	case force:
		log.Warn().Err(err).Msg("Existing configuration is unusable, starting from defaults")

		return wizard(ctx, path, nil, vault)
	default:
		return nil, err
	}
}
