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

// Package app boots the asset radar core service.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sgich/assetradar/pkg/core"
	"github.com/sgich/assetradar/pkg/core/auth"
	"github.com/sgich/assetradar/pkg/lifecycle"
	"github.com/sgich/assetradar/pkg/logger"
)

var errNoPassword = errors.New("no password given on standard input")

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run loads the configuration, serves until ctx is cancelled and then
// shuts the server down.
func Run(ctx context.Context, opts Options) error {
	bootLogger, err := lifecycle.CreateComponentLogger("core-main", logger.DefaultConfig())
	if err != nil {
		return err
	}

	cfg, err := core.LoadConfig(ctx, opts.ConfigPath, bootLogger)
	if err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("core-main", cfg.Logging.Merge())
	if err != nil {
		return err
	}

	server, err := core.NewServer(ctx, cfg, mainLogger)
	if err != nil {
		return err
	}

	status := server.Status()
	mainLogger.Info().
		Str("config", opts.ConfigPath).
		Str("driver", status.Driver).
		Bool("nats", status.NATS).
		Bool("metrics", status.Metrics).
		Msg("Core configured")

	runErr := server.Start(ctx)

	// ctx is already cancelled here.
	shutdownErr := server.Shutdown(context.WithoutCancel(ctx))

	return errors.Join(runErr, shutdownErr)
}

// HashPassword reads one password line from in and writes its bcrypt hash
// to out, for the users list of core.json.
func HashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errNoPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, hash)

	return err
}
