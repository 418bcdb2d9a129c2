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

// Package agentconfig holds the scan agent's on-disk configuration, the
// first-run wizard that writes it and the per-OS autostart entry.
package agentconfig

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sgich/assetradar/pkg/config"
	"github.com/sgich/assetradar/pkg/logger"
)

const (
	// FileName is the configuration file looked up next to the executable.
	FileName = "config.json"

	// PathEnv overrides the configuration location.
	PathEnv = "SGICH_AGENT_CONFIG"

	defaultPrincipalMin = 60
	defaultRetryMin     = 5
)

var (
	ErrConfigNotFound  = errors.New("agent configuration not found")
	ErrInvalidConfig   = errors.New("invalid agent configuration")
	errServerURL       = errors.New("odoo_config.url must be an absolute http(s) URL")
	errServerDB        = errors.New("odoo_config.db is required")
	errServerUsername  = errors.New("odoo_config.username is required")
	errIntervalTooLow  = errors.New("intervals must be at least one minute")
	errRetryNotShorter = errors.New("intervalo_reintento_min must not exceed intervalo_principal_min")
)

// ServerConfig locates the asset registry and the account the agent signs
// in with. The password is kept in the credential vault, never here.
type ServerConfig struct {
	URL      string `json:"url"`
	DB       string `json:"db"`
	Username string `json:"username"`
}

// Config is the agent's config.json.
type Config struct {
	IntervaloPrincipalMin int          `json:"intervalo_principal_min"`
	IntervaloReintentoMin int          `json:"intervalo_reintento_min"`
	Server                ServerConfig `json:"odoo_config"`
}

// ApplyDefaults fills unset intervals.
func (c *Config) ApplyDefaults() {
	if c.IntervaloPrincipalMin == 0 {
		c.IntervaloPrincipalMin = defaultPrincipalMin
	}

	if c.IntervaloReintentoMin == 0 {
		c.IntervaloReintentoMin = defaultRetryMin
	}

	c.Server.URL = strings.TrimRight(strings.TrimSpace(c.Server.URL), "/")
	c.Server.DB = strings.TrimSpace(c.Server.DB)
	c.Server.Username = strings.TrimSpace(c.Server.Username)
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errServerURL)
	}

	if c.Server.DB == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errServerDB)
	}

	if c.Server.Username == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errServerUsername)
	}

	if c.IntervaloPrincipalMin < 1 || c.IntervaloReintentoMin < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errIntervalTooLow)
	}

	if c.IntervaloReintentoMin > c.IntervaloPrincipalMin {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errRetryNotShorter)
	}

	return nil
}

// MainInterval is the pause after a finished cycle.
func (c *Config) MainInterval() time.Duration {
	return time.Duration(c.IntervaloPrincipalMin) * time.Minute
}

// RetryInterval is the pause before the single retry of a failed cycle.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.IntervaloReintentoMin) * time.Minute
}

// DefaultPath returns $SGICH_AGENT_CONFIG or config.json next to the
// running executable.
func DefaultPath() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	return filepath.Join(filepath.Dir(exe), FileName), nil
}

// Load reads, defaults and validates the configuration at path. A missing
// file reports ErrConfigNotFound.
func Load(ctx context.Context, path string, log logger.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && os.Getenv("CONFIG_SOURCE") != "env" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	var cfg Config

	if err := config.NewConfig(log).LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save validates cfg and writes it to path.
func Save(path string, cfg *Config) error {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return config.SaveFile(path, cfg)
}
