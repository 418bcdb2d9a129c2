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
	"context"
	"errors"
	"fmt"

	"github.com/sgich/assetradar/pkg/config"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/secrets"
)

var errMissingSecret = errors.New("required secret is not available")

// LoadConfig reads core.json (or the environment, per CONFIG_SOURCE),
// applies defaults and validates the result.
func LoadConfig(ctx context.Context, path string, log logger.Logger) (*models.CoreServiceConfig, error) {
	var cfg models.CoreServiceConfig

	if err := config.NewConfig(log).LoadAndValidate(ctx, path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load core config: %w", err)
	}

	return &cfg, nil
}

// resolveSecrets fills the database password and returns the JWT secret.
// Nothing resolved here is ever written back to disk.
func resolveSecrets(cfg *models.CoreServiceConfig, resolver secrets.Resolver) (string, error) {
	jwtSecret, err := resolver.Resolve(cfg.JWTSecretRef)
	if err != nil {
		return "", fmt.Errorf("%w: jwt_secret_ref: %w", errMissingSecret, err)
	}

	if cfg.Database.Driver == models.DatabaseDriverPostgres && cfg.Database.PasswordRef != "" {
		password, err := resolver.Resolve(cfg.Database.PasswordRef)
		if err != nil {
			return "", fmt.Errorf("%w: database.password_ref: %w", errMissingSecret, err)
		}

		cfg.Database.Password = password
	}

	return jwtSecret, nil
}
