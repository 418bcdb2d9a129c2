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

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/secrets"
	"github.com/sgich/assetradar/pkg/store"
)

// Router reads the AI configuration on every call and dispatches to the
// backend it selects.
type Router struct {
	store    store.Store
	defaults models.AIConfig
	secrets  secrets.Resolver
	logger   logger.Logger

	newLocal    func(baseURL, model, apiKey string) (Client, error)
	newExternal func(url, apiKey string) (Client, error)
}

var _ Client = (*Router)(nil)

func NewRouter(st store.Store, defaults models.AIConfig, resolver secrets.Resolver, log logger.Logger) *Router {
	return &Router{
		store:    st,
		defaults: defaults,
		secrets:  resolver,
		logger:   log,
		newLocal: func(baseURL, model, apiKey string) (Client, error) {
			return NewLocalClient(baseURL, model, apiKey)
		},
		newExternal: func(url, apiKey string) (Client, error) {
			return NewExternalClient(url, apiKey)
		},
	}
}

// Config returns the effective AI configuration.
func (r *Router) Config(ctx context.Context) (models.AIConfig, error) {
	var cfg models.AIConfig

	err := r.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		cfg, err = LoadConfig(ctx, tx, r.defaults)

		return err
	})

	return cfg, err
}

func (r *Router) apiKey(ref string) (string, error) {
	if ref == "" || r.secrets == nil {
		return "", nil
	}

	key, err := r.secrets.Resolve(ref)
	if errors.Is(err, secrets.ErrSecretNotFound) {
		return "", fmt.Errorf("%w: api key %q not in vault", ErrMisconfigured, ref)
	}

	return key, err
}

func (r *Router) Complete(ctx context.Context, prompt string) (string, error) {
	cfg, err := r.Config(ctx)
	if err != nil {
		return "", err
	}

	key, err := r.apiKey(cfg.APIKeyRef)
	if err != nil {
		return "", err
	}

	var (
		client  Client
		backend string
	)

	if cfg.UseExternal {
		backend = "external"
		client, err = r.newExternal(cfg.ExternalURL, key)
	} else {
		backend = "local"
		client, err = r.newLocal(cfg.LocalBaseURL, cfg.LocalModelID, key)
	}

	if err != nil {
		return "", err
	}

	start := time.Now()

	out, err := client.Complete(ctx, prompt)
	if err != nil {
		r.logger.Warn().Err(err).Str("backend", backend).Msg("completion failed")
		return "", err
	}

	r.logger.Info().
		Str("backend", backend).
		Int("prompt_chars", len(prompt)).
		Int("answer_chars", len(out)).
		Dur("took", time.Since(start)).
		Msg("completion received")

	return out, nil
}
