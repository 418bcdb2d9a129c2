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
	"fmt"
	"strconv"

	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

// Configuration parameter keys that override the file settings.
const (
	ParamUseExternal  = "sgich_ai.use_external"
	ParamExternalURL  = "sgich_ai.external_url"
	ParamLocalBaseURL = "sgich_ai.local_base_url"
	ParamLocalModelID = "sgich_ai.local_model_id"
	ParamAPIKeyRef    = "sgich_ai.api_key_ref"
)

// LoadConfig overlays the stored configuration parameters on defaults.
func LoadConfig(ctx context.Context, tx store.Tx, defaults models.AIConfig) (models.AIConfig, error) {
	cfg := defaults

	strParams := map[string]*string{
		ParamExternalURL:  &cfg.ExternalURL,
		ParamLocalBaseURL: &cfg.LocalBaseURL,
		ParamLocalModelID: &cfg.LocalModelID,
		ParamAPIKeyRef:    &cfg.APIKeyRef,
	}

	for key, dst := range strParams {
		v, ok, err := tx.GetConfigParameter(ctx, key)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", key, err)
		}

		if ok && v != "" {
			*dst = v
		}
	}

	v, ok, err := tx.GetConfigParameter(ctx, ParamUseExternal)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", ParamUseExternal, err)
	}

	if ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q", ErrMisconfigured, ParamUseExternal, v)
		}

		cfg.UseExternal = b
	}

	return cfg, nil
}
