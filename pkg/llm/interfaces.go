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

// Package llm sends prompts to the configured language model backend: a
// local OpenAI-compatible server or an external JSON endpoint.
package llm

//go:generate mockgen -destination=mock_llm.go -package=llm github.com/sgich/assetradar/pkg/llm Client

import (
	"context"
	"errors"
)

var (
	ErrLLMUnavailable  = errors.New("language model backend unavailable")
	ErrEmptyCompletion = errors.New("language model returned an empty answer")
	ErrMisconfigured   = errors.New("language model backend is not configured")
)

// Client turns a prompt into the model's answer. The answer is untrusted
// text and is returned verbatim.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
