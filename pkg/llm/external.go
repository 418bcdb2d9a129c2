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
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const ExternalTimeout = 60 * time.Second

type externalRequest struct {
	Prompt string `json:"prompt"`
}

type externalAnswer struct {
	Output string `json:"output"`
}

// ExternalClient posts {"prompt": ...} to a fixed URL and reads
// response[0].output.
type ExternalClient struct {
	client *resty.Client
	url    string
}

var _ Client = (*ExternalClient)(nil)

func NewExternalClient(url, apiKey string) (*ExternalClient, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: external_url is required", ErrMisconfigured)
	}

	client := resty.New().
		SetTimeout(ExternalTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &ExternalClient{client: client, url: url}, nil
}

func (c *ExternalClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ExternalTimeout)
	defer cancel()

	var answers []externalAnswer

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(externalRequest{Prompt: prompt}).
		SetResult(&answers).
		ForceContentType("application/json").
		Post(c.url)
	if err != nil {
		return "", fmt.Errorf("%w: external request: %w", ErrLLMUnavailable, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("%w: external endpoint answered %d", ErrLLMUnavailable, resp.StatusCode())
	}

	if len(answers) == 0 || strings.TrimSpace(answers[0].Output) == "" {
		return "", ErrEmptyCompletion
	}

	return answers[0].Output, nil
}
