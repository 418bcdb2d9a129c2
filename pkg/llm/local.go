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
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	LocalTimeout = 30 * time.Second

	// local servers ignore the key but the client always sends one
	placeholderAPIKey = "not-needed"

	localTemperature = 0.6
	localMaxTokens   = 3000
	localTopP        = 1
)

// LocalClient talks to an OpenAI-compatible chat completion server.
type LocalClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

var _ Client = (*LocalClient)(nil)

func NewLocalClient(baseURL, model, apiKey string) (*LocalClient, error) {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: local_base_url and local_model_id are required", ErrMisconfigured)
	}

	if apiKey == "" {
		apiKey = placeholderAPIKey
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: LocalTimeout}

	return &LocalClient{client: openai.NewClientWithConfig(cfg), model: model, timeout: LocalTimeout}, nil
}

func (c *LocalClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		Temperature: localTemperature,
		MaxTokens:   localMaxTokens,
		TopP:        localTopP,
	})
	if err != nil {
		return "", fmt.Errorf("%w: local completion: %w", ErrLLMUnavailable, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}
