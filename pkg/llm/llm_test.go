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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/secrets"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/store/memory"
)

func TestLocalClientRequestShape(t *testing.T) {
	var got map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+placeholderAPIKey, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Cumplimiento 100%"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewLocalClient(srv.URL+"/v1/", "llama-3", "")
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "evaluate")
	require.NoError(t, err)
	assert.Equal(t, "Cumplimiento 100%", out)

	assert.Equal(t, "llama-3", got["model"])
	assert.InDelta(t, 0.6, got["temperature"], 0.0001)
	assert.InDelta(t, 3000, got["max_tokens"], 0)
	assert.InDelta(t, 1, got["top_p"], 0)

	msgs, ok := got["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]interface{}{"role": "system", "content": "evaluate"}, msgs[0])
}

func TestLocalClientErrors(t *testing.T) {
	_, err := NewLocalClient("", "m", "")
	require.ErrorIs(t, err, ErrMisconfigured)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer empty.Close()

	c, err := NewLocalClient(empty.URL, "m", "")
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyCompletion)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer down.Close()

	c, err = NewLocalClient(down.URL, "m", "")
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrLLMUnavailable)
}

func TestExternalClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body externalRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Bearer k-123", r.Header.Get("Authorization"))

		switch body.Prompt {
		case "empty":
			_, _ = w.Write([]byte(`[]`))
		case "fail":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`[{"output":"echo: ` + body.Prompt + `"}]`))
		}
	}))
	defer srv.Close()

	c, err := NewExternalClient(srv.URL, "k-123")
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "echo: hola", out)

	_, err = c.Complete(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrEmptyCompletion)

	_, err = c.Complete(context.Background(), "fail")
	assert.ErrorIs(t, err, ErrLLMUnavailable)
}

type staticSecrets map[string]string

func (s staticSecrets) Resolve(ref string) (string, error) {
	if v, ok := s[ref]; ok {
		return v, nil
	}

	return "", secrets.ErrSecretNotFound
}

func TestRouterUsesStoredOverrides(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := memory.New()
	ctx := context.Background()

	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.SetConfigParameter(ctx, ParamUseExternal, "true"); err != nil {
			return err
		}

		return tx.SetConfigParameter(ctx, ParamExternalURL, "https://llm.example/run")
	}))

	defaults := models.AIConfig{LocalBaseURL: "http://127.0.0.1:1234/v1", LocalModelID: "m", APIKeyRef: "ai"}
	r := NewRouter(st, defaults, staticSecrets{"ai": "k-1"}, logger.NewTestLogger())

	ext := NewMockClient(ctrl)
	ext.EXPECT().Complete(gomock.Any(), "prompt").Return("answer", nil)

	r.newExternal = func(url, apiKey string) (Client, error) {
		assert.Equal(t, "https://llm.example/run", url)
		assert.Equal(t, "k-1", apiKey)

		return ext, nil
	}
	r.newLocal = func(string, string, string) (Client, error) {
		t.Fatal("local backend must not be used")
		return nil, nil
	}

	out, err := r.Complete(ctx, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestRouterMissingKey(t *testing.T) {
	r := NewRouter(memory.New(), models.AIConfig{APIKeyRef: "absent"}, staticSecrets{}, logger.NewTestLogger())

	_, err := r.Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestLoadConfigRejectsBadBool(t *testing.T) {
	st := memory.New()

	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.SetConfigParameter(ctx, ParamUseExternal, "maybe"))

		_, err := LoadConfig(ctx, tx, models.AIConfig{})

		return err
	})
	assert.ErrorIs(t, err, ErrMisconfigured)
}
