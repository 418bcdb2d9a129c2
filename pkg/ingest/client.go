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

// Package ingest talks to the core server on behalf of the scan agent.
package ingest

//go:generate mockgen -destination=mock_ingest.go -package=ingest github.com/sgich/assetradar/pkg/ingest Server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/version"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	apiPrefix        = "/api/v1"
	sessionPath      = apiPrefix + "/session"
	versionPath      = apiPrefix + "/version"
	capabilitiesPath = apiPrefix + "/capabilities"
	inventoryPath    = apiPrefix + "/inventory"
)

// Server is the core RPC surface used by one agent cycle.
type Server interface {
	TestConnection(ctx context.Context) (*models.VersionInfo, error)
	Capabilities(ctx context.Context) (*models.Capabilities, error)
	Submit(ctx context.Context, payload *models.InventoryPayload) (*models.IngestResult, error)
}

// Credentials authenticate the agent against one database.
type Credentials struct {
	DB       string
	Username string
	Password string
}

// Client implements Server over HTTP+JSON. A session token is obtained on
// first use and renewed once when the server answers 401.
type Client struct {
	http   *resty.Client
	creds  Credentials
	logger logger.Logger

	mu    sync.Mutex
	token string
}

var _ Server = (*Client)(nil)

func NewClient(baseURL string, creds Credentials, log logger.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(DefaultTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent())

	return &Client{http: client, creds: creds, logger: log}
}

// TestConnection checks that the server answers. It does not authenticate.
func (c *Client) TestConnection(ctx context.Context) (*models.VersionInfo, error) {
	var info models.VersionInfo

	if err := c.do(ctx, http.MethodGet, versionPath, nil, &info, false); err != nil {
		return nil, err
	}

	return &info, nil
}

func (c *Client) Capabilities(ctx context.Context) (*models.Capabilities, error) {
	var caps models.Capabilities

	if err := c.do(ctx, http.MethodGet, capabilitiesPath, nil, &caps, true); err != nil {
		return nil, err
	}

	return &caps, nil
}

func (c *Client) Submit(ctx context.Context, payload *models.InventoryPayload) (*models.IngestResult, error) {
	var res models.IngestResult

	if err := c.do(ctx, http.MethodPost, inventoryPath, payload, &res, true); err != nil {
		return nil, err
	}

	return &res, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	var session models.SessionResponse

	req := models.SessionRequest{DB: c.creds.DB, Login: c.creds.Username, Password: c.creds.Password}
	if err := c.send(ctx, http.MethodPost, sessionPath, req, &session, ""); err != nil {
		return "", err
	}

	if session.Token == "" {
		return "", &TransportError{Op: "login", Err: errNoToken}
	}

	c.logger.Debug().Int64("uid", session.UID).Time("expires_at", session.ExpiresAt).Msg("Session opened")

	return session.Token, nil
}

func (c *Client) sessionToken(ctx context.Context, renew bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !renew {
		return c.token, nil
	}

	token, err := c.login(ctx)
	if err != nil {
		c.token = ""
		return "", err
	}

	c.token = token

	return token, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}, authenticated bool) error {
	if !authenticated {
		return c.send(ctx, method, path, body, result, "")
	}

	token, err := c.sessionToken(ctx, false)
	if err != nil {
		return err
	}

	err = c.send(ctx, method, path, body, result, token)

	var rej *ServerRejection
	if !errors.As(err, &rej) || rej.Status != http.StatusUnauthorized {
		return err
	}

	c.logger.Info().Str("path", path).Msg("Session expired, logging in again")

	if token, err = c.sessionToken(ctx, true); err != nil {
		return err
	}

	return c.send(ctx, method, path, body, result, token)
}

func (c *Client) send(ctx context.Context, method, path string, body, result interface{}, token string) error {
	var apiErr models.ErrorResponse

	req := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&apiErr)

	if body != nil {
		req.SetBody(body)
	}

	if token != "" {
		req.SetAuthToken(token)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return &TransportError{Op: fmt.Sprintf("%s %s", method, path), Err: err}
	}

	switch status := resp.StatusCode(); {
	case status >= http.StatusInternalServerError:
		return &TransportError{
			Op:  fmt.Sprintf("%s %s", method, path),
			Err: fmt.Errorf("server answered %d: %s", status, detail(&apiErr, resp)),
		}
	case status >= http.StatusBadRequest:
		return &ServerRejection{Method: method, URL: resp.Request.URL, Status: status, Detail: detail(&apiErr, resp)}
	}

	return nil
}

func detail(apiErr *models.ErrorResponse, resp *resty.Response) string {
	if apiErr.Message != "" {
		return apiErr.Message
	}

	return strings.TrimSpace(resp.String())
}
