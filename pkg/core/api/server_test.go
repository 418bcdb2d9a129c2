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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/sgich/assetradar/pkg/assets"
	"github.com/sgich/assetradar/pkg/backlog"
	"github.com/sgich/assetradar/pkg/chatbridge"
	"github.com/sgich/assetradar/pkg/core/auth"
	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/llm"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/store/memory"
	"github.com/sgich/assetradar/pkg/workplan"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "s3cret"
)

type fixture struct {
	handler     http.Handler
	advisor     *llm.MockClient
	token       string
	aiPartnerID int64
	aiChannelID int64
	userPartner int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	log := logger.NewTestLogger()
	st := memory.New()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{advisor: llm.NewMockClient(ctrl)}

	var systemPartner int64

	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		system := &models.Partner{Name: "System"}
		ai := &models.Partner{Name: "AI Assistant"}
		user := &models.Partner{Name: "Ada"}

		for _, p := range []*models.Partner{system, ai, user} {
			if err := tx.CreatePartner(ctx, p); err != nil {
				return err
			}
		}

		ch := &models.ChatChannel{Name: "ai-assistant", Kind: models.ChannelGroup, Members: []int64{ai.ID}}
		if err := tx.CreateChannel(ctx, ch); err != nil {
			return err
		}

		systemPartner, f.aiPartnerID, f.userPartner, f.aiChannelID = system.ID, ai.ID, user.ID, ch.ID

		return tx.CreateSystemUser(ctx, &models.SystemUser{
			Login:        "ada",
			PasswordHash: string(hash),
			PartnerID:    user.ID,
			Active:       true,
		})
	}))

	authSvc, err := auth.NewAuth(&auth.Config{
		DBName:          "assetradar",
		JWTSecret:       testSecret,
		SystemPartnerID: systemPartner,
	}, st)
	require.NoError(t, err)

	journal := incidents.NewJournal(incidents.NewLogNotifier(log), log)
	assetSvc := assets.NewService(st, journal, log)
	backlogSvc := backlog.NewService(st, journal, models.ModulesConfig{Hardware: true, Software: true, Network: true}, log)
	backlogSvc.SetHardwareHook(assetSvc)

	server := NewAPIServer(log,
		WithAuthService(authSvc),
		WithBacklog(backlogSvc),
		WithAssets(assetSvc),
		WithIncidents(incidents.NewService(st, journal)),
		WithWorkplans(workplan.NewService(st, f.advisor, f.aiPartnerID, log)),
		WithChat(chatbridge.New(st, f.advisor, f.aiPartnerID, f.aiChannelID, log)),
	)

	f.handler = server.Handler()

	rec := f.do(t, http.MethodPost, "/session", models.SessionRequest{DB: "assetradar", Login: "ada", Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session models.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)

	f.token = session.Token

	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer

	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, PathPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")

	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()

	var out models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	return out
}

func TestSessionRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.token = ""

	rec := f.do(t, http.MethodPost, "/session", models.SessionRequest{DB: "assetradar", Login: "ada", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, decodeError(t, rec).Status)

	rec = f.do(t, http.MethodPost, "/session", models.SessionRequest{DB: "other", Login: "ada", Password: testPassword})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	f := newFixture(t)

	token := f.token
	f.token = ""

	rec := f.do(t, http.MethodGet, "/hardware", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.token = token + "x"
	rec = f.do(t, http.MethodGet, "/hardware", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.token = ""
	rec = f.do(t, http.MethodGet, "/version", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestInventoryPromoteFlow(t *testing.T) {
	f := newFixture(t)

	payload := models.InventoryPayload{
		UniqueID:        "host-1",
		DescriptiveName: "Workstation 1",
		RawSnapshot:     json.RawMessage(`{"chassis":"desktop"}`),
		DetectedIPs:     []string{"10.0.0.5"},
	}

	rec := f.do(t, http.MethodPost, "/inventory", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Created)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/backlog/%d/promote", res.BacklogID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var hw models.Hardware
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hw))
	assert.Equal(t, "host-1", hw.UniqueID)

	rec = f.do(t, http.MethodGet, "/backlog?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/inventory", models.InventoryPayload{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHardwareCRUDAndIncidents(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/hardware", models.Hardware{Name: "Printer", Subtype: models.SubtypeOther})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var hw models.Hardware
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hw))

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/hardware/%d", hw.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/hardware", models.Hardware{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/hardware/999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/hardware/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/incidents?model=hardware", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []*models.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.NotEmpty(t, list)

	path := fmt.Sprintf("/incidents/%d", list[0].ID)

	rec = f.do(t, http.MethodPatch, path, map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPatch, path, map[string]string{"status": "new"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/hardware/%d", hw.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChatRoutes(t *testing.T) {
	f := newFixture(t)

	path := fmt.Sprintf("/chat/channels/%d/messages", f.aiChannelID)

	f.advisor.EXPECT().Complete(gomock.Any(), "hola").Return("buenas", nil)

	rec := f.do(t, http.MethodPost, path, map[string]string{"body": "<p>hola</p>"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp postMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Reply)
	assert.Equal(t, f.aiPartnerID, resp.Reply.AuthorPartnerID)
	assert.Equal(t, f.userPartner, resp.Message.AuthorPartnerID)

	f.advisor.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", llm.ErrLLMUnavailable)

	rec = f.do(t, http.MethodPost, path, map[string]string{"body": "again"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = f.do(t, http.MethodPost, path, map[string]string{
		"body":              "pretending",
		"author_partner_id": fmt.Sprint(f.aiPartnerID),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, path, map[string]string{"body": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []*models.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 3)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decodeError(t, rec).Message)
}
