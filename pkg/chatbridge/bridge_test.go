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

package chatbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sgich/assetradar/pkg/llm"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/store/memory"
)

const aiPartner = int64(2)

type fixture struct {
	bridge  *Bridge
	advisor *llm.MockClient
	store   *memory.Store
	aiChan  int64
	direct  int64
	others  int64
}

func setup(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	f := &fixture{store: st, advisor: llm.NewMockClient(gomock.NewController(t))}

	require.NoError(t, st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		channels := []*models.ChatChannel{
			{Name: "IA", Kind: models.ChannelGroup, Members: []int64{aiPartner}},
			{Name: "ana / IA", Kind: models.ChannelDirect, Members: []int64{7, aiPartner}},
			{Name: "general", Kind: models.ChannelGroup, Members: []int64{7, 8}},
		}

		for _, ch := range channels {
			if err := tx.CreateChannel(ctx, ch); err != nil {
				return err
			}
		}

		f.aiChan, f.direct, f.others = channels[0].ID, channels[1].ID, channels[2].ID

		return nil
	}))

	f.bridge = New(st, f.advisor, aiPartner, f.aiChan, logger.NewTestLogger())

	return f
}

func TestDirectMessageGetsReply(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.advisor.EXPECT().Complete(gomock.Any(), "hola ¿qué tal?").Return("Bien, gracias.", nil)

	msg, reply, err := f.bridge.Post(ctx, models.Actor{PartnerID: 7}, f.direct, "<p>hola <b>¿qué tal?</b></p>")
	require.NoError(t, err)
	require.NotNil(t, reply)

	assert.Equal(t, int64(7), msg.AuthorPartnerID)
	assert.Equal(t, aiPartner, reply.AuthorPartnerID)
	assert.Equal(t, "Bien, gracias.", reply.Body)

	history, err := f.bridge.Messages(ctx, f.direct, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, msg.ID, history[0].ID)
	assert.Equal(t, reply.ID, history[1].ID)
}

func TestAIChannelGetsReply(t *testing.T) {
	f := setup(t)

	f.advisor.EXPECT().Complete(gomock.Any(), "resume el plan").Return("ok", nil)

	_, reply, err := f.bridge.Post(context.Background(), models.Actor{PartnerID: 8}, f.aiChan, "resume el plan")
	require.NoError(t, err)
	assert.NotNil(t, reply)
}

func TestOtherChannelsAreIgnored(t *testing.T) {
	f := setup(t)

	msg, reply, err := f.bridge.Post(context.Background(), models.Actor{PartnerID: 7}, f.others, "hola")
	require.NoError(t, err)
	assert.NotNil(t, msg)
	assert.Nil(t, reply)
}

func TestLoopGuard(t *testing.T) {
	f := setup(t)

	_, reply, err := f.bridge.PostAs(context.Background(), models.Actor{System: true}, f.direct, aiPartner, "respuesta")
	require.NoError(t, err)
	assert.Nil(t, reply)
}

func TestImpersonationRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.bridge.PostAs(ctx, models.Actor{PartnerID: 7}, f.direct, aiPartner, "soy la IA")
	require.ErrorIs(t, err, ErrImpersonation)

	_, _, err = f.bridge.PostAs(ctx, models.Actor{PartnerID: 7}, f.direct, 8, "soy otro")
	require.ErrorIs(t, err, ErrImpersonation)

	history, err := f.bridge.Messages(ctx, f.direct, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDirectChannelMembership(t *testing.T) {
	f := setup(t)

	_, _, err := f.bridge.Post(context.Background(), models.Actor{PartnerID: 8}, f.direct, "hola")
	assert.ErrorIs(t, err, ErrNotChannelUser)
}

func TestAdvisorFailureKeepsMessage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.advisor.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", llm.ErrLLMUnavailable)

	msg, reply, err := f.bridge.Post(ctx, models.Actor{PartnerID: 7}, f.direct, "hola")
	require.ErrorIs(t, err, llm.ErrLLMUnavailable)
	assert.NotNil(t, msg)
	assert.Nil(t, reply)

	history, err := f.bridge.Messages(ctx, f.direct, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestEmptyAndUnknownChannel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.bridge.Post(ctx, models.Actor{PartnerID: 7}, f.direct, "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, _, err = f.bridge.Post(ctx, models.Actor{PartnerID: 7}, 999, "hola")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a b & c", PlainText("<div>a<br/>b &amp; c</div>"))
	assert.Equal(t, "texto", PlainText("  texto  "))
	assert.Empty(t, PlainText("<p></p>"))
}
