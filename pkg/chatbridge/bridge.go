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

// Package chatbridge answers chat messages addressed to the AI partner.
package chatbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/sgich/assetradar/pkg/llm"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

const defaultHistory = 100

type Bridge struct {
	store       store.Store
	advisor     llm.Client
	aiPartnerID int64
	aiChannelID int64
	logger      logger.Logger
}

func New(st store.Store, advisor llm.Client, aiPartnerID, aiChannelID int64, log logger.Logger) *Bridge {
	return &Bridge{
		store:       st,
		advisor:     advisor,
		aiPartnerID: aiPartnerID,
		aiChannelID: aiChannelID,
		logger:      log,
	}
}

// Post stores a message on channelID and, when the channel reaches the AI
// partner, relays it to the advisor and posts the answer as the AI partner.
// The reply is nil when the message was not addressed to the AI. An advisor
// failure is returned alongside the stored message.
func (b *Bridge) Post(ctx context.Context, actor models.Actor, channelID int64, body string) (*models.ChatMessage, *models.ChatMessage, error) {
	return b.post(ctx, actor, channelID, actor.PartnerID, body)
}

// PostAs lets the system post on behalf of another partner.
func (b *Bridge) PostAs(ctx context.Context, actor models.Actor, channelID, authorPartnerID int64, body string) (*models.ChatMessage, *models.ChatMessage, error) {
	if authorPartnerID == 0 {
		authorPartnerID = actor.PartnerID
	}

	return b.post(ctx, actor, channelID, authorPartnerID, body)
}

func (b *Bridge) post(ctx context.Context, actor models.Actor, channelID, author int64, body string) (*models.ChatMessage, *models.ChatMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil, ErrEmptyMessage
	}

	if author == b.aiPartnerID && !actor.System {
		return nil, nil, ErrImpersonation
	}

	if author != actor.PartnerID && !actor.System {
		return nil, nil, fmt.Errorf("%w: partner %d", ErrImpersonation, author)
	}

	msg := &models.ChatMessage{ChannelID: channelID, AuthorPartnerID: author, Body: body}

	var relay bool

	err := b.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		ch, err := tx.GetChannel(ctx, channelID)
		if err != nil {
			return err
		}

		if ch.Kind == models.ChannelDirect && !actor.System && !slices.Contains(ch.Members, author) {
			return fmt.Errorf("%w: partner %d on channel %d", ErrNotChannelUser, author, channelID)
		}

		relay = b.addressed(ch) && author != b.aiPartnerID

		return tx.PostMessage(ctx, msg)
	})
	if err != nil {
		return nil, nil, err
	}

	if !relay {
		return msg, nil, nil
	}

	prompt := PlainText(body)
	if prompt == "" {
		return msg, nil, nil
	}

	answer, err := b.advisor.Complete(ctx, prompt)
	if err != nil {
		b.logger.Warn().Err(err).Int64("channel_id", channelID).Msg("AI reply failed")
		return msg, nil, fmt.Errorf("reply on channel %d: %w", channelID, err)
	}

	reply := &models.ChatMessage{ChannelID: channelID, AuthorPartnerID: b.aiPartnerID, Body: answer}

	if err := b.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PostMessage(ctx, reply)
	}); err != nil {
		return msg, nil, err
	}

	b.logger.Debug().Int64("channel_id", channelID).Int64("message_id", reply.ID).Msg("AI replied")

	return msg, reply, nil
}

// addressed is true for the AI channel and for direct chats that include
// the AI partner.
func (b *Bridge) addressed(ch *models.ChatChannel) bool {
	if b.aiChannelID != 0 && ch.ID == b.aiChannelID {
		return true
	}

	return ch.Kind == models.ChannelDirect && slices.Contains(ch.Members, b.aiPartnerID)
}

// Messages returns up to limit of the most recent messages, oldest first.
func (b *Bridge) Messages(ctx context.Context, channelID int64, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultHistory
	}

	var out []*models.ChatMessage

	err := b.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetChannel(ctx, channelID); err != nil {
			return err
		}

		var err error

		out, err = tx.ListMessages(ctx, channelID, limit)

		return err
	})

	return out, err
}

// PlainText drops markup from a chat body and collapses whitespace.
func PlainText(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))

	var b strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return strings.Join(strings.Fields(body), " ")
			}

			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			b.WriteByte(' ')
		case html.CommentToken, html.DoctypeToken:
		}
	}
}
