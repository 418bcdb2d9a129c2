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

package incidents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
)

const (
	DefaultStreamName    = "SGICH_NOTIFICATIONS"
	DefaultSubjectPrefix = "sgich.notifications"

	eventSource = "sgich/core"
	eventType   = "com.sgich.assetradar.notification"
)

// Notifier delivers a transient notification to a partner.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// LogNotifier writes notifications to the log; used when no bus is configured.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (l *LogNotifier) Notify(_ context.Context, n models.Notification) error {
	l.logger.Info().
		Int64("partner_id", n.PartnerID).
		Str("type", string(n.Type)).
		Int64("incident_id", n.IncidentID).
		Bool("sticky", n.Sticky).
		Msg(n.Title)

	return nil
}

// CloudEvent is the envelope published on the bus.
type CloudEvent struct {
	SpecVersion     string              `json:"specversion"`
	ID              string              `json:"id"`
	Source          string              `json:"source"`
	Type            string              `json:"type"`
	DataContentType string              `json:"datacontenttype"`
	Subject         string              `json:"subject"`
	Time            time.Time           `json:"time"`
	Data            models.Notification `json:"data"`
}

type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// BusNotifier publishes notifications to JetStream under
// <prefix>.partner.<partner_id>.
type BusNotifier struct {
	js     publisher
	prefix string
	logger logger.Logger
}

func NewBusNotifier(js publisher, prefix string, log logger.Logger) *BusNotifier {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &BusNotifier{js: js, prefix: strings.TrimSuffix(prefix, "."), logger: log}
}

// Subject is the bus subject for a partner's notifications.
func (b *BusNotifier) Subject(partnerID int64) string {
	return fmt.Sprintf("%s.partner.%d", b.prefix, partnerID)
}

func (b *BusNotifier) Notify(ctx context.Context, n models.Notification) error {
	event := CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         b.Subject(n.PartnerID),
		Time:            time.Now().UTC(),
		Data:            n,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ack, err := b.js.Publish(ctx, event.Subject, payload)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	b.logger.Debug().Str("subject", event.Subject).Uint64("seq", ack.Sequence).Msg("notification published")

	return nil
}

// ensureSubjectList appends subject unless an existing entry already covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, s := range subjects {
		if subjectMatches(s, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return i < len(st)
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}

// ConnectBus dials NATS, makes sure the notification stream captures
// <prefix>.partner.> and returns a notifier over it.
func ConnectBus(ctx context.Context, cfg *models.NATSConfig, log logger.Logger) (*BusNotifier, *nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("sgich-core"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	notifier := NewBusNotifier(js, cfg.SubjectPrefix, log)
	wanted := notifier.prefix + ".partner.>"

	stream, err := js.Stream(ctx, DefaultStreamName)

	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound):
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     DefaultStreamName,
			Subjects: []string{wanted},
			MaxAge:   24 * time.Hour,
		})
	case err == nil:
		sc := stream.CachedInfo().Config
		if updated := ensureSubjectList(sc.Subjects, wanted); len(updated) != len(sc.Subjects) {
			sc.Subjects = updated
			_, err = js.UpdateStream(ctx, sc)
		}
	}

	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to prepare stream %s: %w", DefaultStreamName, err)
	}

	return notifier, nc, nil
}
