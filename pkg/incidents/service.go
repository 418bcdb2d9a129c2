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

	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
)

// Service is the operator view of the journal.
type Service struct {
	store   store.Store
	journal *Journal
}

func NewService(st store.Store, journal *Journal) *Service {
	return &Service{store: st, journal: journal}
}

// List returns the incidents matching filter, newest first.
func (s *Service) List(ctx context.Context, filter models.IncidentFilter) ([]*models.Incident, error) {
	var out []*models.Incident

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		out, err = tx.ListIncidents(ctx, filter)

		return err
	})

	return out, err
}

// Advance moves incident id to status to in its own transaction.
func (s *Service) Advance(ctx context.Context, id int64, to models.IncidentStatus) (*models.Incident, error) {
	var inc *models.Incident

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error

		inc, err = s.journal.Advance(ctx, tx, id, to)

		return err
	})

	return inc, err
}
