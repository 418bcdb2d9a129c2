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

package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/store/memory"
)

var operator = models.Actor{UserID: 3, PartnerID: 4}

type fixture struct {
	svc *Service
	st  *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	log := logger.NewTestLogger()

	return &fixture{svc: NewService(st, incidents.NewJournal(nil, log), log), st: st}
}

func (f *fixture) tx(t *testing.T, fn func(ctx context.Context, tx store.Tx)) {
	t.Helper()

	require.NoError(t, f.st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		fn(ctx, tx)
		return nil
	}))
}

func (f *fixture) incidents(t *testing.T, filter models.IncidentFilter) []*models.Incident {
	t.Helper()

	var out []*models.Incident

	f.tx(t, func(ctx context.Context, tx store.Tx) {
		var err error
		out, err = tx.ListIncidents(ctx, filter)
		require.NoError(t, err)
	})

	return out
}

func (f *fixture) itUser(t *testing.T, login string) *models.ITUser {
	t.Helper()

	var su models.SystemUser

	f.tx(t, func(ctx context.Context, tx store.Tx) {
		su = models.SystemUser{Login: login, Active: true}
		require.NoError(t, tx.CreateSystemUser(ctx, &su))
	})

	u, err := f.svc.CreateITUser(context.Background(), operator, &models.ITUser{SystemUserID: su.ID})
	require.NoError(t, err)

	return u
}

func (f *fixture) software(t *testing.T, name string) *models.Software {
	t.Helper()

	var sw *models.Software

	f.tx(t, func(ctx context.Context, tx store.Tx) {
		var err error
		sw, err = tx.FindOrCreateSoftware(ctx, name, "1.0", "")
		require.NoError(t, err)
	})

	return sw
}

func TestHardwareLifecycleIncidents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hw, err := f.svc.CreateHardware(ctx, operator, &models.Hardware{Name: "pc-01"})
	require.NoError(t, err)
	assert.Equal(t, models.HardwareDraft, hw.Status)
	assert.Equal(t, models.ConnectionPending, hw.ConnectionStatus)

	active := models.HardwareActive
	_, err = f.svc.UpdateHardware(ctx, operator, hw.ID, HardwarePatch{Status: &active})
	require.NoError(t, err)

	inv := "INV-0001"
	_, err = f.svc.UpdateHardware(ctx, operator, hw.ID, HardwarePatch{InventoryNumber: &inv})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteHardware(ctx, operator, hw.ID))

	incs := f.incidents(t, models.IncidentFilter{AssetModel: models.ModelHardware})
	require.Len(t, incs, 3, "inventory number is not a tracked field")
	assert.Equal(t, models.SeverityHigh, incs[0].Severity)
	assert.Nil(t, incs[0].Asset.ID, "deletions keep only a textual reference")
	assert.Contains(t, incs[0].Asset.Label, "pc-01")
	assert.Equal(t, models.SeverityMedium, incs[1].Severity)
	assert.Equal(t, models.SeverityLow, incs[2].Severity)

	_, err = f.svc.GetHardware(ctx, hw.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateHardwareValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateHardware(context.Background(), operator, &models.Hardware{Name: " "})
	assert.ErrorIs(t, err, ErrValidation)

	missing := int64(999)
	_, err = f.svc.CreateHardware(context.Background(), operator, &models.Hardware{Name: "pc", ResponsibleID: &missing})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, f.incidents(t, models.IncidentFilter{}))
}

func TestRevokeClearsResponsible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.itUser(t, "alice")

	_, err := f.svc.ActivateITUser(ctx, operator, u.ID)
	require.NoError(t, err)

	hw, err := f.svc.CreateHardware(ctx, operator, &models.Hardware{Name: "pc-01", ResponsibleID: &u.ID})
	require.NoError(t, err)

	revoked, err := f.svc.RevokeITUser(ctx, operator, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ITUserRevoked, revoked.Status)

	hw, err = f.svc.GetHardware(ctx, hw.ID)
	require.NoError(t, err)
	assert.Nil(t, hw.ResponsibleID)

	_, err = f.svc.SuspendITUser(ctx, operator, u.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	retired, err := f.svc.RetireITUser(ctx, operator, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ITUserRetired, retired.Status)
}

func TestProfileIncidents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.software(t, "A")
	b := f.software(t, "B")

	p, err := f.svc.CreateProfile(ctx, operator, &models.Profile{Name: "office", AllowedSoftware: []int64{a.ID, a.ID}})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, p.AllowedSoftware)

	name := "office"
	_, err = f.svc.UpdateProfile(ctx, operator, p.ID, ProfilePatch{Name: &name, AllowedSoftware: []int64{a.ID}})
	require.NoError(t, err)

	_, err = f.svc.UpdateProfile(ctx, operator, p.ID, ProfilePatch{AllowedSoftware: []int64{a.ID, b.ID}})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProfile(ctx, operator, p.ID))

	incs := f.incidents(t, models.IncidentFilter{AssetModel: models.ModelProfile})
	require.Len(t, incs, 3)
	assert.Equal(t, models.SeverityHigh, incs[0].Severity)
	assert.Equal(t, models.SeverityMedium, incs[1].Severity)
	assert.Equal(t, models.SeverityLow, incs[2].Severity)
}

func TestComplianceViolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.itUser(t, "bob")
	a := f.software(t, "A")
	b := f.software(t, "B")

	hw, err := f.svc.CreateHardware(ctx, operator, &models.Hardware{Name: "pc-02", ResponsibleID: &u.ID})
	require.NoError(t, err)

	f.tx(t, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.SetHardwareSoftware(ctx, hw.ID, []int64{a.ID, b.ID}))
	})

	p, err := f.svc.CreateProfile(ctx, operator, &models.Profile{Name: "P", AllowedSoftware: []int64{a.ID}, Members: []int64{u.ID}})
	require.NoError(t, err)

	violations, err := f.svc.CheckProfile(ctx, operator, p.ID)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, b.ID, violations[0].SoftwareID)
	assert.Zero(t, violations[0].IncidentID, "the open incident from profile creation is not repeated")

	incs := f.incidents(t, models.IncidentFilter{Fingerprint: complianceFingerprint(p.ID, u.ID, b.ID)})
	require.Len(t, incs, 1)
	assert.Equal(t, models.SeverityMedium, incs[0].Severity)
	assert.Equal(t, models.ModelITUser, incs[0].Asset.Model)
	assert.Equal(t, u.ID, *incs[0].Asset.ID)
	assert.Contains(t, incs[0].Title, "B")
	assert.Contains(t, incs[0].Description, `profile "P"`)

	p, err = f.svc.GetProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, p.AllowedSoftware)

	involved, err := f.svc.InvolvedHardware(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, involved, 1)
	assert.Equal(t, hw.ID, involved[0].ID)
}

func TestHardwareChangedHookChecksResponsible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.itUser(t, "carol")
	a := f.software(t, "A")
	b := f.software(t, "B")

	p, err := f.svc.CreateProfile(ctx, operator, &models.Profile{Name: "P", AllowedSoftware: []int64{a.ID}, Members: []int64{u.ID}})
	require.NoError(t, err)

	hw, err := f.svc.CreateHardware(ctx, operator, &models.Hardware{Name: "pc-03", ResponsibleID: &u.ID})
	require.NoError(t, err)

	require.NoError(t, f.st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.SetHardwareSoftware(ctx, hw.ID, []int64{b.ID}); err != nil {
			return err
		}

		return f.svc.HardwareChanged(ctx, tx, operator, hw.ID)
	}))

	assert.Len(t, f.incidents(t, models.IncidentFilter{Fingerprint: complianceFingerprint(p.ID, u.ID, b.ID)}), 1)
}

func TestComplianceIsPerProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.itUser(t, "dave")
	a := f.software(t, "A")
	b := f.software(t, "B")

	hw, err := f.svc.CreateHardware(ctx, operator, &models.Hardware{Name: "pc-04", ResponsibleID: &u.ID})
	require.NoError(t, err)

	f.tx(t, func(ctx context.Context, tx store.Tx) {
		require.NoError(t, tx.SetHardwareSoftware(ctx, hw.ID, []int64{a.ID, b.ID}))
	})

	q, err := f.svc.CreateProfile(ctx, operator, &models.Profile{Name: "Q", AllowedSoftware: []int64{b.ID}, Members: []int64{u.ID}})
	require.NoError(t, err)

	p, err := f.svc.CreateProfile(ctx, operator, &models.Profile{Name: "P", AllowedSoftware: []int64{a.ID}, Members: []int64{u.ID}})
	require.NoError(t, err)

	violations, err := f.svc.CheckProfile(ctx, operator, p.ID)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, p.ID, violations[0].ProfileID)
	assert.Equal(t, b.ID, violations[0].SoftwareID)

	incs := f.incidents(t, models.IncidentFilter{Fingerprint: complianceFingerprint(p.ID, u.ID, b.ID)})
	require.Len(t, incs, 1)
	assert.Contains(t, incs[0].Description, `profile "P"`)

	violations, err = f.svc.CheckProfile(ctx, operator, q.ID)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, a.ID, violations[0].SoftwareID)
	assert.Len(t, f.incidents(t, models.IncidentFilter{Fingerprint: complianceFingerprint(q.ID, u.ID, a.ID)}), 1)
}
