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

package reachability

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/sgich/assetradar/pkg/incidents"
	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/store"
	"github.com/sgich/assetradar/pkg/store/memory"
)

var systemActor = models.Actor{PartnerID: 1, System: true}

func seedHardware(t *testing.T, st store.Store, status models.HardwareStatus, addrs ...string) *models.Hardware {
	t.Helper()

	hw := &models.Hardware{Name: "pc-01", Subtype: models.SubtypePC, Status: status, ConnectionStatus: models.ConnectionPending}

	require.NoError(t, st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateHardware(ctx, hw); err != nil {
			return err
		}

		ids := make([]int64, 0, len(addrs))

		for _, a := range addrs {
			ip, err := tx.FindOrCreateIP(ctx, a)
			if err != nil {
				return err
			}

			ids = append(ids, ip.ID)
		}

		return tx.SetHardwareIPs(ctx, hw.ID, ids)
	}))

	return hw
}

func newMonitor(st store.Store, p Pinger) *Monitor {
	log := logger.NewTestLogger()
	return NewMonitor(st, incidents.NewJournal(nil, log), p, systemActor, 0, log)
}

func pingHistory(t *testing.T, st store.Store, hardwareID int64) ([]*models.PingRecord, *models.Hardware, []*models.Incident) {
	t.Helper()

	var (
		pings []*models.PingRecord
		hw    *models.Hardware
		incs  []*models.Incident
	)

	require.NoError(t, st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error

		if pings, err = tx.ListPings(ctx, hardwareID, 10); err != nil {
			return err
		}

		if hw, err = tx.GetHardware(ctx, hardwareID); err != nil {
			return err
		}

		incs, err = tx.ListIncidents(ctx, models.IncidentFilter{Severity: models.SeverityInfo})

		return err
	}))

	return pings, hw, incs
}

func TestMonitorRecordsTransitionOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := memory.New()
	hw := seedHardware(t, st, models.HardwareActive, "10.0.0.5", "10.0.0.6")
	seedHardware(t, st, models.HardwareDraft, "10.0.0.7")

	pinger := NewMockPinger(ctrl)
	gomock.InOrder(
		pinger.EXPECT().Ping(gomock.Any(), "10.0.0.5", defaultTimeout).
			Return(Result{Status: models.ConnectionOnline, RTT: 1500 * time.Microsecond}, nil),
		pinger.EXPECT().Ping(gomock.Any(), "10.0.0.5", defaultTimeout).
			Return(Result{Status: models.ConnectionOnline, RTT: time.Millisecond}, nil),
		pinger.EXPECT().Ping(gomock.Any(), "10.0.0.5", defaultTimeout).
			Return(Result{Status: models.ConnectionUnreachable}, nil),
	)

	m := newMonitor(st, pinger)

	for i := 0; i < 3; i++ {
		_, err := m.RunOnce(context.Background())
		require.NoError(t, err)
	}

	pings, got, incs := pingHistory(t, st, hw.ID)
	require.Len(t, pings, 3)
	assert.Equal(t, models.ConnectionUnreachable, pings[0].Status)
	assert.Zero(t, pings[0].RTTMs)
	assert.InDelta(t, 1.5, pings[2].RTTMs, 0.001)

	assert.Equal(t, models.ConnectionUnreachable, got.ConnectionStatus)
	require.NotNil(t, got.LastPingAt)

	require.Len(t, incs, 1)
	assert.Equal(t, hw.ID, *incs[0].Asset.ID)
}

func TestMonitorProbeErrorIsUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := memory.New()
	hw := seedHardware(t, st, models.HardwareActive, "10.0.0.5")
	seedHardware(t, st, models.HardwareActive)

	pinger := NewMockPinger(ctrl)
	pinger.EXPECT().Ping(gomock.Any(), "10.0.0.5", gomock.Any()).Return(Result{}, errors.New("exec: ping not found"))

	sum, err := newMonitor(st, pinger).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Probed)
	assert.Equal(t, 1, sum.NoAddress)

	pings, got, incs := pingHistory(t, st, hw.ID)
	require.Len(t, pings, 1)
	assert.Equal(t, models.ConnectionUnknown, pings[0].Status)
	assert.Equal(t, models.ConnectionUnknown, got.ConnectionStatus)
	assert.Empty(t, incs, "the first ping has nothing to transition from")
}

func TestMonitorSkipsWhileLocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := memory.New()
	seedHardware(t, st, models.HardwareActive, "10.0.0.5")

	release, ok, err := st.TryAdvisoryLock(context.Background(), LockName)
	require.NoError(t, err)
	require.True(t, ok)

	defer release()

	sum, err := newMonitor(st, NewMockPinger(ctrl)).RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Skipped)
}

func TestPingArgs(t *testing.T) {
	v4 := netip.MustParseAddr("10.0.0.5")
	v6 := netip.MustParseAddr("fe80::1")

	name, args := pingArgs("windows", v4)
	assert.Equal(t, "ping", name)
	assert.Equal(t, []string{"-n", "1", "10.0.0.5"}, args)

	name, args = pingArgs("darwin", v6)
	assert.Equal(t, "ping6", name)
	assert.Equal(t, []string{"-c", "1", "fe80::1"}, args)

	_, args = pingArgs("linux", v4)
	assert.Equal(t, []string{"-c", "1", "10.0.0.5"}, args)
}

func TestClassify(t *testing.T) {
	linux := "64 bytes from 10.0.0.5: icmp_seq=1 ttl=64 time=0.412 ms"
	res := classify([]byte(linux))
	assert.Equal(t, models.ConnectionOnline, res.Status)
	assert.Equal(t, 412*time.Microsecond, res.RTT)

	windows := "Reply from 10.0.0.5: bytes=32 time<1ms TTL=128"
	assert.Equal(t, models.ConnectionOnline, classify([]byte(windows)).Status)

	unreachable := "Reply from 10.0.0.1: Destination host unreachable."
	assert.Equal(t, models.ConnectionOffline, classify([]byte(unreachable)).Status)
}

func TestReplyStatus(t *testing.T) {
	reply := &icmp.Message{Type: ipv4.ICMPTypeEchoReply, Body: &icmp.Echo{ID: 7, Seq: 3}}

	status, ok := replyStatus(reply, 3, false, 7)
	assert.True(t, ok)
	assert.Equal(t, models.ConnectionOnline, status)

	_, ok = replyStatus(reply, 4, false, 7)
	assert.False(t, ok, "other sequence numbers belong to other probes")

	_, ok = replyStatus(reply, 3, false, 8)
	assert.False(t, ok)

	_, ok = replyStatus(reply, 3, true, 8)
	assert.True(t, ok, "datagram sockets ignore the identifier")

	unreach := &icmp.Message{Type: ipv4.ICMPTypeDestinationUnreachable, Body: &icmp.DstUnreach{}}
	status, ok = replyStatus(unreach, 3, false, 7)
	assert.True(t, ok)
	assert.Equal(t, models.ConnectionOffline, status)
}

func TestPingRejectsBadAddress(t *testing.T) {
	_, err := NewExecPinger().Ping(context.Background(), "not-an-ip", time.Second)
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewICMPPinger().Ping(context.Background(), "fe80::1", time.Second)
	assert.ErrorIs(t, err, ErrIPv6Unsupported)
}
