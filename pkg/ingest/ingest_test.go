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

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
)

type fakeCore struct {
	logins    atomic.Int32
	submits   atomic.Int32
	expireOne atomic.Bool
	received  models.InventoryPayload
}

func (f *fakeCore) handler(t *testing.T) http.Handler {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		assert.NoError(t, json.NewEncoder(w).Encode(v))
	}

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer tok" || f.expireOne.CompareAndSwap(true, false) {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "invalid token", Status: http.StatusUnauthorized})
			return false
		}

		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.VersionInfo{ServerVersion: "1.2.0", APIVersion: "1"})
	})
	mux.HandleFunc("POST /api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		var req models.SessionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		f.logins.Add(1)

		if req.DB != "sgich" || req.Login != "agent" || req.Password != "s3cret" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "invalid credentials", Status: http.StatusUnauthorized})
			return
		}

		writeJSON(w, http.StatusOK, models.SessionResponse{Token: "tok", UID: 7, PartnerID: 9})
	})
	mux.HandleFunc("GET /api/v1/capabilities", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSON(w, http.StatusOK, models.Capabilities{Hardware: true, Software: true})
		}
	})
	mux.HandleFunc("POST /api/v1/inventory", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}

		f.submits.Add(1)

		if err := json.NewDecoder(r.Body).Decode(&f.received); err != nil || f.received.UniqueID == "" {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Message: "unique_id is required", Status: http.StatusBadRequest})
			return
		}

		if f.received.UniqueID == "explode" {
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Message: "internal server error", Status: http.StatusInternalServerError})
			return
		}

		writeJSON(w, http.StatusOK, models.IngestResult{BacklogID: 42, Created: true, Changed: true})
	})

	return mux
}

func newTestClient(t *testing.T, password string) (*Client, *fakeCore) {
	t.Helper()

	core := &fakeCore{}
	srv := httptest.NewServer(core.handler(t))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL+"/", Credentials{DB: "sgich", Username: "agent", Password: password}, logger.NewTestLogger()), core
}

func TestClientCycle(t *testing.T) {
	c, core := newTestClient(t, "s3cret")
	ctx := context.Background()

	info, err := c.TestConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", info.ServerVersion)
	assert.Equal(t, int32(0), core.logins.Load())

	caps, err := c.Capabilities(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Capabilities{Hardware: true, Software: true}, *caps)

	res, err := c.Submit(ctx, &models.InventoryPayload{UniqueID: "M-SERIAL-01", Type: models.BacklogTypeHardware})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.BacklogID)
	assert.True(t, res.Created)
	assert.Equal(t, "M-SERIAL-01", core.received.UniqueID)

	assert.Equal(t, int32(1), core.logins.Load())
}

func TestClientRenewsExpiredSession(t *testing.T) {
	c, core := newTestClient(t, "s3cret")

	_, err := c.Capabilities(context.Background())
	require.NoError(t, err)

	core.expireOne.Store(true)

	_, err = c.Submit(context.Background(), &models.InventoryPayload{UniqueID: "M-1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), core.logins.Load())
	assert.Equal(t, int32(1), core.submits.Load())
}

func TestClientBadCredentialsAreRejections(t *testing.T) {
	c, _ := newTestClient(t, "wrong")

	_, err := c.Capabilities(context.Background())
	require.Error(t, err)

	var rej *ServerRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, http.StatusUnauthorized, rej.Status)
	assert.Equal(t, "invalid credentials", rej.Detail)
	assert.True(t, IsRejection(err))
}

func TestClientClassifiesErrors(t *testing.T) {
	c, _ := newTestClient(t, "s3cret")

	_, err := c.Submit(context.Background(), &models.InventoryPayload{})
	require.True(t, IsRejection(err))
	assert.Contains(t, err.Error(), "unique_id is required")

	_, err = c.Submit(context.Background(), &models.InventoryPayload{UniqueID: "explode"})

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, IsRejection(err))
	assert.Contains(t, err.Error(), "500")
}

func TestClientUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, Credentials{}, logger.NewTestLogger())

	_, err := c.TestConnection(context.Background())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "GET /api/v1/version", te.Op)
}

func sampleSnapshot() *models.HostSnapshot {
	return &models.HostSnapshot{
		UniqueID:       "M-SERIAL-01",
		UniqueIDStable: true,
		Hostname:       "ws-01",
		CPU:            models.CPUInfo{Model: "Intel Core i5", Cores: 4, Threads: 8, SpeedHz: 2_400_000_000},
		RAMModules:     []models.MemoryModule{{Slot: "DIMM0", Model: "DDR4", SizeBytes: 8 << 30}},
		Disks:          []models.Disk{{Name: "nvme0n1", Model: "NVMe SSD", Serial: "S4EV", SizeBytes: 512_000_000_000}},
		GPUs:           []models.GPU{{Vendor: "Intel", Model: "UHD 620"}},
		Peripherals:    []models.Peripheral{{Kind: "usb", Model: "Keyboard"}},
		Interfaces: []models.NetInterface{
			{Name: "eth0", IP: "10.0.0.6", MAC: "aa:bb:cc:dd:ee:ff"},
			{Name: "eth0", IP: "10.0.0.5", MAC: "aa:bb:cc:dd:ee:ff"},
			{Name: "wlan0", MAC: "11:22:33:44:55:66"},
		},
		InstalledSoftware: []models.SoftwareItem{{Name: "vim", Version: "9.0"}},
		Updates:           []models.Update{{ID: "KB1"}},
	}
}

func TestBuildPayloadWithAllModules(t *testing.T) {
	p, err := BuildPayload(sampleSnapshot(), models.Capabilities{Hardware: true, Software: true, Network: true})
	require.NoError(t, err)

	assert.Equal(t, "M-SERIAL-01", p.UniqueID)
	assert.Equal(t, "ws-01", p.DescriptiveName)
	assert.Equal(t, models.BacklogTypeHardware, p.Type)
	assert.Equal(t, []string{"10.0.0.5", "10.0.0.6"}, p.DetectedIPs)
	assert.Equal(t, []models.DetectedSoftware{{Name: "vim", Version: "9.0"}}, p.DetectedSoftware)

	kinds := make([]string, 0, len(p.DetectedComponents))
	for _, c := range p.DetectedComponents {
		kinds = append(kinds, c.Kind)
	}

	assert.Equal(t, []string{KindCPU, KindDIMM, KindDisk, KindGPU, KindPeripheral}, kinds)
	assert.Equal(t, uint64(8<<30), p.DetectedComponents[1].SizeBytes)
	assert.Equal(t, "DIMM0", p.DetectedComponents[1].Slot)
	assert.False(t, p.DetectedComponents[4].Internal)

	var raw models.HostSnapshot
	require.NoError(t, json.Unmarshal(p.RawSnapshot, &raw))
	assert.Len(t, raw.Interfaces, 3)
	assert.Len(t, raw.InstalledSoftware, 1)
}

func TestBuildPayloadDropsUnadvertisedModules(t *testing.T) {
	snap := sampleSnapshot()

	p, err := BuildPayload(snap, models.Capabilities{Hardware: true})
	require.NoError(t, err)

	assert.Empty(t, p.DetectedIPs)
	assert.Empty(t, p.DetectedSoftware)
	assert.NotEmpty(t, p.DetectedComponents)

	var raw models.HostSnapshot
	require.NoError(t, json.Unmarshal(p.RawSnapshot, &raw))
	assert.Empty(t, raw.Interfaces)
	assert.Empty(t, raw.InstalledSoftware)
	assert.Empty(t, raw.Updates)

	assert.Len(t, snap.Interfaces, 3, "caller's snapshot is left untouched")
}

func TestBuildPayloadRejectsAnonymousSnapshots(t *testing.T) {
	_, err := BuildPayload(&models.HostSnapshot{Hostname: "x"}, models.Capabilities{})
	require.True(t, errors.Is(err, errEmptyUniqueID))

	_, err = BuildPayload(nil, models.Capabilities{})
	require.ErrorIs(t, err, errNilSnapshot)
}
