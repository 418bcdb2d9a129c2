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
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sgich/assetradar/pkg/models"
)

// Component kinds as filed on the server.
const (
	KindCPU        = "CPU"
	KindDIMM       = "DIMM"
	KindDisk       = "Disk"
	KindGPU        = "GPU"
	KindPeripheral = "Peripheral"
)

// BuildPayload turns a snapshot into the inventory message. Modules the
// server does not advertise are left out of both the detected lists and
// the raw snapshot.
func BuildPayload(snap *models.HostSnapshot, caps models.Capabilities) (*models.InventoryPayload, error) {
	if snap == nil {
		return nil, errNilSnapshot
	}

	if strings.TrimSpace(snap.UniqueID) == "" {
		return nil, errEmptyUniqueID
	}

	trimmed := *snap

	if !caps.Network {
		trimmed.Interfaces = []models.NetInterface{}
	}

	if !caps.Software {
		trimmed.InstalledSoftware = []models.SoftwareItem{}
		trimmed.Updates = []models.Update{}
	}

	raw, err := json.Marshal(&trimmed)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	name := snap.Hostname
	if name == "" {
		name = snap.UniqueID
	}

	payload := &models.InventoryPayload{
		UniqueID:           snap.UniqueID,
		DescriptiveName:    name,
		Type:               models.BacklogTypeHardware,
		RawSnapshot:        raw,
		DetectedIPs:        []string{},
		DetectedComponents: []models.DetectedComponent{},
		DetectedSoftware:   []models.DetectedSoftware{},
	}

	if caps.Network {
		payload.DetectedIPs = detectedIPs(snap.Interfaces)
	}

	if caps.Hardware {
		payload.DetectedComponents = detectedComponents(snap)
	}

	if caps.Software {
		for _, s := range snap.InstalledSoftware {
			payload.DetectedSoftware = append(payload.DetectedSoftware, models.DetectedSoftware(s))
		}
	}

	return payload, nil
}

func detectedIPs(ifaces []models.NetInterface) []string {
	seen := map[string]struct{}{}
	ips := []string{}

	for _, iface := range ifaces {
		if iface.IP == "" {
			continue
		}

		if _, dup := seen[iface.IP]; dup {
			continue
		}

		seen[iface.IP] = struct{}{}
		ips = append(ips, iface.IP)
	}

	sort.Strings(ips)

	return ips
}

func detectedComponents(snap *models.HostSnapshot) []models.DetectedComponent {
	out := []models.DetectedComponent{}

	if snap.CPU.Model != "" {
		out = append(out, models.DetectedComponent{Kind: KindCPU, Internal: true, Model: snap.CPU.Model, SpeedHz: snap.CPU.SpeedHz})
	}

	for _, m := range snap.RAMModules {
		model := m.Model
		if model == "" {
			model = strings.TrimSpace(m.Manufacturer + " memory")
		}

		out = append(out, models.DetectedComponent{
			Kind:      KindDIMM,
			Internal:  true,
			Model:     model,
			Serial:    m.Serial,
			SizeBytes: m.SizeBytes,
			SpeedHz:   m.SpeedHz,
			Slot:      m.Slot,
		})
	}

	for _, d := range snap.Disks {
		out = append(out, models.DetectedComponent{
			Kind:      KindDisk,
			Internal:  true,
			Model:     d.Model,
			Serial:    d.Serial,
			SizeBytes: d.SizeBytes,
			Slot:      d.Name,
		})
	}

	for _, g := range snap.GPUs {
		out = append(out, models.DetectedComponent{
			Kind:      KindGPU,
			Internal:  true,
			Model:     strings.TrimSpace(g.Vendor + " " + g.Model),
			SizeBytes: g.MemoryBytes,
		})
	}

	for _, p := range snap.Peripherals {
		out = append(out, models.DetectedComponent{
			Kind:   KindPeripheral,
			Model:  p.Model,
			Serial: p.Serial,
		})
	}

	return out
}
