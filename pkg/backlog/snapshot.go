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

package backlog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/netip"
	"sort"
	"strings"

	"github.com/sgich/assetradar/pkg/models"
)

// volatileSnapshotKeys change on every collection run and are left out of
// the change hash.
var volatileSnapshotKeys = []string{"collected_at", "warnings", "agent_version"}

// canonicalSnapshot re-encodes raw with sorted keys and without volatile keys.
func canonicalSnapshot(raw json.RawMessage) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("{}"), nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: raw_snapshot is not a JSON object: %w", ErrInvalidPayload, err)
	}

	for _, k := range volatileSnapshotKeys {
		delete(doc, k)
	}

	return json.Marshal(doc)
}

// snapshotHash fingerprints everything ingest persists for an entry. Two
// payloads with the same hash leave the entry in the same state.
func snapshotHash(p *models.InventoryPayload) (string, error) {
	raw, err := canonicalSnapshot(p.RawSnapshot)
	if err != nil {
		return "", err
	}

	ips, _ := normalizeIPs(p.DetectedIPs)
	sort.Strings(ips)

	software := make([]string, 0, len(p.DetectedSoftware))
	for _, sw := range p.DetectedSoftware {
		software = append(software, models.SoftwareKey(sw.Name, sw.Version))
	}

	sort.Strings(software)

	doc := struct {
		Name       string                     `json:"n"`
		Type       models.BacklogType         `json:"t"`
		Raw        json.RawMessage            `json:"r"`
		IPs        []string                   `json:"i"`
		Components []models.DetectedComponent `json:"c"`
		Software   []string                   `json:"s"`
	}{p.DescriptiveName, p.Type.Normalize(), raw, ips, p.DetectedComponents, software}

	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(b)

	return hex.EncodeToString(sum[:]), nil
}

// normalizeIPs trims, validates and de-duplicates addresses, keeping order.
func normalizeIPs(in []string) ([]string, []string) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))

	var rejected []string

	for _, raw := range in {
		addr, err := netip.ParseAddr(strings.TrimSpace(raw))
		if err != nil {
			if strings.TrimSpace(raw) != "" {
				rejected = append(rejected, raw)
			}

			continue
		}

		s := addr.String()
		if _, dup := seen[s]; dup {
			continue
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out, rejected
}

// componentFingerprint keys a serial-less component: <unique_id>/<kind>/<slot|index>.
func componentFingerprint(uniqueID string, c models.DetectedComponent, index int) string {
	pos := strings.TrimSpace(c.Slot)
	if pos == "" {
		pos = fmt.Sprintf("%d", index)
	}

	return fmt.Sprintf("%s/%s/%s", uniqueID, strings.ToLower(strings.TrimSpace(c.Kind)), pos)
}

// InferSubtype guesses a hardware subtype from the stored raw snapshot.
func InferSubtype(raw json.RawMessage) models.HardwareSubtype {
	var snap models.HostSnapshot
	if len(raw) == 0 || json.Unmarshal(raw, &snap) != nil {
		return models.SubtypeOther
	}

	osName := strings.ToLower(snap.OS.Name)
	chassis := strings.ToLower(snap.Chassis)

	switch {
	case strings.Contains(osName, "android") || strings.HasPrefix(osName, "ios") || strings.HasPrefix(osName, "ipados"):
		return models.SubtypeMobile
	case strings.Contains(osName, "server"):
		return models.SubtypeServer
	case isPortableChassis(chassis):
		return models.SubtypeLaptop
	default:
		return models.SubtypePC
	}
}

func isPortableChassis(chassis string) bool {
	for _, k := range []string{"laptop", "notebook", "portable", "convertible", "detachable"} {
		if strings.Contains(chassis, k) {
			return true
		}
	}

	return false
}
