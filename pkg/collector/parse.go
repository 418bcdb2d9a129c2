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

package collector

import (
	"bufio"
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/sgich/assetradar/pkg/models"
)

// dmiRecord is one structure of dmidecode output.
type dmiRecord struct {
	Title  string
	Fields map[string]string
}

// parseDMIDecode splits dmidecode text into records. Multi-line list values
// are skipped.
func parseDMIDecode(out []byte) []dmiRecord {
	var (
		records []dmiRecord
		cur     *dmiRecord
	)

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()

		switch {
		case strings.HasPrefix(line, "Handle "):
			records = append(records, dmiRecord{Fields: map[string]string{}})
			cur = &records[len(records)-1]
		case cur == nil || strings.TrimSpace(line) == "":
		case cur.Title == "" && !strings.HasPrefix(line, "\t"):
			cur.Title = strings.TrimSpace(line)
		case strings.HasPrefix(line, "\t") && !strings.HasPrefix(line, "\t\t"):
			key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
			if ok {
				cur.Fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
	}

	return records
}

func dmiValue(s string) string {
	if !usableSerial(s) {
		return ""
	}

	return s
}

var sizeUnits = map[string]uint64{
	"b":   1,
	"kb":  1 << 10,
	"kib": 1 << 10,
	"mb":  1 << 20,
	"mib": 1 << 20,
	"gb":  1 << 30,
	"gib": 1 << 30,
	"tb":  1 << 40,
	"tib": 1 << 40,
}

// parseSize reads "8 GB" style sizes as bytes. Unknown input yields 0.
func parseSize(s string) uint64 {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0
	}

	n, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0
	}

	return n * sizeUnits[strings.ToLower(fields[1])]
}

// parseSpeed reads "3200 MT/s" or "2666 MHz" as Hz.
func parseSpeed(s string) uint64 {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0
	}

	n, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0
	}

	switch strings.ToLower(fields[1]) {
	case "mt/s", "mhz":
		return n * mhz
	case "ghz":
		return n * 1000 * mhz
	default:
		return 0
	}
}

func memoryModulesFromDMI(records []dmiRecord) []models.MemoryModule {
	var out []models.MemoryModule

	for _, r := range records {
		if r.Title != "Memory Device" {
			continue
		}

		size := parseSize(r.Fields["Size"])
		if size == 0 {
			continue
		}

		speed := parseSpeed(r.Fields["Configured Memory Speed"])
		if speed == 0 {
			speed = parseSpeed(r.Fields["Speed"])
		}

		out = append(out, models.MemoryModule{
			Slot:         r.Fields["Locator"],
			Manufacturer: dmiValue(r.Fields["Manufacturer"]),
			Model:        dmiValue(r.Fields["Part Number"]),
			Serial:       dmiValue(r.Fields["Serial Number"]),
			SizeBytes:    size,
			SpeedHz:      speed,
		})
	}

	return out
}

func firstField(records []dmiRecord, title, field string) string {
	for _, r := range records {
		if r.Title == title {
			return r.Fields[field]
		}
	}

	return ""
}

// SMBIOS chassis type codes.
var chassisTypes = map[int]string{
	3:  "desktop",
	4:  "low profile desktop",
	6:  "mini tower",
	7:  "tower",
	8:  "portable",
	9:  "laptop",
	10: "notebook",
	11: "hand held",
	13: "all in one",
	14: "sub notebook",
	15: "space-saving",
	17: "main server chassis",
	23: "rack mount chassis",
	24: "sealed-case pc",
	30: "tablet",
	31: "convertible",
	32: "detachable",
	35: "mini pc",
	36: "stick pc",
}

func chassisName(code int) string {
	if name, ok := chassisTypes[code]; ok {
		return name
	}

	return ""
}

var lspciField = regexp.MustCompile(`"([^"]*)"`)

// parseLSPCI extracts display controllers from "lspci -mm" output.
func parseLSPCI(out []byte) []models.GPU {
	var gpus []models.GPU

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := lspciField.FindAllStringSubmatch(sc.Text(), -1)
		if len(fields) < 3 {
			continue
		}

		class := strings.ToLower(fields[0][1])
		if !strings.Contains(class, "vga") && !strings.Contains(class, "3d") && !strings.Contains(class, "display") {
			continue
		}

		gpus = append(gpus, models.GPU{Vendor: fields[1][1], Model: fields[2][1]})
	}

	return gpus
}

// parseTabbed reads "name<TAB>version[<TAB>publisher]" lines as emitted by
// dpkg-query, rpm and pkg query.
func parseTabbed(out []byte) []models.SoftwareItem {
	var items []models.SoftwareItem

	seen := map[string]struct{}{}

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		parts := strings.Split(sc.Text(), "\t")
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			continue
		}

		item := models.SoftwareItem{Name: strings.TrimSpace(parts[0]), Version: strings.TrimSpace(parts[1])}
		if len(parts) > 2 && parts[2] != "(none)" {
			item.Publisher = strings.TrimSpace(parts[2])
		}

		key := models.SoftwareKey(item.Name, item.Version)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		items = append(items, item)
	}

	return items
}

var ioregSerial = regexp.MustCompile(`"IOPlatformSerialNumber"\s*=\s*"([^"]+)"`)

func parseIORegSerial(out []byte) string {
	m := ioregSerial.FindSubmatch(out)
	if m == nil {
		return ""
	}

	return string(m[1])
}

type profilerApps struct {
	Apps []struct {
		Name     string `json:"_name"`
		Version  string `json:"version"`
		Obtained string `json:"obtained_from"`
		Info     string `json:"info"`
	} `json:"SPApplicationsDataType"`
}

func parseProfilerApps(out []byte) ([]models.SoftwareItem, error) {
	var doc profilerApps
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, err
	}

	items := make([]models.SoftwareItem, 0, len(doc.Apps))
	for _, a := range doc.Apps {
		if a.Name == "" {
			continue
		}

		items = append(items, models.SoftwareItem{Name: a.Name, Version: a.Version, Publisher: a.Obtained})
	}

	return items, nil
}

type profilerStorage struct {
	Volumes []struct {
		Name     string `json:"_name"`
		Size     uint64 `json:"size_in_bytes"`
		Physical struct {
			Device string `json:"device_name"`
			Medium string `json:"medium_type"`
			Serial string `json:"serial_number"`
		} `json:"physical_drive"`
	} `json:"SPStorageDataType"`
}

// parseProfilerStorage keeps one disk per physical device.
func parseProfilerStorage(out []byte) ([]models.Disk, error) {
	var doc profilerStorage
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, err
	}

	var disks []models.Disk

	seen := map[string]struct{}{}

	for _, v := range doc.Volumes {
		model := v.Physical.Device
		if model == "" {
			model = v.Name
		}

		if _, dup := seen[model]; dup {
			continue
		}

		seen[model] = struct{}{}
		disks = append(disks, models.Disk{
			Name:      v.Name,
			Model:     model,
			Serial:    v.Physical.Serial,
			SizeBytes: v.Size,
			Media:     v.Physical.Medium,
		})
	}

	return disks, nil
}

// parseDiskinfo reads FreeBSD "diskinfo -v" output for one device.
func parseDiskinfo(name string, out []byte) models.Disk {
	d := models.Disk{Name: name, Model: name}

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		value, comment, ok := strings.Cut(strings.TrimSpace(sc.Text()), "#")
		if !ok {
			continue
		}

		value = strings.TrimSpace(value)

		switch c := strings.TrimSpace(comment); {
		case strings.HasPrefix(c, "mediasize in bytes"):
			d.SizeBytes, _ = strconv.ParseUint(value, 10, 64)
		case c == "Disk descr.":
			d.Model = value
		case c == "Disk ident.":
			d.Serial = value
		case c == "Rotation rate in RPM":
			if value == "0" {
				d.Media = "ssd"
			} else if value != "Unknown" {
				d.Media = "hdd"
			}
		}
	}

	return d
}

// decodeCIM decodes PowerShell ConvertTo-Json output, which may carry a
// UTF-8 BOM and is an object instead of an array when there is one row.
func decodeCIM[T any](out []byte) ([]T, error) {
	out = bytes.TrimSpace(bytes.TrimPrefix(out, []byte("\xef\xbb\xbf")))
	if len(out) == 0 {
		return nil, nil
	}

	if out[0] == '{' {
		var one T
		if err := json.Unmarshal(out, &one); err != nil {
			return nil, err
		}

		return []T{one}, nil
	}

	var rows []T
	if err := json.Unmarshal(out, &rows); err != nil {
		return nil, err
	}

	return rows, nil
}

// parseSoftwareUpdate reads "softwareupdate --list" output. Every listed
// label is a pending update.
func parseSoftwareUpdate(out []byte) []models.Update {
	var updates []models.Update

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if label, ok := strings.CutPrefix(line, "* Label:"); ok {
			updates = append(updates, models.Update{ID: strings.TrimSpace(label), Pending: true})
			continue
		}

		if rest, ok := strings.CutPrefix(line, "Title:"); ok && len(updates) > 0 {
			title, _, _ := strings.Cut(rest, ",")
			updates[len(updates)-1].Title = strings.TrimSpace(title)
		}
	}

	return updates
}
