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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgich/assetradar/pkg/models"
)

const dmiMemory = `# dmidecode 3.3
Getting SMBIOS data from sysfs.
SMBIOS 3.2.0 present.

Handle 0x0040, DMI type 17, 84 bytes
Memory Device
	Total Width: 64 bits
	Size: 8 GB
	Locator: DIMM A1
	Speed: 3200 MT/s
	Manufacturer: Samsung
	Serial Number: 12345678
	Part Number: M471A1K43DB1-CWE
	Configured Memory Speed: 2933 MT/s

Handle 0x0041, DMI type 17, 84 bytes
Memory Device
	Size: No Module Installed
	Locator: DIMM B1

Handle 0x0002, DMI type 2, 15 bytes
Base Board Information
	Manufacturer: LENOVO
	Serial Number: L1HF0AB0CDE
	Features:
		Board is a hosting board
`

func TestParseDMIDecode(t *testing.T) {
	records := parseDMIDecode([]byte(dmiMemory))
	require.Len(t, records, 3)
	assert.Equal(t, "L1HF0AB0CDE", firstField(records, "Base Board Information", "Serial Number"))
	assert.NotContains(t, records[2].Fields, "Board is a hosting board")

	mods := memoryModulesFromDMI(records)
	assert.Equal(t, []models.MemoryModule{{
		Slot:         "DIMM A1",
		Manufacturer: "Samsung",
		Model:        "M471A1K43DB1-CWE",
		Serial:       "12345678",
		SizeBytes:    8 << 30,
		SpeedHz:      2933 * mhz,
	}}, mods)
}

func TestParseSizeAndSpeed(t *testing.T) {
	assert.Equal(t, uint64(512<<20), parseSize("512 MB"))
	assert.Equal(t, uint64(0), parseSize("No Module Installed"))
	assert.Equal(t, uint64(0), parseSize("8 parsecs"))
	assert.Equal(t, uint64(2666*mhz), parseSpeed("2666 MHz"))
	assert.Equal(t, uint64(0), parseSpeed("Unknown"))
}

func TestChassisName(t *testing.T) {
	assert.Equal(t, "notebook", chassisName(10))
	assert.Equal(t, "", chassisName(99))
}

func TestParseTabbedDeduplicates(t *testing.T) {
	out := []byte("vim\t2:9.0\tDebian Vim Maintainers\n" +
		"vim\t2:9.0\tDebian Vim Maintainers\n" +
		"bash\t5.2\t(none)\n" +
		"broken-line\n" +
		"\t1.0\n")

	assert.Equal(t, []models.SoftwareItem{
		{Name: "vim", Version: "2:9.0", Publisher: "Debian Vim Maintainers"},
		{Name: "bash", Version: "5.2"},
	}, parseTabbed(out))
}

func TestParseIORegSerial(t *testing.T) {
	out := []byte(`+-o J314sAP  <class IOPlatformExpertDevice>
    {
      "IOPlatformSerialNumber" = "C02XK1ABJGH5"
      "IOPlatformUUID" = "1234"
    }`)

	assert.Equal(t, "C02XK1ABJGH5", parseIORegSerial(out))
	assert.Equal(t, "", parseIORegSerial([]byte("nothing")))
}

func TestParseProfilerOutputs(t *testing.T) {
	apps, err := parseProfilerApps([]byte(`{"SPApplicationsDataType":[
		{"_name":"Safari","version":"17.4","obtained_from":"apple"},
		{"_name":"","version":"1"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []models.SoftwareItem{{Name: "Safari", Version: "17.4", Publisher: "apple"}}, apps)

	disks, err := parseProfilerStorage([]byte(`{"SPStorageDataType":[
		{"_name":"Macintosh HD","size_in_bytes":494384795648,"physical_drive":{"device_name":"APPLE SSD AP0512Q","medium_type":"ssd"}},
		{"_name":"Data","size_in_bytes":494384795648,"physical_drive":{"device_name":"APPLE SSD AP0512Q","medium_type":"ssd"}}]}`))
	require.NoError(t, err)
	require.Len(t, disks, 1)
	assert.Equal(t, "APPLE SSD AP0512Q", disks[0].Model)
	assert.Equal(t, "ssd", disks[0].Media)

	_, err = parseProfilerApps([]byte("not json"))
	require.Error(t, err)
}

func TestParseDiskinfo(t *testing.T) {
	out := []byte(`ada0
	512             # sectorsize
	500107862016    # mediasize in bytes (466G)
	976773168       # mediasize in sectors
	Samsung SSD 860 EVO 500GB	# Disk descr.
	S3Z1NB0K123456A	# Disk ident.
	0               # Rotation rate in RPM
`)

	assert.Equal(t, models.Disk{
		Name:      "ada0",
		Model:     "Samsung SSD 860 EVO 500GB",
		Serial:    "S3Z1NB0K123456A",
		SizeBytes: 500107862016,
		Media:     "ssd",
	}, parseDiskinfo("ada0", out))
}

func TestDecodeCIM(t *testing.T) {
	type row struct {
		Name string `json:"Name"`
	}

	one, err := decodeCIM[row]([]byte("\xef\xbb\xbf{\"Name\":\"NVIDIA T1000\"}\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []row{{Name: "NVIDIA T1000"}}, one)

	many, err := decodeCIM[row]([]byte(`[{"Name":"a"},{"Name":"b"}]`))
	require.NoError(t, err)
	assert.Len(t, many, 2)

	none, err := decodeCIM[row]([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestParseSoftwareUpdate(t *testing.T) {
	out := []byte(`Software Update Tool

Finding available software
Software Update found the following new or updated software:
* Label: macOS Sonoma 14.4.1-23E224
	Title: macOS Sonoma 14.4.1, Version: 14.4.1, Size: 1234K, Recommended: YES, Action: restart,
* Label: Safari17.4.1
	Title: Safari, Version: 17.4.1, Size: 150000K, Recommended: YES,
`)

	assert.Equal(t, []models.Update{
		{ID: "macOS Sonoma 14.4.1-23E224", Title: "macOS Sonoma 14.4.1", Pending: true},
		{ID: "Safari17.4.1", Title: "Safari", Pending: true},
	}, parseSoftwareUpdate(out))
}
