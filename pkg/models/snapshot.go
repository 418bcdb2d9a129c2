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

package models

import (
	"encoding/json"
	"time"
)

// HostSnapshot is one complete inventory of the host the agent runs on.
// Sizes are bytes, clock speeds are Hz.
type HostSnapshot struct {
	UniqueID          string         `json:"unique_id"`
	UniqueIDStable    bool           `json:"unique_id_stable"`
	Hostname          string         `json:"hostname"`
	OS                OSInfo         `json:"os"`
	Chassis           string         `json:"chassis,omitempty"`
	BoardSerial       string         `json:"board_serial,omitempty"`
	CPU               CPUInfo        `json:"cpu"`
	RAMModules        []MemoryModule `json:"ram_modules"`
	Disks             []Disk         `json:"disks"`
	GPUs              []GPU          `json:"gpus"`
	Peripherals       []Peripheral   `json:"peripherals"`
	Interfaces        []NetInterface `json:"interfaces"`
	InstalledSoftware []SoftwareItem `json:"installed_software"`
	Updates           []Update       `json:"updates"`
	CollectedAt       time.Time      `json:"collected_at"`
	AgentVersion      string         `json:"agent_version"`
	Warnings          []ProbeWarning `json:"warnings"`
}

type OSInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Kernel  string `json:"kernel,omitempty"`
	Arch    string `json:"arch,omitempty"`
}

type CPUInfo struct {
	Model   string `json:"model"`
	Cores   int    `json:"cores"`
	Threads int    `json:"threads"`
	SpeedHz uint64 `json:"speed_hz"`
}

type MemoryModule struct {
	Slot         string `json:"slot,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model"`
	Serial       string `json:"serial,omitempty"`
	SizeBytes    uint64 `json:"size_bytes"`
	SpeedHz      uint64 `json:"speed_hz,omitempty"`
}

type Disk struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Serial    string `json:"serial,omitempty"`
	SizeBytes uint64 `json:"size_bytes"`
	Media     string `json:"media,omitempty"`
}

type GPU struct {
	Vendor      string `json:"vendor,omitempty"`
	Model       string `json:"model"`
	MemoryBytes uint64 `json:"memory_bytes,omitempty"`
}

type Peripheral struct {
	Kind         string `json:"kind"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model"`
	Serial       string `json:"serial,omitempty"`
}

// NetInterface is one (interface, address) pair.
type NetInterface struct {
	Name string `json:"name"`
	IP   string `json:"ip"`
	MAC  string `json:"mac"`
}

type SoftwareItem struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Publisher string `json:"publisher,omitempty"`
}

type Update struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Pending bool   `json:"pending"`
}

// ProbeWarning records a probe that failed without aborting the run.
type ProbeWarning struct {
	Probe string `json:"probe"`
	Error string `json:"error"`
}

// InventoryPayload is the message posted by the agent to core.
type InventoryPayload struct {
	UniqueID           string              `json:"unique_id"`
	DescriptiveName    string              `json:"descriptive_name"`
	Type               BacklogType         `json:"type"`
	RawSnapshot        json.RawMessage     `json:"raw_snapshot"`
	DetectedIPs        []string            `json:"detected_ips"`
	DetectedComponents []DetectedComponent `json:"detected_components"`
	DetectedSoftware   []DetectedSoftware  `json:"detected_software"`
}

// DetectedComponent is a replaceable part as reported by the collector.
type DetectedComponent struct {
	Kind      string `json:"kind"`
	Internal  bool   `json:"internal"`
	Model     string `json:"model"`
	Serial    string `json:"serial,omitempty"`
	SizeBytes uint64 `json:"size_bytes,omitempty"`
	SpeedHz   uint64 `json:"speed_hz,omitempty"`
	Slot      string `json:"slot,omitempty"`
}

type DetectedSoftware struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Publisher string `json:"publisher,omitempty"`
}

// Capabilities are the optional inventory modules advertised by core.
type Capabilities struct {
	Hardware bool `json:"hardware"`
	Software bool `json:"software"`
	Network  bool `json:"network"`
}
