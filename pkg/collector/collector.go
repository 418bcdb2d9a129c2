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

// Package collector builds a HostSnapshot of the machine the agent runs on.
// Probes run one after another; a failing probe leaves its fields empty and
// adds a warning instead of aborting the run.
package collector

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sgich/assetradar/pkg/logger"
	"github.com/sgich/assetradar/pkg/models"
	"github.com/sgich/assetradar/pkg/version"
)

// DefaultTimeout bounds one collection run.
const DefaultTimeout = 60 * time.Second

// Options selects the optional parts of a run.
type Options struct {
	// Software enables the installed software and updates probes.
	Software bool
}

type probe struct {
	name     string
	software bool
	run      func(ctx context.Context, snap *models.HostSnapshot) error
}

type Collector struct {
	probes  []probe
	timeout time.Duration
	now     func() time.Time
	logger  logger.Logger
}

// New returns a collector for the running platform.
func New(log logger.Logger) (*Collector, error) {
	platform := platformProbes(execRunner{})
	if len(platform) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
	}

	probes := append(commonProbes(), platform...)
	probes = append(probes, probe{name: "memory_total", run: memoryFallback})

	return newCollector(probes, DefaultTimeout, log), nil
}

func newCollector(probes []probe, timeout time.Duration, log logger.Logger) *Collector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Collector{
		probes:  probes,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  log,
	}
}

// Collect runs every probe within the collector's time bound. It fails only
// when ctx itself is cancelled.
func (c *Collector) Collect(ctx context.Context, opts Options) (*models.HostSnapshot, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	snap := &models.HostSnapshot{AgentVersion: version.GetVersion()}

	for _, p := range c.probes {
		if p.software && !opts.Software {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if runCtx.Err() != nil {
			c.warn(snap, p.name, errDeadline)
			continue
		}

		if err := runProbe(runCtx, p, snap); err != nil {
			c.warn(snap, p.name, err)
		}
	}

	resolveUniqueID(snap)
	normalize(snap)

	snap.CollectedAt = c.now()

	c.logger.Debug().
		Str("unique_id", snap.UniqueID).
		Bool("stable", snap.UniqueIDStable).
		Int("warnings", len(snap.Warnings)).
		Msg("Snapshot collected")

	return snap, nil
}

func runProbe(ctx context.Context, p probe, snap *models.HostSnapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errProbePanic, r)
		}
	}()

	return p.run(ctx, snap)
}

func (c *Collector) warn(snap *models.HostSnapshot, probe string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = errDeadline
	}

	snap.Warnings = append(snap.Warnings, models.ProbeWarning{Probe: probe, Error: err.Error()})

	c.logger.Warn().Err(err).Str("probe", probe).Msg("Probe failed")
}

// Placeholder serials written by board vendors that never identify a machine.
var junkSerials = map[string]struct{}{
	"":                         {},
	"0":                        {},
	"none":                     {},
	"n/a":                      {},
	"na":                       {},
	"unknown":                  {},
	"default string":           {},
	"not specified":            {},
	"not applicable":           {},
	"not available":            {},
	"to be filled by o.e.m.":   {},
	"to be filled by oem":      {},
	"system serial number":     {},
	"base board serial number": {},
	"chassis serial number":    {},
	"serial number":            {},
	"0123456789":               {},
}

func usableSerial(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, junk := junkSerials[s]; junk {
		return false
	}

	return strings.Trim(s, "0x.-_ ") != ""
}

var virtualPrefixes = []string{"lo", "docker", "veth", "br-", "virbr", "vmnet", "vboxnet", "tun", "tap", "utun", "awdl", "llw", "zt"}

func virtualInterface(name string) bool {
	name = strings.ToLower(name)

	for _, p := range virtualPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}

	return false
}

// primaryMAC picks the MAC of the first physical interface by name. Link
// and address state are ignored so the choice survives a switch from wired
// to wireless.
func primaryMAC(ifaces []models.NetInterface) string {
	sorted := append([]models.NetInterface(nil), ifaces...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}

		return strings.ToLower(sorted[i].MAC) < strings.ToLower(sorted[j].MAC)
	})

	for _, iface := range sorted {
		mac := strings.ToLower(strings.TrimSpace(iface.MAC))
		if mac == "" || strings.Trim(mac, "0:-") == "" || virtualInterface(iface.Name) {
			continue
		}

		return mac
	}

	return ""
}

// resolveUniqueID applies board serial, then primary MAC, then hostname.
// Only the hostname fallback is flagged unstable.
func resolveUniqueID(snap *models.HostSnapshot) {
	switch mac := primaryMAC(snap.Interfaces); {
	case usableSerial(snap.BoardSerial):
		snap.UniqueID, snap.UniqueIDStable = strings.TrimSpace(snap.BoardSerial), true
	case mac != "":
		snap.UniqueID, snap.UniqueIDStable = mac, true
	default:
		snap.UniqueID, snap.UniqueIDStable = strings.ToLower(snap.Hostname), false
	}
}

// normalize turns nil lists into empty ones so the wire format is stable.
func normalize(snap *models.HostSnapshot) {
	if snap.RAMModules == nil {
		snap.RAMModules = []models.MemoryModule{}
	}

	if snap.Disks == nil {
		snap.Disks = []models.Disk{}
	}

	if snap.GPUs == nil {
		snap.GPUs = []models.GPU{}
	}

	if snap.Peripherals == nil {
		snap.Peripherals = []models.Peripheral{}
	}

	if snap.Interfaces == nil {
		snap.Interfaces = []models.NetInterface{}
	}

	if snap.InstalledSoftware == nil {
		snap.InstalledSoftware = []models.SoftwareItem{}
	}

	if snap.Updates == nil {
		snap.Updates = []models.Update{}
	}

	if snap.Warnings == nil {
		snap.Warnings = []models.ProbeWarning{}
	}
}
