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
	"context"
	"net/netip"
	"runtime"
	"slices"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/sgich/assetradar/pkg/models"
)

//nolint:gochecknoglobals // replaced in tests
var (
	hostInfo      = host.InfoWithContext
	cpuInfo       = cpu.InfoWithContext
	cpuCounts     = cpu.CountsWithContext
	virtualMemory = mem.VirtualMemoryWithContext
	netInterfaces = psnet.InterfacesWithContext
)

const mhz = 1_000_000

// commonProbes work on every platform gopsutil supports.
func commonProbes() []probe {
	return []probe{
		{name: "host", run: probeHost},
		{name: "cpu", run: probeCPU},
		{name: "network", run: probeNetwork},
	}
}

func probeHost(ctx context.Context, snap *models.HostSnapshot) error {
	info, err := hostInfo(ctx)
	if err != nil {
		return err
	}

	name := info.Platform
	if name == "" {
		name = info.OS
	}

	arch := info.KernelArch
	if arch == "" {
		arch = runtime.GOARCH
	}

	snap.Hostname = info.Hostname
	snap.OS = models.OSInfo{
		Name:    name,
		Version: info.PlatformVersion,
		Kernel:  info.KernelVersion,
		Arch:    arch,
	}

	return nil
}

func probeCPU(ctx context.Context, snap *models.HostSnapshot) error {
	infos, err := cpuInfo(ctx)
	if err != nil {
		return err
	}

	if len(infos) > 0 {
		snap.CPU.Model = strings.TrimSpace(infos[0].ModelName)
		snap.CPU.SpeedHz = uint64(infos[0].Mhz * mhz)
	}

	if cores, err := cpuCounts(ctx, false); err == nil {
		snap.CPU.Cores = cores
	}

	threads, err := cpuCounts(ctx, true)
	if err != nil {
		return err
	}

	snap.CPU.Threads = threads

	return nil
}

func probeNetwork(ctx context.Context, snap *models.HostSnapshot) error {
	ifaces, err := netInterfaces(ctx)
	if err != nil {
		return err
	}

	snap.Interfaces = interfacesFrom(ifaces)

	return nil
}

// interfacesFrom flattens gopsutil interfaces into one row per address.
// Loopback and link-local addresses are dropped; an interface without a
// usable address keeps one row with an empty IP so its MAC stays visible.
func interfacesFrom(ifaces []psnet.InterfaceStat) []models.NetInterface {
	var out []models.NetInterface

	for _, iface := range ifaces {
		if slices.Contains(iface.Flags, "loopback") {
			continue
		}

		mac := strings.ToLower(iface.HardwareAddr)
		added := false

		for _, a := range iface.Addrs {
			prefix, err := netip.ParsePrefix(a.Addr)

			var addr netip.Addr
			if err == nil {
				addr = prefix.Addr()
			} else if addr, err = netip.ParseAddr(a.Addr); err != nil {
				continue
			}

			if addr.IsLoopback() || addr.IsLinkLocalUnicast() {
				continue
			}

			out = append(out, models.NetInterface{Name: iface.Name, IP: addr.String(), MAC: mac})
			added = true
		}

		if !added && mac != "" {
			out = append(out, models.NetInterface{Name: iface.Name, MAC: mac})
		}
	}

	return out
}

// memoryFallback reports total memory as one module when no per-module
// probe produced anything.
func memoryFallback(ctx context.Context, snap *models.HostSnapshot) error {
	if len(snap.RAMModules) > 0 {
		return nil
	}

	vm, err := virtualMemory(ctx)
	if err != nil {
		return err
	}

	snap.RAMModules = []models.MemoryModule{{Model: "system memory", SizeBytes: vm.Total}}

	return nil
}
