//go:build linux

package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/sgich/assetradar/pkg/models"
)

const (
	sysBlock     = "/sys/block"
	sysDMI       = "/sys/class/dmi/id"
	sysUSB       = "/sys/bus/usb/devices"
	sectorSize   = 512
	usbHubClass  = "09"
	dpkgFormat   = "${Package}\t${Version}\t${Maintainer}\n"
	rpmQueryForm = "%{NAME}\t%{VERSION}-%{RELEASE}\t%{VENDOR}\n"
)

var physicalDiskPrefixes = []string{"sd", "hd", "vd", "xvd", "nvme", "mmcblk"}

func platformProbes(r CommandRunner) []probe {
	l := linuxProbes{runner: r}

	return []probe{
		{name: "board", run: l.board},
		{name: "memory_modules", run: l.memory},
		{name: "disks", run: l.disks},
		{name: "gpus", run: l.gpus},
		{name: "peripherals", run: l.peripherals},
		{name: "software", software: true, run: l.software},
	}
}

type linuxProbes struct {
	runner CommandRunner
}

func readSys(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(b))
}

// board reads the baseboard serial and chassis type, from dmidecode when it
// can run and from sysfs otherwise.
func (l linuxProbes) board(ctx context.Context, snap *models.HostSnapshot) error {
	out, err := l.runner.Run(ctx, "dmidecode", "-t", "baseboard", "-t", "chassis")
	if err == nil {
		records := parseDMIDecode(out)
		snap.BoardSerial = dmiValue(firstField(records, "Base Board Information", "Serial Number"))
		snap.Chassis = strings.ToLower(firstField(records, "Chassis Information", "Type"))
	}

	if snap.BoardSerial == "" {
		snap.BoardSerial = dmiValue(readSys(filepath.Join(sysDMI, "board_serial")))
	}

	if snap.Chassis == "" {
		if code, convErr := strconv.Atoi(readSys(filepath.Join(sysDMI, "chassis_type"))); convErr == nil {
			snap.Chassis = chassisName(code)
		}
	}

	if snap.BoardSerial == "" && err != nil {
		return err
	}

	return nil
}

func (l linuxProbes) memory(ctx context.Context, snap *models.HostSnapshot) error {
	out, err := l.runner.Run(ctx, "dmidecode", "-t", "memory")
	if err != nil {
		return err
	}

	snap.RAMModules = memoryModulesFromDMI(parseDMIDecode(out))

	return nil
}

func physicalDisk(name string) bool {
	for _, p := range physicalDiskPrefixes {
		if strings.HasPrefix(name, p) {
			return !strings.Contains(name, "boot") && !strings.Contains(name, "rpmb")
		}
	}

	return false
}

func (linuxProbes) disks(ctx context.Context, snap *models.HostSnapshot) error {
	entries, err := os.ReadDir(sysBlock)
	if err != nil {
		return err
	}

	for _, e := range entries {
		name := e.Name()
		if !physicalDisk(name) {
			continue
		}

		base := filepath.Join(sysBlock, name)

		sectors, _ := strconv.ParseUint(readSys(filepath.Join(base, "size")), 10, 64)
		if sectors == 0 {
			continue
		}

		d := models.Disk{
			Name:      name,
			Model:     readSys(filepath.Join(base, "device", "model")),
			Serial:    readSys(filepath.Join(base, "device", "serial")),
			SizeBytes: sectors * sectorSize,
		}

		if d.Serial == "" {
			if serial, err := disk.SerialNumberWithContext(ctx, "/dev/"+name); err == nil {
				d.Serial = serial
			}
		}

		switch {
		case strings.HasPrefix(name, "nvme"):
			d.Media = "nvme"
		case readSys(filepath.Join(base, "queue", "rotational")) == "1":
			d.Media = "hdd"
		default:
			d.Media = "ssd"
		}

		if d.Model == "" {
			d.Model = name
		}

		snap.Disks = append(snap.Disks, d)
	}

	return nil
}

func (l linuxProbes) gpus(ctx context.Context, snap *models.HostSnapshot) error {
	out, err := l.runner.Run(ctx, "lspci", "-mm")
	if err != nil {
		return err
	}

	snap.GPUs = parseLSPCI(out)

	return nil
}

func (linuxProbes) peripherals(_ context.Context, snap *models.HostSnapshot) error {
	entries, err := os.ReadDir(sysUSB)
	if err != nil {
		return err
	}

	for _, e := range entries {
		base := filepath.Join(sysUSB, e.Name())

		product := readSys(filepath.Join(base, "product"))
		if product == "" || readSys(filepath.Join(base, "bDeviceClass")) == usbHubClass {
			continue
		}

		snap.Peripherals = append(snap.Peripherals, models.Peripheral{
			Kind:         "usb",
			Manufacturer: readSys(filepath.Join(base, "manufacturer")),
			Model:        product,
			Serial:       readSys(filepath.Join(base, "serial")),
		})
	}

	return nil
}

func (l linuxProbes) software(ctx context.Context, snap *models.HostSnapshot) error {
	out, dpkgErr := l.runner.Run(ctx, "dpkg-query", "-W", "-f="+dpkgFormat)
	if dpkgErr == nil {
		snap.InstalledSoftware = parseTabbed(out)
		return nil
	}

	out, rpmErr := l.runner.Run(ctx, "rpm", "-qa", "--queryformat", rpmQueryForm)
	if rpmErr == nil {
		snap.InstalledSoftware = parseTabbed(out)
		return nil
	}

	return errors.Join(dpkgErr, rpmErr)
}
