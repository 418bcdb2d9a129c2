//go:build freebsd || openbsd || netbsd

package collector

import (
	"context"
	"strconv"
	"strings"

	"github.com/sgich/assetradar/pkg/models"
)

func platformProbes(r CommandRunner) []probe {
	b := bsdProbes{runner: r}

	return []probe{
		{name: "board", run: b.board},
		{name: "disks", run: b.disks},
		{name: "software", software: true, run: b.software},
	}
}

type bsdProbes struct {
	runner CommandRunner
}

func (b bsdProbes) kenv(ctx context.Context, key string) (string, error) {
	out, err := b.runner.Run(ctx, "kenv", "-q", key)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

func (b bsdProbes) board(ctx context.Context, snap *models.HostSnapshot) error {
	serial, err := b.kenv(ctx, "smbios.planar.serial")
	if err != nil {
		return err
	}

	snap.BoardSerial = dmiValue(serial)

	if chassis, err := b.kenv(ctx, "smbios.chassis.type"); err == nil {
		if code, convErr := strconv.Atoi(chassis); convErr == nil {
			snap.Chassis = chassisName(code)
		} else {
			snap.Chassis = strings.ToLower(chassis)
		}
	}

	return nil
}

func (b bsdProbes) disks(ctx context.Context, snap *models.HostSnapshot) error {
	out, err := b.runner.Run(ctx, "sysctl", "-n", "kern.disks")
	if err != nil {
		return err
	}

	for _, name := range strings.Fields(string(out)) {
		if strings.HasPrefix(name, "cd") {
			continue
		}

		info, err := b.runner.Run(ctx, "diskinfo", "-v", name)
		if err != nil {
			snap.Disks = append(snap.Disks, models.Disk{Name: name, Model: name})
			continue
		}

		snap.Disks = append(snap.Disks, parseDiskinfo(name, info))
	}

	return nil
}

func (b bsdProbes) software(ctx context.Context, snap *models.HostSnapshot) error {
	out, err := b.runner.Run(ctx, "pkg", "query", "%n\t%v\t%m")
	if err != nil {
		return err
	}

	snap.InstalledSoftware = parseTabbed(out)

	return nil
}
