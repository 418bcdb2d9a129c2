//go:build darwin

package collector

import (
	"context"
	"strings"

	"github.com/sgich/assetradar/pkg/models"
)

func platformProbes(r CommandRunner) []probe {
	d := darwinProbes{runner: r}

	return []probe{
		{name: "board", run: d.board},
		{name: "disks", run: d.disks},
		{name: "software", software: true, run: d.software},
		{name: "updates", software: true, run: d.updates},
	}
}

type darwinProbes struct {
	runner CommandRunner
}

func (d darwinProbes) board(ctx context.Context, snap *models.HostSnapshot) error {
	out, err := d.runner.Run(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice")
	if err != nil {
		return err
	}

	snap.BoardSerial = dmiValue(parseIORegSerial(out))

	model, err := d.runner.Run(ctx, "sysctl", "-n", "hw.model")
	if err != nil {
		return err
	}

	snap.Chassis = macChassis(strings.TrimSpace(string(model)))

	return nil
}

// macChassis maps a hardware model identifier such as "MacBookPro18,3".
func macChassis(model string) string {
	switch {
	case model == "":
		return ""
	case strings.Contains(model, "Book"):
		return "laptop"
	case strings.HasPrefix(model, "iMac"):
		return "all in one"
	case strings.HasPrefix(model, "Macmini"):
		return "mini pc"
	default:
		return "desktop"
	}
}

func (d darwinProbes) disks(ctx context.Context, snap *models.HostSnapshot) error {
	out, err := d.runner.Run(ctx, "system_profiler", "-json", "SPStorageDataType")
	if err != nil {
		return err
	}

	disks, err := parseProfilerStorage(out)
	if err != nil {
		return err
	}

	if len(disks) == 0 {
		return errNoOutput
	}

	snap.Disks = disks

	return nil
}

func (d darwinProbes) software(ctx context.Context, snap *models.HostSnapshot) error {
	out, err := d.runner.Run(ctx, "system_profiler", "-json", "-detailLevel", "mini", "SPApplicationsDataType")
	if err != nil {
		return err
	}

	items, err := parseProfilerApps(out)
	if err != nil {
		return err
	}

	snap.InstalledSoftware = items

	return nil
}

func (d darwinProbes) updates(ctx context.Context, snap *models.HostSnapshot) error {
	out, err := d.runner.Run(ctx, "softwareupdate", "--list", "--no-scan")
	if err != nil {
		return err
	}

	snap.Updates = parseSoftwareUpdate(out)

	return nil
}
