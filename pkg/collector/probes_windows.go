//go:build windows

package collector

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/sgich/assetradar/pkg/models"
)

type cimBoard struct {
	SerialNumber string `json:"SerialNumber"`
}

type cimEnclosure struct {
	ChassisTypes []int `json:"ChassisTypes"`
}

type cimMemory struct {
	BankLabel     string `json:"BankLabel"`
	DeviceLocator string `json:"DeviceLocator"`
	Manufacturer  string `json:"Manufacturer"`
	PartNumber    string `json:"PartNumber"`
	SerialNumber  string `json:"SerialNumber"`
	Capacity      uint64 `json:"Capacity"`
	Speed         uint64 `json:"Speed"`
}

type cimDisk struct {
	DeviceID     string `json:"DeviceID"`
	Model        string `json:"Model"`
	SerialNumber string `json:"SerialNumber"`
	Size         uint64 `json:"Size"`
	MediaType    string `json:"MediaType"`
}

type cimVideo struct {
	Name                 string `json:"Name"`
	AdapterCompatibility string `json:"AdapterCompatibility"`
	AdapterRAM           uint64 `json:"AdapterRAM"`
}

type cimPnP struct {
	Name         string `json:"Name"`
	Manufacturer string `json:"Manufacturer"`
	PNPClass     string `json:"PNPClass"`
	DeviceID     string `json:"DeviceID"`
}

type cimHotFix struct {
	HotFixID    string `json:"HotFixID"`
	Description string `json:"Description"`
}

var peripheralClasses = []string{"Keyboard", "Mouse", "Monitor", "Printer", "Camera", "Image", "Biometric", "SmartCardReader"}

var uninstallKeys = []struct {
	root registry.Key
	path string
}{
	{registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
	{registry.LOCAL_MACHINE, `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`},
	{registry.CURRENT_USER, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
}

func platformProbes(r CommandRunner) []probe {
	w := windowsProbes{runner: r}

	return []probe{
		{name: "board", run: w.board},
		{name: "memory_modules", run: w.memory},
		{name: "disks", run: w.disks},
		{name: "gpus", run: w.gpus},
		{name: "peripherals", run: w.peripherals},
		{name: "software", software: true, run: w.software},
		{name: "updates", software: true, run: w.updates},
	}
}

type windowsProbes struct {
	runner CommandRunner
}

func cimQuery[T any](ctx context.Context, r CommandRunner, script string) ([]T, error) {
	out, err := r.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command",
		"$ErrorActionPreference = 'Stop'; ConvertTo-Json -Compress -Depth 3 -InputObject @("+script+")")
	if err != nil {
		return nil, err
	}

	return decodeCIM[T](out)
}

func cimClass(class, props string) string {
	return fmt.Sprintf("Get-CimInstance -ClassName %s | Select-Object %s", class, props)
}

func (w windowsProbes) board(ctx context.Context, snap *models.HostSnapshot) error {
	boards, err := cimQuery[cimBoard](ctx, w.runner, cimClass("Win32_BaseBoard", "SerialNumber"))
	if err != nil {
		return err
	}

	if len(boards) > 0 {
		snap.BoardSerial = dmiValue(strings.TrimSpace(boards[0].SerialNumber))
	}

	enclosures, err := cimQuery[cimEnclosure](ctx, w.runner, cimClass("Win32_SystemEnclosure", "ChassisTypes"))
	if err != nil {
		return err
	}

	if len(enclosures) > 0 && len(enclosures[0].ChassisTypes) > 0 {
		snap.Chassis = chassisName(enclosures[0].ChassisTypes[0])
	}

	return nil
}

func (w windowsProbes) memory(ctx context.Context, snap *models.HostSnapshot) error {
	rows, err := cimQuery[cimMemory](ctx, w.runner,
		cimClass("Win32_PhysicalMemory", "BankLabel,DeviceLocator,Manufacturer,PartNumber,SerialNumber,Capacity,Speed"))
	if err != nil {
		return err
	}

	for _, m := range rows {
		slot := strings.TrimSpace(m.DeviceLocator)
		if slot == "" {
			slot = strings.TrimSpace(m.BankLabel)
		}

		snap.RAMModules = append(snap.RAMModules, models.MemoryModule{
			Slot:         slot,
			Manufacturer: dmiValue(strings.TrimSpace(m.Manufacturer)),
			Model:        dmiValue(strings.TrimSpace(m.PartNumber)),
			Serial:       dmiValue(strings.TrimSpace(m.SerialNumber)),
			SizeBytes:    m.Capacity,
			SpeedHz:      m.Speed * mhz,
		})
	}

	return nil
}

func (w windowsProbes) disks(ctx context.Context, snap *models.HostSnapshot) error {
	rows, err := cimQuery[cimDisk](ctx, w.runner, cimClass("Win32_DiskDrive", "DeviceID,Model,SerialNumber,Size,MediaType"))
	if err != nil {
		return err
	}

	for _, d := range rows {
		snap.Disks = append(snap.Disks, models.Disk{
			Name:      d.DeviceID,
			Model:     strings.TrimSpace(d.Model),
			Serial:    strings.TrimSpace(d.SerialNumber),
			SizeBytes: d.Size,
			Media:     d.MediaType,
		})
	}

	return nil
}

func (w windowsProbes) gpus(ctx context.Context, snap *models.HostSnapshot) error {
	rows, err := cimQuery[cimVideo](ctx, w.runner, cimClass("Win32_VideoController", "Name,AdapterCompatibility,AdapterRAM"))
	if err != nil {
		return err
	}

	for _, v := range rows {
		snap.GPUs = append(snap.GPUs, models.GPU{Vendor: v.AdapterCompatibility, Model: v.Name, MemoryBytes: v.AdapterRAM})
	}

	return nil
}

func (w windowsProbes) peripherals(ctx context.Context, snap *models.HostSnapshot) error {
	filter := "'" + strings.Join(peripheralClasses, "','") + "'"
	script := fmt.Sprintf("Get-CimInstance -ClassName Win32_PnPEntity | Where-Object { @(%s) -contains $_.PNPClass } | Select-Object Name,Manufacturer,PNPClass,DeviceID", filter)

	rows, err := cimQuery[cimPnP](ctx, w.runner, script)
	if err != nil {
		return err
	}

	for _, p := range rows {
		snap.Peripherals = append(snap.Peripherals, models.Peripheral{
			Kind:         strings.ToLower(p.PNPClass),
			Manufacturer: p.Manufacturer,
			Model:        p.Name,
			Serial:       p.DeviceID,
		})
	}

	return nil
}

func (windowsProbes) software(_ context.Context, snap *models.HostSnapshot) error {
	seen := map[string]struct{}{}

	var lastErr error

	for _, uk := range uninstallKeys {
		key, err := registry.OpenKey(uk.root, uk.path, registry.READ)
		if err != nil {
			lastErr = err
			continue
		}

		names, err := key.ReadSubKeyNames(-1)
		key.Close()

		if err != nil {
			lastErr = err
			continue
		}

		for _, sub := range names {
			item, ok := readUninstallEntry(uk.root, uk.path+`\`+sub)
			if !ok {
				continue
			}

			k := models.SoftwareKey(item.Name, item.Version)
			if _, dup := seen[k]; dup {
				continue
			}

			seen[k] = struct{}{}
			snap.InstalledSoftware = append(snap.InstalledSoftware, item)
		}
	}

	if len(snap.InstalledSoftware) == 0 && lastErr != nil {
		return lastErr
	}

	return nil
}

func readUninstallEntry(root registry.Key, path string) (models.SoftwareItem, bool) {
	key, err := registry.OpenKey(root, path, registry.READ)
	if err != nil {
		return models.SoftwareItem{}, false
	}
	defer key.Close()

	if sys, _, err := key.GetIntegerValue("SystemComponent"); err == nil && sys == 1 {
		return models.SoftwareItem{}, false
	}

	name, _, _ := key.GetStringValue("DisplayName")
	if strings.TrimSpace(name) == "" {
		return models.SoftwareItem{}, false
	}

	version, _, _ := key.GetStringValue("DisplayVersion")
	publisher, _, _ := key.GetStringValue("Publisher")

	return models.SoftwareItem{
		Name:      strings.TrimSpace(name),
		Version:   strings.TrimSpace(version),
		Publisher: strings.TrimSpace(publisher),
	}, true
}

func (w windowsProbes) updates(ctx context.Context, snap *models.HostSnapshot) error {
	rows, err := cimQuery[cimHotFix](ctx, w.runner, "Get-HotFix | Select-Object HotFixID,Description")
	if err != nil {
		return err
	}

	for _, h := range rows {
		snap.Updates = append(snap.Updates, models.Update{ID: h.HotFixID, Title: h.Description})
	}

	return nil
}
