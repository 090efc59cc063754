package link

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

// InterfaceKind categorizes link families.
type InterfaceKind string

const (
	InterfaceKindCDC     InterfaceKind = "usb-cdc"
	InterfaceKindUnknown InterfaceKind = "unknown"
	InterfaceKindSim     InterfaceKind = "simulator"
)

// InterfaceInfo describes a detected link.
type InterfaceInfo struct {
	Kind        InterfaceKind
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
	Path        string
}

// Label returns a user-friendly description for the interface.
func (i InterfaceInfo) Label() string {
	if i.Description != "" {
		return i.Description
	}
	if i.Kind != "" {
		return fmt.Sprintf("%s (%04X:%04X)", string(i.Kind), i.VendorID, i.ProductID)
	}
	return fmt.Sprintf("Interface %04X:%04X", i.VendorID, i.ProductID)
}

// DiscoverInterfaces enumerates USB devices exposing a CDC data interface or
// matching a known board. The simulator entry is always appended so runs can
// go ahead without hardware.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if info, ok := classifyUSBDevice(desc); ok {
			results = append(results, info)
		}
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return results, err
	}

	results = append(results, InterfaceInfo{
		Kind:        InterfaceKindSim,
		Description: "Simulator (no hardware)",
	})

	return results, nil
}

func classifyUSBDevice(desc *gousb.DeviceDesc) (InterfaceInfo, bool) {
	for _, known := range knownBoards {
		if uint16(desc.Vendor) == known.VendorID && uint16(desc.Product) == known.ProductID {
			return InterfaceInfo{
				Kind:        InterfaceKindCDC,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
				Path:        busPath(desc),
			}, true
		}
	}
	if _, ok := dataInterface(desc); ok {
		return InterfaceInfo{
			Kind:      InterfaceKindCDC,
			VendorID:  uint16(desc.Vendor),
			ProductID: uint16(desc.Product),
			Path:      busPath(desc),
		}, true
	}
	return InterfaceInfo{}, false
}

// dataInterface finds the first CDC data interface in any configuration.
func dataInterface(desc *gousb.DeviceDesc) (gousb.InterfaceSetting, bool) {
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.ClassData {
					return alt, true
				}
			}
		}
	}
	return gousb.InterfaceSetting{}, false
}

func busPath(desc *gousb.DeviceDesc) string {
	return fmt.Sprintf("%d:%d", desc.Bus, desc.Address)
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownBoards = []knownUSBDevice{
	{VendorID: 0x2e8a, ProductID: 0x000a, Description: "Raspberry Pi Pico (CDC)"},
	{VendorID: 0x0483, ProductID: 0x5740, Description: "STM32 Virtual COM Port"},
	{VendorID: 0x1d50, ProductID: 0x6018, Description: "Black Magic Probe (CDC)"},
}
