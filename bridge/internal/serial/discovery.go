package serial

import (
	"log/slog"
	"path"
	"strconv"
	"strings"
)

// DeviceAuto selects a port by discovery instead of an explicit path.
const DeviceAuto = "auto"

// fallbackDevice is used when discovery finds nothing recognisable. On a
// typical Linux SBC an Arduino enumerates here.
const fallbackDevice = "/dev/ttyACM0"

// PortInfo describes one candidate port from enumeration.
type PortInfo struct {
	Name    string
	IsUSB   bool
	VID     string // USB vendor ID, lowercase hex
	PID     string // USB product ID, lowercase hex
	Product string // free-text product description
}

// vendorHints are USB vendor IDs of boards and USB-serial chips the bridge
// expects: Arduino, Arduino.org, WCH CH340, FTDI, Silicon Labs CP210x.
var vendorHints = []string{"2341", "2a03", "1a86", "0403", "10c4"}

// productHints match free-text product descriptions when the VID is unknown.
var productHints = []string{"arduino", "usb serial", "usb-serial", "uart"}

// namingHints are platform naming conventions for USB serial adapters,
// matched as prefixes of the device basename. Windows COM ports are handled
// separately so "com" cannot match ports that merely contain it.
var namingHints = []string{"ttyacm", "ttyusb", "cu.usbmodem", "cu.usbserial"}

// selectDevice resolves the configured selector to a concrete port path.
//
// For an explicit selector it is the identity. For DeviceAuto it prefers, in
// order: a port whose USB metadata matches a known vendor or product hint, a
// port named like a USB serial adapter, and finally fallbackDevice. Discovery
// is best-effort and never fails — an empty or erroring enumeration simply
// selects the fallback, and the open attempt reports the real problem.
func (s *Supervisor) selectDevice() string {
	if s.cfg.Device != "" && s.cfg.Device != DeviceAuto {
		return s.cfg.Device
	}

	ports, err := s.enumerate()
	if err != nil {
		slog.Debug("supervisor: enumeration failed, using fallback",
			"err", err, "device", fallbackDevice)
		return fallbackDevice
	}

	for _, p := range ports {
		if matchesIdentity(p) {
			slog.Debug("supervisor: discovered device by identity",
				"device", p.Name, "vid", p.VID, "product", p.Product)
			return p.Name
		}
	}
	for _, p := range ports {
		if matchesNaming(p.Name) {
			slog.Debug("supervisor: discovered device by naming convention",
				"device", p.Name)
			return p.Name
		}
	}

	slog.Debug("supervisor: no candidate matched, using fallback",
		"candidates", len(ports), "device", fallbackDevice)
	return fallbackDevice
}

func matchesIdentity(p PortInfo) bool {
	if p.IsUSB {
		vid := strings.ToLower(p.VID)
		for _, hint := range vendorHints {
			if vid == hint {
				return true
			}
		}
	}
	product := strings.ToLower(p.Product)
	if product == "" {
		return false
	}
	for _, hint := range productHints {
		if strings.Contains(product, hint) {
			return true
		}
	}
	return false
}

func matchesNaming(name string) bool {
	base := strings.ToLower(path.Base(name))
	for _, hint := range namingHints {
		if strings.HasPrefix(base, hint) {
			return true
		}
	}
	// Windows names its serial ports COM<n>.
	if rest, ok := strings.CutPrefix(base, "com"); ok && rest != "" {
		if _, err := strconv.Atoi(rest); err == nil {
			return true
		}
	}
	return false
}
