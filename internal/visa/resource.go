package visa

import (
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the supported channel interfaces.
type Kind int

const (
	KindTCP Kind = iota
	KindSerial
)

// Resource is a parsed resource identifier. The accepted grammar is a
// VISA subset:
//
//	TCPIP[board]::<host>::<port>::SOCKET    raw TCP socket
//	ASRL<device>[::<baud>]::INSTR           local serial device
//
// GPIB and VXI-11 addresses require a vendor VISA stack and are
// rejected as unsupported. GPIB instruments behind a serial adapter
// are reachable through the ASRL form.
type Resource struct {
	Kind   Kind
	Host   string
	Port   int
	Device string
	Baud   uint
}

// ParseResource parses a resource identifier string.
func ParseResource(s string) (Resource, error) {
	parts := strings.Split(strings.TrimSpace(s), "::")
	head := strings.ToUpper(parts[0])

	switch {
	case strings.HasPrefix(head, "TCPIP"):
		return parseTCP(s, parts)
	case strings.HasPrefix(head, "ASRL"):
		return parseSerial(s, parts)
	case strings.HasPrefix(head, "GPIB") || strings.HasPrefix(head, "USB"):
		return Resource{}, errFactory.WithData(ErrUnsupported, s)
	}

	return Resource{}, errFactory.WithData(ErrInvalidResource, s)
}

func parseTCP(raw string, parts []string) (Resource, error) {
	if len(parts) != 4 || !strings.EqualFold(parts[3], "SOCKET") {
		return Resource{}, errFactory.WithData(ErrInvalidResource, raw)
	}

	board := strings.ToUpper(parts[0])[len("TCPIP"):]
	if _, err := strconv.Atoi(board); board != "" && err != nil {
		return Resource{}, errFactory.WithData(ErrInvalidResource, raw)
	}

	host := parts[1]
	if host == "" {
		return Resource{}, errFactory.WithData(ErrInvalidResource, raw)
	}

	port, err := strconv.Atoi(parts[2])
	if err != nil || port < 1 || port > 65535 {
		return Resource{}, errFactory.WithData(ErrInvalidResource, raw)
	}

	return Resource{Kind: KindTCP, Host: host, Port: port}, nil
}

func parseSerial(raw string, parts []string) (Resource, error) {
	if len(parts) < 2 || len(parts) > 3 || !strings.EqualFold(parts[len(parts)-1], "INSTR") {
		return Resource{}, errFactory.WithData(ErrInvalidResource, raw)
	}

	// Device path keeps its original case; only the prefix is fixed.
	device := parts[0][len("ASRL"):]
	if device == "" {
		return Resource{}, errFactory.WithData(ErrInvalidResource, raw)
	}

	res := Resource{Kind: KindSerial, Device: device}

	if len(parts) == 3 {
		baud, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil || baud == 0 {
			return Resource{}, errFactory.WithData(ErrInvalidResource, raw)
		}
		res.Baud = uint(baud)
	}

	return res, nil
}

// String returns the canonical identifier form.
func (r Resource) String() string {
	switch r.Kind {
	case KindTCP:
		return fmt.Sprintf("TCPIP0::%s::%d::SOCKET", r.Host, r.Port)
	case KindSerial:
		if r.Baud != 0 {
			return fmt.Sprintf("ASRL%s::%d::INSTR", r.Device, r.Baud)
		}
		return fmt.Sprintf("ASRL%s::INSTR", r.Device)
	}

	return ""
}

// Endpoint returns the dialable host:port of a TCP resource.
func (r Resource) Endpoint() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

var serialGlobs = []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS[0-9]*"}

// Resources lists candidate serial resources present on this host.
// Network instruments cannot be discovered passively and are not
// listed; the result is informational.
func Resources() []string {
	var found []string
	for _, pattern := range serialGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, device := range matches {
			found = append(found, Resource{Kind: KindSerial, Device: device}.String())
		}
	}
	sort.Strings(found)

	return found
}
