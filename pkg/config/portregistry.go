package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cyphalcan/transport/pkg/frame"
	"gopkg.in/ini.v1"
)

// PortEntry is one parsed `[subject.<id>]` or `[service.<id>]` section:
// the subscription a node wants, independent of any particular
// subscription.Table instance.
type PortEntry struct {
	PortID            uint16
	Kind              frame.TransferKind
	MaxPayloadSize    int
	TransferIDTimeout uint32 // microseconds
}

// LoadPortRegistry reads a port registry INI file describing the
// subscriptions a node wants, playing the role an EDS file plays for a
// CANopen object dictionary — except a Cyphal node has no object
// dictionary to describe, only a port list, since DSDL types are
// compiled rather than loaded at runtime.
//
// Expected layout:
//
//	[subject.4919]
//	max_payload_size = 64
//	transfer_id_timeout_ms = 2000
//
//	[service.511]
//	kind = request
//	max_payload_size = 32
//	transfer_id_timeout_ms = 2000
func LoadPortRegistry(path string) ([]PortEntry, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load port registry: %w", err)
	}
	return parsePortRegistry(file)
}

// LoadPortRegistryBytes parses a port registry from raw INI bytes.
func LoadPortRegistryBytes(data []byte) ([]PortEntry, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("config: load port registry: %w", err)
	}
	return parsePortRegistry(file)
}

func parsePortRegistry(file *ini.File) ([]PortEntry, error) {
	var entries []PortEntry
	for _, section := range file.Sections() {
		name := section.Name()
		var prefix string
		var defaultKind frame.TransferKind
		switch {
		case strings.HasPrefix(name, "subject."):
			prefix, defaultKind = "subject.", frame.Message
		case strings.HasPrefix(name, "service."):
			prefix, defaultKind = "service.", frame.Request
		default:
			continue
		}

		idStr := strings.TrimPrefix(name, prefix)
		id, err := strconv.ParseUint(idStr, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("config: section %q: invalid port id: %w", name, err)
		}

		kind := defaultKind
		if k := section.Key("kind").String(); k != "" {
			parsed, err := parseKind(k)
			if err != nil {
				return nil, fmt.Errorf("config: section %q: %w", name, err)
			}
			kind = parsed
		}

		maxPayload, err := section.Key("max_payload_size").Int()
		if err != nil {
			return nil, fmt.Errorf("config: section %q: max_payload_size: %w", name, err)
		}
		timeoutMs, err := section.Key("transfer_id_timeout_ms").Int()
		if err != nil {
			return nil, fmt.Errorf("config: section %q: transfer_id_timeout_ms: %w", name, err)
		}

		entries = append(entries, PortEntry{
			PortID:            uint16(id),
			Kind:              kind,
			MaxPayloadSize:    maxPayload,
			TransferIDTimeout: uint32(timeoutMs) * 1000,
		})
	}
	return entries, nil
}

func parseKind(s string) (frame.TransferKind, error) {
	switch strings.ToLower(s) {
	case "message", "subject":
		return frame.Message, nil
	case "request":
		return frame.Request, nil
	case "response":
		return frame.Response, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}

// SessionParams converts a parsed entry into the bounds a
// subscription.Table.Subscribe* call needs.
func (e PortEntry) SessionParams() (maxPayload int, timeout uint32) {
	return e.MaxPayloadSize, e.TransferIDTimeout
}
