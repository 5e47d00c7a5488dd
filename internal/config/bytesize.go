package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize is a size value that supports human-readable parsing.
// It extends raw integer byte counts with binary units like KB, MB, GB.
//
// Examples:
//   - "1MB" = 1048576 bytes
//   - "512 KB" = 524288 bytes
//   - "1048576" = 1048576 bytes (raw number still works)
//
// This type implements encoding.TextUnmarshaler for Viper/YAML support
// and json.Unmarshaler for JSON configuration files.
type ByteSize int64

// Common size constants using binary (1024) base.
const (
	Byte     ByteSize = 1
	Kilobyte ByteSize = 1024 * Byte
	Megabyte ByteSize = 1024 * Kilobyte
	Gigabyte ByteSize = 1024 * Megabyte
	Terabyte ByteSize = 1024 * Gigabyte
)

// byteUnits maps unit names to their byte multiplier.
var byteUnits = map[string]ByteSize{
	"b": Byte, "byte": Byte, "bytes": Byte,
	"k": Kilobyte, "kb": Kilobyte, "kib": Kilobyte,
	"m": Megabyte, "mb": Megabyte, "mib": Megabyte,
	"g": Gigabyte, "gb": Gigabyte, "gib": Gigabyte,
	"t": Terabyte, "tb": Terabyte, "tib": Terabyte,
}

// byteSizePattern matches a number (int or float) followed by an optional unit.
var byteSizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-z]*)\s*$`)

// ParseByteSize parses a human-readable byte size string.
// If no unit is specified, bytes are assumed.
func ParseByteSize(s string) (ByteSize, error) {
	if s == "" {
		return 0, fmt.Errorf("bytesize: empty string")
	}

	matches := byteSizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("bytesize: invalid format %q", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("bytesize: invalid number %q: %w", matches[1], err)
	}

	multiplier := Byte
	if unit := strings.ToLower(matches[2]); unit != "" {
		var ok bool
		multiplier, ok = byteUnits[unit]
		if !ok {
			return 0, fmt.Errorf("bytesize: unknown unit %q", unit)
		}
	}

	return ByteSize(value * float64(multiplier)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML/Viper support.
func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Try as a raw byte count for backwards compatibility
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*b = ByteSize(n)
		return nil
	}
	return b.UnmarshalText([]byte(s))
}

// MarshalJSON implements json.Marshaler.
func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Bytes returns the size in bytes as int64.
func (b ByteSize) Bytes() int64 {
	return int64(b)
}

// String returns a human-readable string representation using the largest
// unit that divides the size evenly, falling back to a decimal form.
func (b ByteSize) String() string {
	switch {
	case b >= Terabyte && b%Terabyte == 0:
		return fmt.Sprintf("%dTB", b/Terabyte)
	case b >= Gigabyte && b%Gigabyte == 0:
		return fmt.Sprintf("%dGB", b/Gigabyte)
	case b >= Megabyte && b%Megabyte == 0:
		return fmt.Sprintf("%dMB", b/Megabyte)
	case b >= Kilobyte && b%Kilobyte == 0:
		return fmt.Sprintf("%dKB", b/Kilobyte)
	default:
		return fmt.Sprintf("%dB", int64(b))
	}
}
