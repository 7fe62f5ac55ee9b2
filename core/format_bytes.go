package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Binary byte units.
const (
	BytesPerKB int64 = 1024
	BytesPerMB int64 = 1024 * BytesPerKB
	BytesPerGB int64 = 1024 * BytesPerMB
)

// FormatBytes renders a byte count for user-facing messages, e.g. "25 MB"
// or "1.5 KB".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	unit, suffix := int64(1), "B"
	switch {
	case bytes >= BytesPerGB:
		unit, suffix = BytesPerGB, "GB"
	case bytes >= BytesPerMB:
		unit, suffix = BytesPerMB, "MB"
	case bytes >= BytesPerKB:
		unit, suffix = BytesPerKB, "KB"
	}
	if bytes%unit == 0 {
		return fmt.Sprintf("%d %s", bytes/unit, suffix)
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(unit), suffix)
}

// ParseByteSize parses a plain byte count or a number with a B, KB, MB or
// GB suffix. Fractions are allowed with a suffix ("1.5MB").
func ParseByteSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	unit := int64(1)
	for _, u := range []struct {
		suffix string
		size   int64
	}{{"GB", BytesPerGB}, {"MB", BytesPerMB}, {"KB", BytesPerKB}, {"B", 1}} {
		if strings.HasSuffix(s, u.suffix) {
			unit = u.size
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative byte size %d", n)
		}
		return n * unit, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	return int64(f * float64(unit)), nil
}
