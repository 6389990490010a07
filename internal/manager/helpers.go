package manager

import "strconv"

// formatBytes renders a byte count as a short human figure for error text.
func formatBytes(n uint64) string {
	const (
		kib = uint64(1) << 10
		mib = uint64(1) << 20
		gib = uint64(1) << 30
	)
	switch {
	case n >= gib:
		return strconv.FormatFloat(float64(n)/float64(gib), 'f', 1, 64) + " GiB"
	case n >= mib:
		return strconv.FormatUint(n/mib, 10) + " MiB"
	case n >= kib:
		return strconv.FormatUint(n/kib, 10) + " KiB"
	default:
		return strconv.FormatUint(n, 10) + " B"
	}
}
