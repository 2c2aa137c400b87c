package bytes

import "fmt"

var units = [...]string{"B", "KB", "MB", "GB", "TB"}

// FmtMem renders a byte count with its two most significant binary units,
// e.g. "10MB 512KB".
func FmtMem(bytes uint64) string {
	unit := 0
	for unit < len(units)-1 && bytes>>(10*(unit+1)) > 0 {
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%dB", bytes)
	}

	shift := 10 * unit
	whole := bytes >> shift
	rem := (bytes & (1<<shift - 1)) >> (shift - 10)
	return fmt.Sprintf("%d%s %d%s", whole, units[unit], rem, units[unit-1])
}
