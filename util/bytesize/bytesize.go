// Package bytesize parses human readable buffer sizes such as "4MB".
package bytesize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bsv-blockchain/utxobalances/errors"
)

// ByteSize represents a memory size in bytes
type ByteSize int

const (
	B  ByteSize = 1
	KB          = B * 1024
	MB          = KB * 1024
	GB          = MB * 1024
)

func Parse(s string) (ByteSize, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, errors.NewInvalidArgumentError("empty size")
	}

	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})

	numPart, unit := s, "B"
	if i != -1 {
		numPart, unit = s[:i], strings.TrimSpace(s[i:])
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, errors.NewInvalidArgumentError("invalid number %q", numPart, err)
	}

	var multiplier ByteSize

	switch unit {
	case "B":
		multiplier = B
	case "KB", "K":
		multiplier = KB
	case "MB", "M":
		multiplier = MB
	case "GB", "G":
		multiplier = GB
	default:
		return 0, errors.NewInvalidArgumentError("invalid unit %q", unit)
	}

	return ByteSize(num * float64(multiplier)), nil
}

// ParseOrDefault returns def when s is empty, malformed or not positive.
func ParseOrDefault(s string, def ByteSize) ByteSize {
	size, err := Parse(s)
	if err != nil || size <= 0 {
		return def
	}

	return size
}

// String returns a human-readable string representation of the ByteSize
func (b ByteSize) String() string {
	switch {
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func (b ByteSize) Int() int {
	return int(b)
}
