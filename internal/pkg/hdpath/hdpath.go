// Package hdpath parses hierarchical derivation paths such as m/44'/60'/0'/0.
package hdpath

import (
	"fmt"
	"strconv"
	"strings"

	"multichain_wallet/internal/domain/entity"
)

// HardenedOffset is the first hardened child index (2^31).
const HardenedOffset uint32 = 0x80000000

// Harden sets the top bit of i.
func Harden(i uint32) uint32 {
	return i | HardenedOffset
}

// IsHardened reports whether i is a hardened index.
func IsHardened(i uint32) bool {
	return i >= HardenedOffset
}

// Parse splits path on '/', discards the root marker and converts each
// remaining segment into a child index. A trailing ' marks a hardened index.
func Parse(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, invalid(path, "missing root marker")
	}

	indices := make([]uint32, 0, len(parts)-1)
	for _, seg := range parts[1:] {
		hardened := strings.HasSuffix(seg, "'")
		digits := strings.TrimSuffix(seg, "'")
		if digits == "" || strings.ContainsAny(digits, "+-") {
			return nil, invalid(seg, "not a non-negative integer")
		}
		n, err := strconv.ParseUint(digits, 10, 32)
		if err != nil {
			return nil, invalid(seg, err.Error())
		}
		idx := uint32(n)
		if IsHardened(idx) {
			return nil, invalid(seg, "index must be below 2^31")
		}
		if hardened {
			idx = Harden(idx)
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// String renders indices back into m/... notation.
func String(indices []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range indices {
		b.WriteByte('/')
		if IsHardened(idx) {
			b.WriteString(strconv.FormatUint(uint64(idx-HardenedOffset), 10))
			b.WriteByte('\'')
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(idx), 10))
	}
	return b.String()
}

func invalid(seg, reason string) error {
	return entity.NewError(entity.CodeInvalidPathSegment, "parse path", 0, fmt.Errorf("segment %q: %s", seg, reason))
}
