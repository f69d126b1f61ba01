// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The dedupcache Authors
// (modifications)
// This file is part of dedupcache.
//
// dedupcache is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// dedupcache is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with dedupcache. If not, see <http://www.gnu.org/licenses/>.

// Package mathutil collects small arithmetic and byte-size helpers: the
// hash set rounds its spine capacity with NextPowerOfTwo, and config options
// parse size strings with ParseByteSize. The overflow-checked helpers have
// no callers elsewhere in dedupcache.
package mathutil

import (
	"math/bits"

	"github.com/c2h5oh/datasize"
)

// Integer limit values.
const (
	MaxUint32 = 1<<32 - 1
	MaxInt32  = 1<<31 - 1
)

// SafeMul returns x*y and reports whether the multiplication overflowed 64 bits.
func SafeMul(x, y uint64) (uint64, bool) {
	hi, lo := bits.Mul64(x, y)
	return lo, hi != 0
}

// SafeAdd returns x+y and reports whether the addition overflowed 64 bits.
func SafeAdd(x, y uint64) (uint64, bool) {
	sum, carryOut := bits.Add64(x, y, 0)
	return sum, carryOut != 0
}

// CeilDiv divides x by y, rounding up. Returns 0 if y is 0.
func CeilDiv(x, y int) int {
	if y == 0 {
		return 0
	}
	return (x + y - 1) / y
}

// NextPowerOfTwo rounds n up to the next power of two, saturating at 1<<31
// rather than overflowing into a negative uint32.
func NextPowerOfTwo(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	if n&(n-1) == 0 {
		return n
	}
	shift := bits.Len32(n)
	if shift >= 32 {
		return 1 << 31
	}
	return 1 << shift
}

// ParseByteSize parses human-readable byte sizes such as "20MB" or "512MiB",
// the same strings a config file or CLI flag would carry.
func ParseByteSize(s string) (uint64, error) {
	var v datasize.ByteSize
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return v.Bytes(), nil
}

// FormatByteSize renders n bytes in the same human style ParseByteSize accepts.
func FormatByteSize(n uint64) string {
	return datasize.ByteSize(n).String()
}
