package comparator

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Uint64Comparator orders 8-byte big-endian encoded unsigned integers.
// Big-endian is chosen deliberately (not to match the wire convention
// used elsewhere, which is little-endian) so that bbolt's native
// byte-wise cursor ordering already matches numeric ordering without a
// custom comparator hook into the underlying store.
type Uint64Comparator struct{}

func (Uint64Comparator) Type() string { return "UINT64" }

func (Uint64Comparator) Doc() string {
	return "64-bit unsigned integer attribute type, ordered big-endian."
}

func (Uint64Comparator) ToString(key []byte) string {
	if len(key) != 8 {
		return ""
	}
	return strconv.FormatUint(binary.BigEndian.Uint64(key), 10)
}

func (Uint64Comparator) FromString(s string) ([]byte, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("comparator: parsing uint64 key %q: %w", s, err)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf, nil
}

func (Uint64Comparator) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
