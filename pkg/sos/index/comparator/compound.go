package comparator

import "encoding/binary"

// PackCompound encodes a (secondary, primary) pair into the 8-byte
// big-endian uint64 key used by the job/component ingest tool's
// CompTime and JobComp indices: secondary in the high 32 bits, primary
// in the low 32 bits. Index stores keys as raw bytes ordered by bbolt's
// native byte-lexicographic cursor, so the encoding has to sort
// correctly as plain bytes, not just under a comparator's Compare —
// packing big-endian through the existing UINT64 key type gives that
// for free, the same way Uint64Comparator's own keys do.
func PackCompound(secondary, primary uint32) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(secondary)<<32|uint64(primary))
	return buf
}

// UnpackCompound decodes an 8-byte compound key back into its two
// uint32 fields.
func UnpackCompound(key []byte) (secondary, primary uint32) {
	v := binary.BigEndian.Uint64(key)
	return uint32(v >> 32), uint32(v)
}
