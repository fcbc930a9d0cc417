package sos

// stackKeyCapacity is the fixed capacity of a StackKey buffer. 256
// bytes comfortably holds every built-in key type plus the compound
// keys used by the job/component ingest tool.
const stackKeyCapacity = 256

// StackKey is a fixed-capacity, caller-allocated key buffer. It exists
// so that hot ingest paths (obj_index, obj_remove) can build a key
// without an extra heap allocation per attribute; the zero value is
// ready to use.
type StackKey struct {
	buf [stackKeyCapacity]byte
	n   int
}

// Set copies b into the key buffer, truncating to the buffer's
// capacity rather than growing it.
func (k *StackKey) Set(b []byte) {
	n := copy(k.buf[:], b)
	k.n = n
}

// Bytes returns the portion of the buffer currently in use. The
// returned slice aliases the StackKey's storage and is only valid
// until the next call to Set.
func (k *StackKey) Bytes() []byte {
	return k.buf[:k.n]
}

// Len returns the number of bytes currently stored in the key.
func (k *StackKey) Len() int {
	return k.n
}
