package comparator

import "bytes"

// StringComparator compares min(len(a), len(b)) bytes and breaks ties
// on length difference, rather than using a NUL-aware or full
// lexicographic compare. FromString stores len(s)+1 bytes (a trailing
// NUL) so that ToString can recover the string without its terminator.
type StringComparator struct{}

func (StringComparator) Type() string { return "STRING" }

func (StringComparator) Doc() string {
	return "Variable length string attribute type. NUL terminated."
}

// ToString returns the key's contents up to (not including) the first
// NUL byte.
func (StringComparator) ToString(key []byte) string {
	if i := bytes.IndexByte(key, 0); i >= 0 {
		return string(key[:i])
	}
	return string(key)
}

// FromString stores len(s)+1 bytes, the NUL terminator included.
func (StringComparator) FromString(s string) ([]byte, error) {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0
	return buf, nil
}

// Compare does a min-length byte compare with a length-difference
// tie-break, instead of a normal lexicographic compare: two keys where
// one is a byte-for-byte prefix of the other order purely on their
// length difference, even past the NUL.
func (StringComparator) Compare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if c := bytes.Compare(a[:n], b[:n]); c != 0 {
		return c
	}
	return len(a) - len(b)
}
