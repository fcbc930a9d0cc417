package comparator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringComparator(t *testing.T) {
	var c StringComparator
	assert.Equal(t, "STRING", c.Type())

	key, err := c.FromString("abc")
	require.NoError(t, err)
	assert.Len(t, key, 4) // strlen+1, NUL included
	assert.Equal(t, "abc", c.ToString(key))

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "abc", "abc", 0},
		{"less", "abc", "abd", -1},
		{"greater", "abd", "abc", 1},
		{"shorter string orders first: its NUL sorts below the next byte", "ab", "abc", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, _ := c.FromString(tt.a)
			kb, _ := c.FromString(tt.b)
			got := c.Compare(ka, kb)
			switch {
			case tt.want < 0:
				assert.Negative(t, got)
			case tt.want > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestUint64Comparator(t *testing.T) {
	var c Uint64Comparator
	assert.Equal(t, "UINT64", c.Type())

	k1, err := c.FromString("10")
	require.NoError(t, err)
	k2, err := c.FromString("20")
	require.NoError(t, err)

	assert.Negative(t, c.Compare(k1, k2))
	assert.Positive(t, c.Compare(k2, k1))
	assert.Zero(t, c.Compare(k1, k1))
	assert.Equal(t, "10", c.ToString(k1))
}

func TestPackCompoundRoundTrips(t *testing.T) {
	k := PackCompound(5, 100)
	secondary, primary := UnpackCompound(k)
	assert.Equal(t, uint32(5), secondary)
	assert.Equal(t, uint32(100), primary)
}

// TestPackCompoundOrdersAsRawBytes exercises the property PackCompound
// exists for: Index stores compound keys as plain bytes ordered by
// bbolt's native byte-lexicographic cursor, not through a Compare
// call, so the packed encoding itself must sort correctly — including
// across a primary-field byte boundary, where a little-endian packing
// would fail.
func TestPackCompoundOrdersAsRawBytes(t *testing.T) {
	k1 := PackCompound(5, 100)
	k2 := PackCompound(5, 200)
	k3 := PackCompound(6, 0)

	assert.Negative(t, bytes.Compare(k1, k2), "same secondary, smaller primary orders first")
	assert.Negative(t, bytes.Compare(k2, k3), "smaller secondary orders first regardless of primary")

	// primary=256 crosses a byte boundary (0x00,0x01,0x00,0x00); under a
	// little-endian packing this would sort before primary=100's
	// (0x64,0x00,0x00,0x00) despite being numerically larger.
	small := PackCompound(100, 100)
	big := PackCompound(100, 256)
	assert.Negative(t, bytes.Compare(small, big), "primary=256 sorts after primary=100 as raw bytes")
}
