package sos

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Snell1224/sos/pkg/sos/index"
	"github.com/Snell1224/sos/pkg/sos/index/comparator"
)

// TestCompoundIndexOrdersAcrossPartitions exercises the same path
// "sosutil job add" and "sosutil index dump" use for the CompTime and
// JobComp indices: compound {secondary, primary} keys packed with
// comparator.PackCompound into a UINT64 index, inserted out of order
// and across partitions, then read back with Each. A primary value
// (256) crosses a byte boundary that a little-endian packing would
// have sorted incorrectly.
func TestCompoundIndexOrdersAcrossPartitions(t *testing.T) {
	c := openTestContainer(t)

	idx, err := c.IndexOpenOrNew("CompTime", "BXTREE", "UINT64", 5)
	require.NoError(t, err)

	type entry struct {
		partition uint64
		secondary uint32
		primary   uint32
	}
	inserts := []entry{
		{1, 100, 300},
		{1, 100, 100},
		{1, 100, 256},
		{2, 50, 999},
		{2, 50, 1},
	}
	for _, e := range inserts {
		require.NoError(t, idx.Insert(e.partition, comparator.PackCompound(e.secondary, e.primary), index.Ref{PartitionID: e.partition, Offset: 1}))
	}

	var part1, part2 []uint32
	err = idx.Each(func(partitionID uint64, key []byte, ref index.Ref) error {
		_, primary := comparator.UnpackCompound(key)
		switch partitionID {
		case 1:
			part1 = append(part1, primary)
		case 2:
			part2 = append(part2, primary)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{100, 256, 300}, part1)
	require.Equal(t, []uint32{1, 999}, part2)
}
