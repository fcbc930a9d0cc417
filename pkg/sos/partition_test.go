package sos

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestContainer(t *testing.T) *Container {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sos")
	require.NoError(t, Create(path, 0644))
	c, err := Open(path, PermWrite)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(CommitAsync) })
	return c
}

func TestPartitionNewAppendsToTail(t *testing.T) {
	c := openTestContainer(t)

	p, err := c.PartitionNew("archive")
	require.NoError(t, err)
	require.Equal(t, "archive", p.Name)

	var names []string
	it := c.PartitionIter()
	for part, ok := it.First(); ok; part, ok = it.Next() {
		names = append(names, part.Name)
	}
	require.Equal(t, []string{rootPartitionName, "archive"}, names)
}

func TestPartitionNewStartsOffline(t *testing.T) {
	c := openTestContainer(t)

	p, err := c.PartitionNew("archive")
	require.NoError(t, err)
	require.False(t, p.IsActive(), "a fresh partition is not active until PartitionActiveSet brings it online")
	require.False(t, p.IsPrimary())
	require.Equal(t, PartOffline, p.State)

	counts := c.PartitionCounts()
	require.Equal(t, 1, counts["offline"])
	require.Equal(t, 1, counts["primary"], "the bootstrap root partition is still active+primary")
}

func TestPartitionNewRejectsDuplicateName(t *testing.T) {
	c := openTestContainer(t)

	before := len(c.partitions)
	_, err := c.PartitionNew(rootPartitionName)
	require.ErrorIs(t, err, ErrExist)
	require.Equal(t, before, len(c.partitions), "list length is unchanged on the duplicate-name path")
}

func TestPartitionPrimarySetMovesPrimaryBit(t *testing.T) {
	c := openTestContainer(t)
	p2, err := c.PartitionNew("second")
	require.NoError(t, err)

	require.NoError(t, c.PartitionPrimarySet(p2))

	c.mu.Lock()
	root := c.partitions[c.headID]
	c.mu.Unlock()
	require.False(t, root.IsPrimary())
	require.True(t, p2.IsPrimary())
}

func TestPartitionActiveSetRejectsTakingPrimaryOffline(t *testing.T) {
	c := openTestContainer(t)

	c.mu.Lock()
	primary := c.partitions[c.primaryID]
	c.mu.Unlock()

	err := c.PartitionActiveSet(primary, false)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestPartitionActiveSetAllowsNonPrimaryOffline(t *testing.T) {
	c := openTestContainer(t)
	p2, err := c.PartitionNew("second")
	require.NoError(t, err)

	require.NoError(t, c.PartitionActiveSet(p2, false))
	require.False(t, p2.IsActive())
}
