package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/Snell1224/sos/pkg/sos/index/comparator"
)

func openTestDB(t *testing.T) *bbolt.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := bbolt.Open(path, 0644, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIndexInsertFindDelete(t *testing.T) {
	db := openTestDB(t)
	reg := NewRegistry()

	idx, err := NewIndex(db, "TestIdx", "BXTREE", "UINT64", 5, reg)
	require.NoError(t, err)

	cmp, ok := reg.Lookup("UINT64")
	require.True(t, ok)

	key, err := cmp.FromString("42")
	require.NoError(t, err)
	ref := Ref{PartitionID: 1, Offset: 99}

	require.NoError(t, idx.Insert(1, key, ref))

	got, found := idx.Find(1, key)
	require.True(t, found)
	require.Equal(t, ref, got)

	deleted, err := idx.Delete(1, key)
	require.NoError(t, err)
	require.Equal(t, ref, deleted)

	_, found = idx.Find(1, key)
	require.False(t, found)
}

func TestIndexOpenRestoresKeyType(t *testing.T) {
	db := openTestDB(t)
	reg := NewRegistry()

	_, err := NewIndex(db, "Strings", "BXTREE", "STRING", 5, reg)
	require.NoError(t, err)

	reopened, err := OpenIndex(db, "Strings", reg)
	require.NoError(t, err)
	require.Equal(t, "STRING", reopened.Comparator().Type())
}

func TestIndexEachOrdersWithinPartition(t *testing.T) {
	db := openTestDB(t)
	reg := NewRegistry()
	idx, err := NewIndex(db, "Ordered", "BXTREE", "UINT64", 5, reg)
	require.NoError(t, err)

	cmp, _ := reg.Lookup("UINT64")
	values := []string{"30", "10", "20"}
	for _, v := range values {
		key, _ := cmp.FromString(v)
		require.NoError(t, idx.Insert(1, key, Ref{PartitionID: 1, Offset: 1}))
	}

	var seen []string
	err = idx.Each(func(partitionID uint64, key []byte, ref Ref) error {
		seen = append(seen, cmp.ToString(key))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"10", "20", "30"}, seen)
}

// TestIndexEachOrdersCompoundKeysAcrossPartitions exercises the
// CompTime/JobComp shape: {secondary, primary} pairs packed into the
// UINT64 key type via comparator.PackCompound and stored across more
// than one partition, with a primary value (256) that crosses a byte
// boundary. Each must still return ascending numeric order within each
// partition, since Index orders by raw byte comparison alone.
func TestIndexEachOrdersCompoundKeysAcrossPartitions(t *testing.T) {
	db := openTestDB(t)
	reg := NewRegistry()
	idx, err := NewIndex(db, "CompTime", "BXTREE", "UINT64", 5, reg)
	require.NoError(t, err)

	type pair struct {
		partition          uint64
		secondary, primary uint32
	}
	inserts := []pair{
		{1, 100, 300},
		{1, 100, 100},
		{1, 100, 256},
		{1, 100, 200},
		{2, 50, 999},
		{2, 50, 1},
	}
	for _, p := range inserts {
		require.NoError(t, idx.Insert(p.partition, comparator.PackCompound(p.secondary, p.primary), Ref{PartitionID: p.partition, Offset: 1}))
	}

	var part1, part2 []uint32
	err = idx.Each(func(partitionID uint64, key []byte, ref Ref) error {
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
	require.Equal(t, []uint32{100, 200, 256, 300}, part1)
	require.Equal(t, []uint32{1, 999}, part2)
}

func TestRefIsNull(t *testing.T) {
	require.True(t, Ref{}.IsNull())
	require.False(t, Ref{PartitionID: 1}.IsNull())
}
