package sos

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Snell1224/sos/pkg/sos/schema"
)

func testContainerPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.sos")
}

func TestCreateThenOpen(t *testing.T) {
	path := testContainerPath(t)
	require.NoError(t, Create(path, 0644))

	c, err := Open(path, PermWrite)
	require.NoError(t, err)
	defer c.Close(CommitAsync)

	// Opening a fresh container seeds a default primary partition.
	counts := c.PartitionCounts()
	require.Equal(t, 1, counts["primary"])
}

func TestCreateRejectsExistingPath(t *testing.T) {
	path := testContainerPath(t)
	require.NoError(t, Create(path, 0644))
	err := Create(path, 0644)
	require.ErrorIs(t, err, ErrExist)
}

func TestOpenRejectsMissingPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "does-not-exist.sos"), PermRead)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfigSetAndGet(t *testing.T) {
	path := testContainerPath(t)
	require.NoError(t, Create(path, 0644))
	c, err := Open(path, PermWrite)
	require.NoError(t, err)
	defer c.Close(CommitAsync)

	_, ok, err := c.Config("PARTITION_ENABLE")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.ConfigSet("PARTITION_ENABLE", "true"))
	v, ok, err := c.Config("PARTITION_ENABLE")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "true", v)
}

func TestSchemaAddAndReopen(t *testing.T) {
	path := testContainerPath(t)
	require.NoError(t, Create(path, 0644))

	c, err := Open(path, PermWrite)
	require.NoError(t, err)

	s, err := c.SchemaAdd("Job", []schema.AttributeSpec{
		{Name: "Id", Type: schema.TypeUint32, Indexed: true},
		{Name: "StartTime", Type: schema.TypeTimestamp},
		{Name: "UserName", Type: schema.TypeString},
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, s.ID, uint32(schema.FirstUserSchemaID))
	idAttr := s.AttrByName("Id")
	require.NotEmpty(t, idAttr.IndexKey, "indexed attributes get a durable index bucket key")
	require.NoError(t, c.Close(CommitSync))

	c2, err := Open(path, PermWrite)
	require.NoError(t, err)
	defer c2.Close(CommitAsync)

	got, ok := c2.Schemas().ByName("Job")
	require.True(t, ok)
	require.Equal(t, s.ID, got.ID)
	require.Len(t, got.Attrs, 3)
	require.Equal(t, idAttr.IndexKey, got.AttrByName("Id").IndexKey, "index key survives a reopen")
}

func TestSchemaAddRejectsDuplicateName(t *testing.T) {
	path := testContainerPath(t)
	require.NoError(t, Create(path, 0644))
	c, err := Open(path, PermWrite)
	require.NoError(t, err)
	defer c.Close(CommitAsync)

	_, err = c.SchemaAdd("Job", []schema.AttributeSpec{{Name: "Id", Type: schema.TypeUint32}})
	require.NoError(t, err)

	_, err = c.SchemaAdd("Job", []schema.AttributeSpec{{Name: "Id", Type: schema.TypeUint32}})
	require.ErrorIs(t, err, ErrExist)
}

func TestExtendWithoutPrimaryPartitionFails(t *testing.T) {
	c := &Container{partitions: make(map[uint64]*Partition)}
	err := c.Extend(1024)
	require.ErrorIs(t, err, ErrNoPrimary)
}

func TestStatReportsBackingFile(t *testing.T) {
	path := testContainerPath(t)
	require.NoError(t, Create(path, 0644))
	c, err := Open(path, PermWrite)
	require.NoError(t, err)
	defer c.Close(CommitAsync)

	info, err := c.Stat()
	require.NoError(t, err)
	require.True(t, info.Size() > 0)

	// Sanity: the file really exists on disk at the given path.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
