package sos

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Snell1224/sos/pkg/sos/schema"
)

func addJobSchema(t *testing.T, c *Container) *schema.Schema {
	t.Helper()
	s, err := c.SchemaAdd("Job", []schema.AttributeSpec{
		{Name: "Id", Type: schema.TypeUint32, Indexed: true},
		{Name: "StartTime", Type: schema.TypeTimestamp},
		{Name: "UserName", Type: schema.TypeString, Indexed: true},
	})
	require.NoError(t, err)
	return s
}

func TestObjectNewSetAttrGetAttr(t *testing.T) {
	c := openTestContainer(t)
	s := addJobSchema(t, c)

	obj, err := c.New(s)
	require.NoError(t, err)

	require.NoError(t, obj.SetAttr("Id", uint32(42)))
	require.NoError(t, obj.SetAttr("UserName", "alice"))

	v, err := obj.Attr("Id")
	require.NoError(t, err)
	require.EqualValues(t, 42, v)

	v, err = obj.Attr("UserName")
	require.NoError(t, err)
	require.Equal(t, "alice", v)
}

func TestObjectIndexAndLookupByRef(t *testing.T) {
	c := openTestContainer(t)
	s := addJobSchema(t, c)

	obj, err := c.New(s)
	require.NoError(t, err)
	require.NoError(t, obj.SetAttr("Id", uint32(7)))
	require.NoError(t, obj.SetAttr("UserName", "bob"))
	require.NoError(t, obj.Index())

	ref := obj.Ref()
	require.False(t, ref.IsNull())

	reopened, err := c.ObjectFromRef(ref)
	require.NoError(t, err)
	require.NotNil(t, reopened)

	v, err := reopened.Attr("Id")
	require.NoError(t, err)
	require.EqualValues(t, 7, v)
}

func TestObjectFromRefMissingRecordReturnsNotFound(t *testing.T) {
	// A ref pointing at an offset with no stored record returns
	// ErrNotFound rather than panicking.
	c := openTestContainer(t)
	s := addJobSchema(t, c)

	obj, err := c.New(s)
	require.NoError(t, err)
	ref := obj.Ref()

	_, err = c.ObjectFromRef(Ref{PartitionID: ref.PartitionID, Offset: ref.Offset + 999})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestObjectRemoveIsInverseOfIndex(t *testing.T) {
	c := openTestContainer(t)
	s := addJobSchema(t, c)

	obj, err := c.New(s)
	require.NoError(t, err)
	require.NoError(t, obj.SetAttr("Id", uint32(1)))
	require.NoError(t, obj.SetAttr("UserName", "carol"))
	require.NoError(t, obj.Index())

	require.NoError(t, obj.Remove())

	idAttr := s.AttrByName("Id")
	idx, err := c.IndexFor(s, idAttr)
	require.NoError(t, err)
	key, err := attrKeyBytes(idAttr.Type, uint32(1))
	require.NoError(t, err)
	_, found := idx.Find(obj.Ref().PartitionID, key)
	require.False(t, found, "Remove must delete the index entry Index() created")
}

func TestObjectRemoveMissingEntryIsFatal(t *testing.T) {
	c := openTestContainer(t)
	s := addJobSchema(t, c)

	obj, err := c.New(s)
	require.NoError(t, err)
	require.NoError(t, obj.SetAttr("Id", uint32(2)))
	require.NoError(t, obj.SetAttr("UserName", "dave"))
	// Deliberately never call Index(), so no entries exist yet.

	err = obj.Remove()
	require.Error(t, err, "removing an object with no index entries is fatal, not a no-op")
}

func TestObjectGetPutReturnsToFreeList(t *testing.T) {
	c := openTestContainer(t)
	s := addJobSchema(t, c)

	obj, err := c.New(s)
	require.NoError(t, err)
	obj.Put()

	require.Len(t, c.objFreeList, 1)
}
