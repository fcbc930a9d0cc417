package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAssignsOffsetsAndSize(t *testing.T) {
	s := Build("Job", []AttributeSpec{
		{Name: "Id", Type: TypeUint32, Indexed: true},
		{Name: "StartTime", Type: TypeTimestamp},
		{Name: "UserName", Type: TypeString},
	})

	require.Len(t, s.Attrs, 3)
	assert.Equal(t, 0, s.Attrs[0].Offset)
	assert.Equal(t, 4, s.Attrs[0].Size)
	assert.Equal(t, 4, s.Attrs[1].Offset)
	assert.Equal(t, 8, s.Attrs[1].Size)
	assert.Equal(t, 12, s.Attrs[2].Offset)
	assert.Equal(t, 0, s.Attrs[2].Size, "variable length attributes have no fixed width")
	assert.Equal(t, 12, s.ObjSize)
}

func TestRegistryByNameByID(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, uint32(FirstUserSchemaID), r.NextID())

	s := Build("Job", nil)
	s.ID = r.NextID()
	r.Insert(s)

	got, ok := r.ByName("Job")
	require.True(t, ok)
	assert.Equal(t, s, got)

	got, ok = r.ByID(FirstUserSchemaID)
	require.True(t, ok)
	assert.Equal(t, s, got)

	_, ok = r.ByName("NoSuchSchema")
	assert.False(t, ok)

	assert.Equal(t, uint32(FirstUserSchemaID+1), r.NextID())
}

func TestSchemaGetPutRefCount(t *testing.T) {
	s := Build("Job", nil)
	assert.Equal(t, int32(0), s.RefCount())
	s.Get()
	s.Get()
	assert.Equal(t, int32(2), s.RefCount())
	s.Put()
	assert.Equal(t, int32(1), s.RefCount())
}

func TestRegistryEachOrdersByID(t *testing.T) {
	r := NewRegistry()
	names := []string{"C", "A", "B"}
	for _, name := range names {
		s := Build(name, nil)
		s.ID = r.NextID()
		r.Insert(s)
	}

	var seen []string
	r.Each(func(s *Schema) { seen = append(seen, s.Name) })
	assert.Equal(t, []string{"C", "A", "B"}, seen, "Each must visit schemas in ascending id order")
}
