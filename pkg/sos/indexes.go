package sos

import (
	"github.com/Snell1224/sos/pkg/sos/index"
	"github.com/Snell1224/sos/pkg/sos/schema"
)

// IndexFor returns the index backing attr, materializing it on first
// use. Exported so CLI tools (cmd/sosutil) can look up an object by an
// indexed attribute without going through Object.Index/Remove.
func (c *Container) IndexFor(s *schema.Schema, attr *schema.Attribute) (*index.Index, error) {
	return c.ensureIndex(s, attr)
}

// IndexOpen opens a previously created, schema-independent named
// index (such as the job ingest tool's CompTime/JobComp compound
// indices).
func (c *Container) IndexOpen(name string) (*index.Index, error) {
	c.mu.Lock()
	if idx := c.indexes[name]; idx != nil {
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	idx, err := index.OpenIndex(c.db, name, c.indexReg)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.indexes[name] = idx
	c.mu.Unlock()
	return idx, nil
}

// IndexNew creates a new schema-independent named index.
func (c *Container) IndexNew(name, family, keyType string, order int) (*index.Index, error) {
	idx, err := index.NewIndex(c.db, name, family, keyType, order, c.indexReg)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.indexes[name] = idx
	c.mu.Unlock()
	return idx, nil
}

// IndexOpenOrNew opens name if it already exists, creating it
// otherwise. This is the contract the job/component ingest tool needs:
// re-running it against an already-populated container must not fail
// on the index-already-exists case.
func (c *Container) IndexOpenOrNew(name, family, keyType string, order int) (*index.Index, error) {
	if idx, err := c.IndexOpen(name); err == nil {
		return idx, nil
	}
	return c.IndexNew(name, family, keyType, order)
}

// PrimaryPartitionID returns the id of the container's current
// primary partition, or 0 if none exists.
func (c *Container) PrimaryPartitionID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.primaryID
}

// ToIndexRef converts a Ref to the lower-level index.Ref the
// pkg/sos/index package operates on.
func (r Ref) ToIndexRef() index.Ref {
	return r.toIndexRef()
}

// RefFromIndexRef converts a lower-level index.Ref back into a Ref.
func RefFromIndexRef(r index.Ref) Ref {
	return fromIndexRef(r)
}
