package main

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/Snell1224/sos/pkg/sos"
	"github.com/Snell1224/sos/pkg/sos/schema"
)

// jobNew is idempotent: if a Job with this Id already exists it is
// returned unchanged rather than erroring, so re-running ingest after
// a partial failure is safe (see DESIGN.md).
func jobNew(c *sos.Container, jobSchema *schema.Schema, id uint32, start, end time.Time, userName, jobName string) (*sos.Object, error) {
	if existing := findJobByID(c, jobSchema, id); existing != nil {
		return existing, nil
	}

	obj, err := c.New(jobSchema)
	if err != nil {
		return nil, fmt.Errorf("sosutil: allocating job object: %w", err)
	}
	if err := obj.SetAttr("Id", id); err != nil {
		return nil, err
	}
	if err := obj.SetAttr("StartTime", start.Unix()); err != nil {
		return nil, err
	}
	if err := obj.SetAttr("EndTime", end.Unix()); err != nil {
		return nil, err
	}
	if err := obj.SetAttr("UserName", userName); err != nil {
		return nil, err
	}
	if err := obj.SetAttr("JobName", jobName); err != nil {
		return nil, err
	}
	if err := obj.Index(); err != nil {
		return nil, fmt.Errorf("sosutil: indexing job object: %w", err)
	}
	return obj, nil
}

func findJobByID(c *sos.Container, jobSchema *schema.Schema, id uint32) *sos.Object {
	attr := jobSchema.AttrByName("Id")
	if attr == nil {
		return nil
	}
	idx, err := c.IndexFor(jobSchema, attr)
	if err != nil {
		return nil
	}
	// Id is a plain, non-string attribute key: an 8-byte big-endian
	// value, the same encoding attrKeyBytes uses for every scalar
	// numeric attribute.
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))

	ref, ok := idx.Find(c.PrimaryPartitionID(), key)
	if !ok {
		return nil
	}
	obj, err := c.ObjectFromRef(sos.RefFromIndexRef(ref))
	if err != nil {
		return nil
	}
	return obj
}
