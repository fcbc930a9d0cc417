package sos

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/Snell1224/sos/pkg/log"
	"github.com/Snell1224/sos/pkg/metrics"
)

// PartitionState is the bitmask describing whether a partition is
// online and/or the current primary (the partition new objects are
// allocated into).
type PartitionState uint32

const (
	PartOffline PartitionState = 0
	PartActive  PartitionState = 1 << 0
	PartPrimary PartitionState = 1 << 1
)

// Partition is one member of the container's doubly-linked partition
// list, persisted in the part bucket keyed by a monotonic uint64 id
// (0 meaning nil).
type Partition struct {
	ID     uint64
	Name   string
	State  PartitionState
	PrevID uint64
	NextID uint64

	c        *Container
	refCount int32
}

type partitionRecord struct {
	Name   string
	State  PartitionState
	PrevID uint64
	NextID uint64
}

func objectBucketName(partitionID uint64) []byte {
	buf := make([]byte, 12)
	copy(buf, "obj_")
	binary.BigEndian.PutUint64(buf[4:], partitionID)
	return buf
}

// PartitionNew creates a new partition with the given name, appending
// it to the tail of the container's partition list. A new partition
// starts OFFLINE; callers bring it online with PartitionActiveSet or
// make it primary with PartitionPrimarySet. Duplicate names are
// rejected with ErrExist via a linked-list scan; on that path the list
// length is unchanged and no bucket is created.
func (c *Container) PartitionNew(name string) (*Partition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.partitions {
		if p.Name == name {
			return nil, fmt.Errorf("%w: partition %q", ErrExist, name)
		}
	}

	id := c.nextPartID
	if id == 0 {
		id = 1
	}
	p := &Partition{ID: id, Name: name, State: PartOffline, c: c}

	if c.tailID != 0 {
		tail := c.partitions[c.tailID]
		tail.NextID = id
		p.PrevID = c.tailID
	} else {
		c.headID = id
	}
	c.tailID = id
	c.nextPartID = id + 1
	c.partitions[id] = p

	err := c.db.Update(func(tx *bbolt.Tx) error {
		pb := tx.Bucket([]byte(bucketPart))
		if c.headID == id {
			// first partition: nothing else to relink
		} else if prev := c.partitions[p.PrevID]; prev != nil {
			rec := partitionRecord{Name: prev.Name, State: prev.State, PrevID: prev.PrevID, NextID: prev.NextID}
			buf, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := pb.Put(partKeyBytes(prev.ID), buf); err != nil {
				return err
			}
		}
		rec := partitionRecord{Name: p.Name, State: p.State, PrevID: p.PrevID, NextID: p.NextID}
		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := pb.Put(partKeyBytes(id), buf); err != nil {
			return err
		}
		pu := partUdata{Signature: partSignature, HeadID: c.headID, TailID: c.tailID, PrimaryID: c.primaryID, NextID: c.nextPartID}
		pub, err := json.Marshal(pu)
		if err != nil {
			return err
		}
		if err := pb.Put([]byte(udataKey), pub); err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists(objectBucketName(id))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sos: creating partition %q: %w", name, err)
	}

	metrics.PartitionsTotal.WithLabelValues("offline").Inc()
	log.WithPartition(name).Info().Msg("partition created")
	return p, nil
}

// PartitionIter walks the container's partition list in list order
// (head to tail).
type PartitionIter struct {
	c       *Container
	ids     []uint64
	pos     int
	started bool
}

// PartitionIter returns an iterator positioned before the head of the
// partition list.
func (c *Container) PartitionIter() *PartitionIter {
	c.mu.Lock()
	ids := make([]uint64, 0, len(c.partitions))
	id := c.headID
	for id != 0 {
		p := c.partitions[id]
		if p == nil {
			break
		}
		ids = append(ids, id)
		id = p.NextID
	}
	c.mu.Unlock()
	return &PartitionIter{c: c, ids: ids, pos: -1}
}

// First resets the iterator to the head of the list and returns it.
func (it *PartitionIter) First() (*Partition, bool) {
	it.pos = 0
	return it.current()
}

// Next advances the iterator and returns the partition at the new
// position. When an iterator advances past a non-primary partition
// whose refcount has fallen to zero, the partition is unlinked from the
// container's in-memory list; its persisted record and object bucket
// are not removed.
func (it *PartitionIter) Next() (*Partition, bool) {
	if it.pos >= 0 {
		it.c.mu.Lock()
		prevID := it.ids[it.pos]
		if p := it.c.partitions[prevID]; p != nil && p.refCount <= 0 && p.State&PartPrimary == 0 {
			it.c.unlinkPartitionLocked(prevID)
		}
		it.c.mu.Unlock()
	}
	it.pos++
	return it.current()
}

func (it *PartitionIter) current() (*Partition, bool) {
	if it.pos < 0 || it.pos >= len(it.ids) {
		return nil, false
	}
	it.c.mu.Lock()
	p := it.c.partitions[it.ids[it.pos]]
	it.c.mu.Unlock()
	if p == nil {
		return nil, false
	}
	return p, true
}

// Close releases the iterator. A no-op, kept for interface symmetry
// with callers that expect an explicit iterator lifetime.
func (it *PartitionIter) Close() {}

func (c *Container) unlinkPartitionLocked(id uint64) {
	p := c.partitions[id]
	if p == nil {
		return
	}
	if p.PrevID != 0 {
		if prev := c.partitions[p.PrevID]; prev != nil {
			prev.NextID = p.NextID
		}
	} else {
		c.headID = p.NextID
	}
	if p.NextID != 0 {
		if next := c.partitions[p.NextID]; next != nil {
			next.PrevID = p.PrevID
		}
	} else {
		c.tailID = p.PrevID
	}
	delete(c.partitions, id)
}

// PartitionPrimarySet marks p as the container's primary partition
// (the partition new objects are allocated into), clearing the
// primary bit on whichever partition previously held it.
func (c *Container) PartitionPrimarySet(p *Partition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.primaryID != 0 {
		if old := c.partitions[c.primaryID]; old != nil {
			old.State &^= PartPrimary
		}
	}
	p.State |= PartPrimary
	c.primaryID = p.ID

	if err := c.persistPartUdataLocked(); err != nil {
		return err
	}
	return c.persistPartitionLocked(p)
}

// PartitionActiveSet brings p online or offline. Taking the current
// PRIMARY partition offline is rejected with ErrInvalid.
func (c *Container) PartitionActiveSet(p *Partition, online bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !online && p.State&PartPrimary != 0 {
		return fmt.Errorf("%w: cannot take primary partition offline", ErrInvalid)
	}
	if online {
		p.State |= PartActive
	} else {
		p.State &^= PartActive
	}
	return c.persistPartitionLocked(p)
}

func (c *Container) persistPartUdataLocked() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		pb := tx.Bucket([]byte(bucketPart))
		pu := partUdata{Signature: partSignature, HeadID: c.headID, TailID: c.tailID, PrimaryID: c.primaryID, NextID: c.nextPartID}
		buf, err := json.Marshal(pu)
		if err != nil {
			return err
		}
		return pb.Put([]byte(udataKey), buf)
	})
}

func (c *Container) persistPartitionLocked(p *Partition) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		pb := tx.Bucket([]byte(bucketPart))
		rec := partitionRecord{Name: p.Name, State: p.State, PrevID: p.PrevID, NextID: p.NextID}
		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return pb.Put(partKeyBytes(p.ID), buf)
	})
}

// Get increments the partition's in-memory reference count.
func (p *Partition) Get() *Partition {
	p.refCount++
	return p
}

// Put decrements the partition's in-memory reference count.
func (p *Partition) Put() {
	p.refCount--
}

// IsPrimary reports whether the partition currently holds the primary
// bit.
func (p *Partition) IsPrimary() bool {
	return p.State&PartPrimary != 0
}

// IsActive reports whether the partition is online.
func (p *Partition) IsActive() bool {
	return p.State&PartActive != 0
}
