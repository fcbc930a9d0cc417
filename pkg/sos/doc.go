/*
Package sos implements the Scalable Object Store container, partition,
schema, and object lifecycle on top of an embedded bbolt database, with
one bbolt.DB file per container.

# Layout

A container is a single bbolt file holding a handful of top-level
buckets: config (arbitrary key/value settings), schemas and
schema_idx (the schema registry, by name and by id), part (the
partition list), and one obj_<partitionID> bucket per partition
holding that partition's objects. Attribute indexes live in their own
buckets, named by the attribute's durable IndexKey (see
pkg/sos/schema).

# Lifecycle

Create makes a new container file with no partitions. Open attaches
to an existing one, loading the schema registry and partition list
into memory, and seeds a primary partition the first time it finds
none. Close releases the
underlying bbolt.DB; Commit controls whether a write transaction
returns before (CommitAsync) or after (CommitSync) the backing file is
durably flushed.

# Objects and indexing

New allocates an object of a given schema inside the current primary
partition. SetAttr/Attr read and write its typed fields. Index adds an
object's indexed attribute values to their respective index buckets;
Remove reverses that. Object identity on disk is a Ref (partition id
plus byte offset), round-tripped through ObjectFromRef.

# Partitions

A container always has one primary partition, the only one new
objects are allocated into. PartitionNew appends a partition to the
container's doubly-linked partition list; partitions can be taken
offline or promoted to primary. Extend only validates its request
(bbolt grows the file by itself) and fails when there is no primary
partition.
*/
package sos
