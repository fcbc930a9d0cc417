/*
Package index implements the ordered index abstraction (family
"BXTREE") and its comparator registry.

It is deliberately independent of the container/partition/schema types
in pkg/sos — an Index only knows about a *bbolt.DB, partition ids, and
raw byte keys — so that pkg/sos can depend on package index without an
import cycle forming back through the comparator each attribute
resolves to.

An Index is a bbolt bucket holding ordered entries, keyed by the
comparator-encoded attribute value and scoped to a partition id so
that entries from different partitions sort independently within the
same bucket. NewIndex creates one and records its comparator type in a
udata key; OpenIndex reopens an existing one and restores that
comparator from the Registry. Insert/Find/Delete are the basic
entry operations; Each iterates every entry, partition by partition,
in key order within each partition.
*/
package index
