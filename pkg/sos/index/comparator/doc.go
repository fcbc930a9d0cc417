/*
Package comparator provides the built-in key comparators used by the
ordered index abstraction, STRING and UINT64, plus PackCompound and
UnpackCompound for the compound {secondary, primary} key used by the
job/component ingest tool's CompTime and JobComp indices (stored under
UINT64; it has no comparator of its own).

A Comparator both orders two encoded keys (Compare) and converts
between an encoded key and its string form (ToString/FromString), so
that "sosutil index dump" can print index entries without knowing the
attribute type ahead of time. index.NewRegistry registers each
built-in comparator under its short type name ("STRING", "UINT64"),
is persisted alongside an index so it can be recovered on reopen.
*/
package comparator
