/*
Package types defines the core data structures shared across the group
manager: chains, groups, and chain nodes, plus the lifecycle status they
move through.

A ChainInfo owns a set of GroupInfos by ID; a GroupInfo owns a map of
ChainNodeInfos by name. Ownership is by ID, not by pointer, so there are no
reference cycles between the three — the Manager and InfoStore packages are
what stitch chainID/groupID/nodeName lookups back together.

All three *Info types are treated as immutable values once handed to the
cache or the storage encoder: a mutation produces a new copy via one of the
With* helpers rather than mutating a shared instance in place.
*/
package types
