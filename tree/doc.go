// Package tree implements an exact spatial index over a fixed point set: a
// binary space-partitioning tree of axis-aligned bounding boxes answering
// k-nearest-neighbor and radius queries.
//
// Nodes live in a node arena and refer to their children by Handle. Leaves
// own their point coordinates and original ids, both carved out of an
// off-heap arena.Arena at build time; internal nodes only route.
//
// Queries run through an Engine, which is parameterized over a Counter type.
// Instantiating it with NoCount removes instrumentation at compile time;
// with *Count every distance evaluation and comparison is tallied.
//
// Two query disciplines are supported:
//
//   - KNearest(k): every query point ends with exactly k neighbors ordered
//     by ascending distance, ties broken by ascending neighbor id, padded
//     with +Inf sentinels when fewer than k candidates exist.
//   - Within{Radius: r}: every neighbor at distance <= r is streamed to a
//     sink.Sink as it is found.
//
// Engine.AllNearest runs a dual-tree traversal of a query tree against the
// reference tree, splitting disjoint query subtrees across workers.
package tree
