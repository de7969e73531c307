// Package arena provides the bump allocator that owns every coordinate, id
// and bounding-box buffer of a spatial tree.
//
// Memory is taken from the OS in large off-heap chunks (anonymous mappings)
// and handed out sequentially while the tree is built. Nothing is freed
// individually: Free releases every chunk at index teardown, after which all
// slices handed out by the arena are invalid.
//
// Only pointer-free element types may be allocated (see Scalar); the garbage
// collector does not scan arena memory.
package arena
