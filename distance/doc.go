// Package distance provides the point-to-point metrics used by the tree.
//
// A Space pairs a point distance with the fold that combines per-axis gaps
// into the distance from a point to a bounding box. The fold must produce a
// lower bound of Distance for every point inside the box, otherwise pruning
// drops true neighbors.
//
// # Supported Metrics
//
//   - MetricL2: squared Euclidean distance (default; monotonic with the true
//     Euclidean distance, so no square root is needed)
//   - MetricL1: Manhattan distance
//   - MetricChebyshev: maximum per-axis difference
//
// # Usage
//
//	space, _ := distance.Provider[float64](distance.MetricL2)
//	d := space.Distance(a, b)
package distance
