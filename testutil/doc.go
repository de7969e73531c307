// Package testutil provides testing utilities for dualtree.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random point sets and computing
// exact neighbors by linear scan.
//
// # Random Point Generation
//
//	rng := testutil.NewRNG(seed)
//	pts := testutil.UniformPoints[float64](rng, 1000, 3)   // uniform [0, 1)
//	pts  = testutil.GridPoints[float64](10, 2)             // many equal distances
//
// # Exact Search (Ground Truth)
//
//	hits := testutil.ExactKNN(space, pts, dim, query, queryID, k)
//	hits  = testutil.ExactRange(space, pts, dim, query, queryID, r)
package testutil
