// Package dualtree provides an exact k-nearest-neighbor and radius search
// index over a fixed set of points.
//
// The index partitions the points into a binary tree of axis-aligned
// bounding boxes. Queries prune whole subtrees whose box lies farther away
// than the current bound, so results are always exact: the same neighbors a
// linear scan would find, in the same order.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := dualtree.New(ctx, points, 3, dualtree.WithLeafSize(32))
//	defer idx.Close()
//
//	nearest, _ := idx.Search(ctx, []float64{1, 2, 3}, 10)
//	within, _ := idx.SearchRadius(ctx, []float64{1, 2, 3}, 0.25)
//
// # All-Pairs Queries
//
// AllKNN and AllWithin answer a query for every indexed point at once with a
// dual-tree traversal. A point is never its own neighbor. The traversal runs
// on WithWorkers goroutines, each owning a disjoint part of the query tree.
//
//	knn, _ := idx.AllKNN(ctx, 5)          // knn[row] holds 5 neighbors
//	c := sink.NewCollector[float64]()
//	_ = idx.AllWithin(ctx, 0.5, c)          // hits stream into c
//
// AllKNNOf and AllWithinOf run the same traversal for a second point set
// against the index. Range results can be streamed straight into a blob:
//
//	store := blobstore.NewLocalStore("./results")
//	err := idx.AllWithinToBlob(ctx, store, "run-42.nnr", 0.5,
//	    sink.WithCompression(sink.CompressionZSTD))
//
// # Distances
//
// The default metric is squared Euclidean distance, so radii are given in
// squared units. WithMetric selects Manhattan or Chebyshev distance instead.
package dualtree
