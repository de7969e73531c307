package dualtree_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/dualtree"
	"github.com/hupe1980/dualtree/blobstore"
	"github.com/hupe1980/dualtree/sink"
)

var corners = []float64{
	0, 0,
	1, 0,
	0, 1,
	5, 5,
}

// Example_search demonstrates a k-nearest-neighbor query for a single point.
func Example_search() {
	ctx := context.Background()
	idx, err := dualtree.New(ctx, corners, 2)
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	nearest, err := idx.Search(ctx, []float64{0.1, 0.1}, 2)
	if err != nil {
		log.Fatal(err)
	}
	for _, nb := range nearest {
		fmt.Printf("id=%d coords=%v\n", nb.ID, nb.Coords)
	}
	// Output:
	// id=0 coords=[0 0]
	// id=1 coords=[1 0]
}

// Example_allKNN demonstrates finding the nearest neighbor of every point.
func Example_allKNN() {
	ctx := context.Background()
	idx, err := dualtree.New(ctx, corners, 2, dualtree.WithWorkers(2))
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	knn, err := idx.AllKNN(ctx, 2)
	if err != nil {
		log.Fatal(err)
	}
	for row, nbs := range knn {
		fmt.Printf("%d: %d (%g), %d (%g)\n", row, nbs[0].ID, nbs[0].Distance, nbs[1].ID, nbs[1].Distance)
	}
	// Output:
	// 0: 1 (1), 2 (1)
	// 1: 0 (1), 2 (2)
	// 2: 0 (1), 1 (2)
	// 3: 1 (41), 2 (41)
}

// Example_allWithin demonstrates collecting every pair within a radius.
func Example_allWithin() {
	ctx := context.Background()
	idx, err := dualtree.New(ctx, corners, 2)
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	c := sink.NewCollector[float64]()
	if err := idx.AllWithin(ctx, 1, c); err != nil {
		log.Fatal(err)
	}
	fmt.Println("pairs within 1:", c.Len())
	// Output: pairs within 1: 4
}

// Example_allWithinToBlob demonstrates streaming range results into a blob.
func Example_allWithinToBlob() {
	ctx := context.Background()
	idx, err := dualtree.New(ctx, corners, 2)
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	store := blobstore.NewMemoryStore()
	err = idx.AllWithinToBlob(ctx, store, "pairs.nnr", 2, sink.WithCompression(sink.CompressionZSTD))
	if err != nil {
		log.Fatal(err)
	}

	records, err := sink.ReadBlob[float64](ctx, store, "pairs.nnr")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("records:", len(records))
	// Output: records: 6
}
