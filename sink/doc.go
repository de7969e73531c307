// Package sink implements the output side of range queries.
//
// A range query may produce far more hits than fit in memory, so the query
// engine appends each hit to a Sink as it is found instead of returning a
// slice. Hits are fixed-layout Records; see RecordSize for the encoding.
//
// Sinks provided here:
//
//   - Collector keeps records in memory, for tests and small queries.
//   - StreamWriter encodes records onto an io.Writer behind a small header,
//     optionally LZ4 or ZSTD compressed and IO rate limited.
//   - BlobSink streams into a blobstore.BlobStore and discards the partial
//     blob when the query fails.
//
// Reader decodes a stream written by StreamWriter.
//
// All sinks serialize concurrent Append calls. A failed append is reported
// as a *WriteError and every later append fails with the same error.
package sink
