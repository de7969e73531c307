// Package mmap provides memory mappings that live outside the Go heap.
//
// Two kinds of mapping are supported:
//
//   - Open maps a file read-only. The local blob store uses it to read back
//     streamed range results without copying them through kernel buffers.
//   - MapAnon creates a read-write anonymous mapping. The arena allocator
//     carves point, id and bounding-box buffers out of such mappings so that
//     large indexes add no GC scanning work.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2)
//   - Windows: CreateFileMapping/MapViewOfFile and VirtualAlloc
//   - Everything else: heap-backed fallback with the same API
//
// Close is idempotent. Callers must not touch Bytes() after Close returns.
package mmap
