// Package flat provides an exact inner-product vector index in pure Go.
// It implements the driven.VectorIndex interface.
//
// Every search scans all rows, which is fast enough for the few thousand
// passages a single document yields and gives deterministic results.
// The index serialises to a compact little-endian file (see codec.go) that
// lives next to the passage database in each cache directory.
package flat
