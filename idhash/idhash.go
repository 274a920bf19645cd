// Package idhash provides the id and hash helpers shared by the overlay,
// association and route-grouping passes: a restartable id counter (mirroring
// the teacher's processors/idminimizer.go counter-per-entity-kind pattern) and
// a composite-key hash (mirroring processors/routeduplicateremover.go's
// hash/fnv + encoding/binary route-bucket hash).
package idhash

import (
	"encoding/binary"
	"hash/fnv"
)

// IDGenerator yields maxID+1, maxID+2, ... on successive calls to Next. It
// models the spec's "coroutine generator" design note as a plain stateful
// object rather than a channel-backed goroutine, since every caller wants
// exactly the next integer, synchronously, with no concurrent fan-out.
type IDGenerator struct {
	next int
}

// NewIDGenerator builds a generator that starts handing out maxID+1.
func NewIDGenerator(maxID int) *IDGenerator {
	return &IDGenerator{next: maxID + 1}
}

// Next returns the next unused id.
func (g *IDGenerator) Next() int {
	id := g.next
	g.next++
	return id
}

// HashStrings combines an ordered list of strings into a single fnv-1a hash,
// used as the dedup key for shapes (sequential stop ids) and routes (agency,
// mode, names, colours tuple). Order matters: two key tuples in a different
// order hash differently, matching the spec's requirement that shape ids are
// equal iff the stop-id sequence is equal (not just the stop-id set).
func HashStrings(parts ...string) uint64 {
	h := fnv.New64a()
	var lenBuf [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(p)))
		h.Write(lenBuf[:])
		h.Write([]byte(p))
	}
	return h.Sum64()
}
