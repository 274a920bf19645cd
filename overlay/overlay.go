// Package overlay implements OverlayResolver: the single-pass collapse of a
// sequence of STP (Permanent/Overlay/New/Cancellation) records, pre-sorted
// Permanent-first, into a per-TUID list of pairwise non-overlapping records.
// It is generic over railrecord.OverlayRecord so the same algorithm resolves
// both Schedule and Association STP chains (§4.3 of the spec).
//
// The pass itself has no direct ancestor in the teacher (gtfstidy starts from
// an already-resolved calendar.txt), but its shape — a Processor-like stage
// that walks a slice once, mutating a per-key index — follows the teacher's
// processors.Processor convention; see processors/servicenonoverlapper.go for
// the closest sibling (also a single pass building day-indexed buckets).
package overlay

import (
	"github.com/ukrail-gtfs/assembler/calendar"
	"github.com/ukrail-gtfs/assembler/railrecord"
)

// Index is a TUID-keyed collection of records that preserves first-seen
// (insertion) order for both the TUID keys and each TUID's record list, per
// the spec's design note that dynamic-key dictionaries must iterate in
// insertion order for reproducibility.
type Index[T railrecord.OverlayRecord[T]] struct {
	order []string
	byKey map[string][]T
}

// NewIndex builds an empty Index.
func NewIndex[T railrecord.OverlayRecord[T]]() *Index[T] {
	return &Index[T]{byKey: make(map[string][]T)}
}

// Keys returns the TUIDs in first-seen order.
func (idx *Index[T]) Keys() []string {
	return idx.order
}

// Get returns the records for a TUID, or nil.
func (idx *Index[T]) Get(tuid string) []T {
	return idx.byKey[tuid]
}

// Len returns the total number of records across all TUIDs.
func (idx *Index[T]) Len() int {
	n := 0
	for _, k := range idx.order {
		n += len(idx.byKey[k])
	}
	return n
}

func (idx *Index[T]) set(tuid string, records []T) {
	if _, ok := idx.byKey[tuid]; !ok {
		idx.order = append(idx.order, tuid)
	}
	idx.byKey[tuid] = records
}

// Resolve runs OverlayResolver over records, which must already be ordered so
// that every TUID's Permanent record(s) precede its Overlay/New/Cancellation
// records (the spec's required `(stp_indicator DESC, id)` stream order).
func Resolve[T railrecord.OverlayRecord[T]](records []T) *Index[T] {
	idx := NewIndex[T]()

	for _, rec := range records {
		tuid := rec.RecordTUID()

		if rec.RecordSTP() != railrecord.STPPermanent {
			existing := idx.Get(tuid)
			updated := make([]T, 0, len(existing))
			for _, base := range existing {
				if base.RecordCalendar().Overlap(rec.RecordCalendar()) == calendar.OverlapNone {
					updated = append(updated, base)
					continue
				}
				newCal := base.RecordCalendar().AddExcludeDays(rec.RecordCalendar())
				if newCal == nil {
					continue // calendar collapsed to no operating day: drop silently (§7)
				}
				updated = append(updated, base.CloneWith(newCal, base.RecordID()))
			}
			idx.set(tuid, updated)
		}

		if rec.RecordSTP() != railrecord.STPCancellation {
			idx.set(tuid, append(idx.Get(tuid), rec))
		}
	}

	return idx
}
