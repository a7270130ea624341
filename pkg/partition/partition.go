// Package partition implements the Partitioner: a pluggable strategy that
// takes a grouping of entries keyed by internal path and splits it into
// unambiguous, ambiguous, and unprocessed buckets.
package partition

import (
	"context"
	"errors"
	"time"

	"zipsplat/pkg/archive"
	"zipsplat/pkg/imagehash"
	"zipsplat/pkg/internalpath"
)

// Partition holds the three disjoint buckets a strategy produces.
type Partition struct {
	Unambiguous map[internalpath.Path]archive.Entry
	Ambiguous   map[internalpath.Path][]archive.Entry
	Unprocessed map[internalpath.Path][]archive.Entry
}

// newPartition allocates an empty Partition with its maps initialized.
func newPartition() Partition {
	return Partition{
		Unambiguous: make(map[internalpath.Path]archive.Entry),
		Ambiguous:   make(map[internalpath.Path][]archive.Entry),
		Unprocessed: make(map[internalpath.Path][]archive.Entry),
	}
}

// Partitioner classifies a grouping of entries sharing candidate internal
// paths into unambiguous, ambiguous, and unprocessed buckets.
type Partitioner interface {
	Partition(ctx context.Context, grouping map[internalpath.Path][]archive.Entry) (Partition, error)
}

// GroupByInternalPath groups a flat entry collection by internal path. This
// is the grouping the by-name strategy classifies: entries that share an
// internal path are name-ambiguous candidates.
func GroupByInternalPath(entries []archive.Entry) map[internalpath.Path][]archive.Entry {
	grouped := make(map[internalpath.Path][]archive.Entry)
	for _, e := range entries {
		grouped[e.Internal] = append(grouped[e.Internal], e)
	}
	return grouped
}

// ByName classifies groups by cardinality: a singleton group is
// unambiguous, anything larger is ambiguous.
type ByName struct{}

// Partition implements Partitioner.
func (ByName) Partition(_ context.Context, grouping map[internalpath.Path][]archive.Entry) (Partition, error) {
	p := newPartition()

	for path, group := range grouping {
		if len(group) == 1 {
			p.Unambiguous[path] = group[0]
			continue
		}

		p.Ambiguous[path] = group
	}

	return p, nil
}

// ByCRC32 classifies groups by content identity: a group is unambiguous iff
// every entry shares one CRC32 value, in which case any entry serves as the
// representative since their contents are byte-identical. ByCRC32 never
// produces unprocessed entries.
type ByCRC32 struct{}

// Partition implements Partitioner.
func (ByCRC32) Partition(_ context.Context, grouping map[internalpath.Path][]archive.Entry) (Partition, error) {
	p := newPartition()

	for path, group := range grouping {
		if allSameCRC32(group) {
			p.Unambiguous[path] = group[0]
			continue
		}

		p.Ambiguous[path] = group
	}

	return p, nil
}

func allSameCRC32(group []archive.Entry) bool {
	if len(group) == 0 {
		return true
	}

	first := group[0].CRC32
	for _, e := range group[1:] {
		if e.CRC32 != first {
			return false
		}
	}
	return true
}

// ByImageHash classifies groups of same-named image entries by perceptual
// similarity. A group resolves to unambiguous when every pair of entries is
// within Threshold Hamming distance of each other; the smallest compressed
// entry is kept as the representative, matching the sync orchestrator's
// rule that the smallest compressed size wins a perceptual tie. Groups whose
// images fail to decode are ambiguous rather than unprocessed: a decode
// failure is a property of the data, not the budget, and retrying it in a
// later pass would not help. An entry whose bytes cannot be read at all
// (archive.ErrOpenFailed or archive.ErrEntryReadFailed) fails the whole
// Partition call instead.
//
// StopAfter bounds how many images a single Partition call will decode and
// hash, deferring the remainder to Unprocessed so the orchestrator can loop
// with a fresh budget. Zero means unlimited — a single pass resolves
// everything it can. A negative StopAfter grants a literal zero-item budget:
// every group is deferred to Unprocessed without decoding anything, which is
// useful for exercising budget exhaustion.
//
// MaxDuration bounds the wall-clock time a single Partition call spends
// decoding and hashing. It is checked before each group starts: once
// exceeded, every group not yet started is deferred to Unprocessed, the same
// as running out of StopAfter; a group already being hashed when the limit
// passes is still classified. Zero means unlimited; a negative MaxDuration grants a
// literal zero-duration budget, deferring every group immediately, mirroring
// StopAfter's negative convention.
type ByImageHash struct {
	Arena       *archive.Arena
	Threshold   int
	StopAfter   int
	MaxDuration time.Duration
}

// Partition implements Partitioner.
func (s ByImageHash) Partition(ctx context.Context, grouping map[internalpath.Path][]archive.Entry) (Partition, error) {
	p := newPartition()
	decoded := 0
	start := time.Now()

	for path, group := range grouping {
		if err := ctx.Err(); err != nil {
			return Partition{}, err
		}

		overBudget := s.StopAfter < 0 || (s.StopAfter > 0 && decoded+len(group) > s.StopAfter)
		overDuration := s.MaxDuration < 0 || (s.MaxDuration > 0 && time.Since(start) > s.MaxDuration)
		if overBudget || overDuration {
			p.Unprocessed[path] = group
			continue
		}

		hashes, err := s.hashGroup(group)
		if err != nil {
			if errors.Is(err, archive.ErrEntryReadFailed) || errors.Is(err, archive.ErrOpenFailed) {
				return Partition{}, err
			}
			p.Ambiguous[path] = group
			continue
		}
		decoded += len(group)

		if !allWithinThreshold(hashes, s.Threshold) {
			p.Ambiguous[path] = group
			continue
		}

		p.Unambiguous[path] = smallestCompressed(group)
	}

	return p, nil
}

func (s ByImageHash) hashGroup(group []archive.Entry) ([]imagehash.Hash, error) {
	hashes := make([]imagehash.Hash, len(group))

	for i, e := range group {
		data, err := e.Bytes(s.Arena)
		if err != nil {
			return nil, err
		}

		h, err := imagehash.Compute(data)
		if err != nil {
			return nil, err
		}

		hashes[i] = h
	}

	return hashes, nil
}

// allWithinThreshold reports whether every pair of hashes is within
// threshold Hamming distance of every other — the maximum pairwise
// distance within the group, not merely each entry's distance from the
// first. A group where a and b are close, and b and c are close, but a and
// c are not, is still ambiguous.
func allWithinThreshold(hashes []imagehash.Hash, threshold int) bool {
	for i := 0; i < len(hashes); i++ {
		for j := i + 1; j < len(hashes); j++ {
			ok, err := imagehash.WithinThreshold(hashes[i], hashes[j], threshold)
			if err != nil || !ok {
				return false
			}
		}
	}
	return true
}

func smallestCompressed(group []archive.Entry) archive.Entry {
	winner := group[0]
	for _, e := range group[1:] {
		if e.CompressedSize < winner.CompressedSize {
			winner = e
		}
	}
	return winner
}
