package sync

import (
	safemath "github.com/calimero-network/core/utils/math"
)

// Record is one (entity_key, entity_value) pair in a snapshot stream,
// always delivered in canonical key order so paging can resume
// correctly from a cursor.
type Record struct {
	Key   []byte
	Value []byte
}

// Page is one framed response to a SnapshotStreamRequest.
type Page struct {
	Records    []Record
	NextCursor []byte // nil once the boundary root is exhausted
}

// Source produces snapshot pages from a backing store; an
// implementation over the index package walks entities in canonical
// key order.
type Source interface {
	// Page returns up to limit records with key > cursor (cursor == nil
	// means "from the start"), in ascending key order.
	Page(cursor []byte, limit int) ([]Record, error)
}

// Produce pages a Source into (page_limit, byte_limit)-bounded frames,
// stopping a page early if adding the next record would exceed
// byteLimit so a single frame never blows past the wire budget.
func Produce(src Source, cursor []byte, pageLimit int, byteLimit int) (Page, error) {
	candidates, err := src.Page(cursor, pageLimit)
	if err != nil {
		return Page{}, err
	}

	var records []Record
	var size uint64
	for _, r := range candidates {
		recSize := uint64(len(r.Key) + len(r.Value))
		next, err := safemath.Add64(size, recSize)
		if err != nil || (size > 0 && next > uint64(byteLimit)) {
			break
		}
		records = append(records, r)
		size = next
	}

	var next []byte
	if len(records) == len(candidates) && len(candidates) == pageLimit {
		next = records[len(records)-1].Key
	} else if len(records) < len(candidates) {
		next = records[len(records)-1].Key
	}

	return Page{Records: records, NextCursor: next}, nil
}

// StagingArea accumulates records written by a snapshot stream before
// they are swapped into the live index atomically, so a reader never
// observes a half-applied snapshot.
type StagingArea struct {
	records  map[string][]byte
	order    []string
	complete bool
}

// NewStagingArea returns an empty staging area.
func NewStagingArea() *StagingArea {
	return &StagingArea{records: make(map[string][]byte)}
}

// Apply installs page's records into the staging area.
func (s *StagingArea) Apply(page Page) {
	for _, r := range page.Records {
		k := string(r.Key)
		if _, exists := s.records[k]; !exists {
			s.order = append(s.order, k)
		}
		s.records[k] = r.Value
	}
}

// Complete reports whether the staging area has seen a terminal page
// (NextCursor == nil was observed via MarkComplete).
func (s *StagingArea) Complete() bool { return s.complete }

// MarkComplete records that the final page (NextCursor == nil) arrived.
func (s *StagingArea) MarkComplete() { s.complete = true }

// Swap is the atomic commit point: a Sink installs every staged record
// in one call, after which readers observe the new state in full. The
// staging area is not usable again after Swap.
func (s *StagingArea) Swap(sink func(records []Record) error) error {
	records := make([]Record, 0, len(s.order))
	for _, k := range s.order {
		records = append(records, Record{Key: []byte(k), Value: s.records[k]})
	}
	return sink(records)
}

// RestartMarker persists across process restarts (written before the
// first page of a snapshot is staged, removed only after Swap
// succeeds) so a crash mid-snapshot is detected on the next boot as
// spec.md's "detected-incomplete-from-previous-run" condition rather
// than silently presenting a partially-written tree as complete.
type RestartMarker struct {
	ContextID string
	Cursor    []byte
}

// IncompleteRestart reports whether marker indicates an unfinished
// snapshot, i.e. it was found at all.
func IncompleteRestart(marker *RestartMarker) bool { return marker != nil }
