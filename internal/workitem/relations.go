package workitem

import "slices"

// RelationKind is the direction of a hierarchy link as seen from its owning item.
type RelationKind string

// Hierarchy relation kinds.
const (
	ParentLink RelationKind = "parent"
	ChildLink  RelationKind = "child"
)

// RelationRecord is one hierarchy entry in an item's relation list.
//
// SourceOrdinal is the entry's position in the owning item's full remote
// relation list; the remote store removes relations by position.
type RelationRecord struct {
	Kind          RelationKind `json:"kind"`
	TargetID      int          `json:"targetId"`
	SourceOrdinal int          `json:"sourceOrdinal"`
}

// RelationIndex answers parent and child lookups over a relation snapshot.
type RelationIndex struct {
	records map[int][]RelationRecord
}

// NewRelationIndex indexes per-item relation lists. The lists are copied.
func NewRelationIndex(records map[int][]RelationRecord) RelationIndex {
	idx := RelationIndex{records: make(map[int][]RelationRecord, len(records))}
	for id, recs := range records {
		idx.records[id] = slices.Clone(recs)
	}
	return idx
}

// Records returns a copy of an item's relation list.
func (x RelationIndex) Records(itemID int) []RelationRecord {
	return slices.Clone(x.records[itemID])
}

// ParentOf returns the first parent link of an item.
// More than one parent is tolerated; the first in list order wins.
func (x RelationIndex) ParentOf(itemID int) (int, bool) {
	rec, ok := x.parentRecord(itemID)
	if !ok {
		return 0, false
	}
	return rec.TargetID, true
}

// ChildrenOf returns all child link targets in list order, duplicates included.
func (x RelationIndex) ChildrenOf(itemID int) []int {
	var out []int
	for _, rec := range x.records[itemID] {
		if rec.Kind == ChildLink {
			out = append(out, rec.TargetID)
		}
	}
	return out
}

// HasChild reports whether childID is among itemID's children.
func (x RelationIndex) HasChild(itemID, childID int) bool {
	_, ok := x.childRecord(itemID, childID)
	return ok
}

func (x RelationIndex) parentRecord(itemID int) (RelationRecord, bool) {
	for _, rec := range x.records[itemID] {
		if rec.Kind == ParentLink {
			return rec, true
		}
	}
	return RelationRecord{}, false
}

func (x RelationIndex) childRecord(itemID, childID int) (RelationRecord, bool) {
	for _, rec := range x.records[itemID] {
		if rec.Kind == ChildLink && rec.TargetID == childID {
			return rec, true
		}
	}
	return RelationRecord{}, false
}
