// Package trackertest provides an in-memory remote store for tests.
package trackertest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/metalagman/devboard/internal/azure"
	"github.com/metalagman/devboard/internal/workitem"
)

const otherLink = "other"

type link struct {
	kind   string
	target int
}

// Remote mimics the remote store: relation lists are positional and adding a
// hierarchy link also adds the reverse link on the target.
type Remote struct {
	mu      sync.Mutex
	org     string
	project string
	items   map[int]workitem.WorkItem
	links   map[int][]link
	areas   []string
	nextID  int

	applied []workitem.RelationIntent
	writes  int
	// FailWith, when set, is returned by every call.
	FailWith error
	// RejectCredentials makes ValidateCredentials fail with azure.ErrUnauthorized.
	RejectCredentials bool
}

// New creates an empty remote for org/project.
func New(org, project string) *Remote {
	return &Remote{
		org:     org,
		project: project,
		items:   make(map[int]workitem.WorkItem),
		links:   make(map[int][]link),
		nextID:  1000,
	}
}

// SetAreas sets the project's area paths.
func (r *Remote) SetAreas(areas ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.areas = slices.Clone(areas)
}

// Put stores an item as-is.
func (r *Remote) Put(item workitem.WorkItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
}

// Link makes child a child of parent on both sides.
func (r *Remote) Link(parent, child int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[parent] = append(r.links[parent], link{kind: string(workitem.ChildLink), target: child})
	r.links[child] = append(r.links[child], link{kind: string(workitem.ParentLink), target: parent})
}

// AddForeignLink appends a non-hierarchy relation to id's list.
func (r *Remote) AddForeignLink(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[id] = append(r.links[id], link{kind: otherLink})
}

// Applied returns every relation intent applied so far.
func (r *Remote) Applied() []workitem.RelationIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.applied)
}

// Writes counts create, update and relation calls.
func (r *Remote) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Item returns the stored item.
func (r *Remote) Item(id int) (workitem.WorkItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	return item, ok
}

// Organization implements tracker.Remote.
func (r *Remote) Organization() string { return r.org }

// Project implements tracker.Remote.
func (r *Remote) Project() string { return r.project }

// ValidateCredentials mimics the project lookup done at login.
func (r *Remote) ValidateCredentials(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RejectCredentials {
		return fmt.Errorf("validate credentials: %w", azure.ErrUnauthorized)
	}
	return r.FailWith
}

// Snapshot implements tracker.Remote.
func (r *Remote) Snapshot(context.Context) (workitem.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return workitem.Snapshot{}, r.FailWith
	}
	ids := make([]int, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	snap := workitem.Snapshot{
		Relations: make(map[int][]workitem.RelationRecord),
		AreaPaths: slices.Clone(r.areas),
	}
	for _, id := range ids {
		snap.Items = append(snap.Items, r.items[id])
		if recs := r.records(id); len(recs) > 0 {
			snap.Relations[id] = recs
		}
	}
	return snap, nil
}

// AreaPaths implements tracker.Remote.
func (r *Remote) AreaPaths(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	return slices.Clone(r.areas), nil
}

// GetWorkItem implements tracker.Remote.
func (r *Remote) GetWorkItem(_ context.Context, id int) (workitem.WorkItem, []workitem.RelationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return workitem.WorkItem{}, nil, r.FailWith
	}
	item, ok := r.items[id]
	if !ok {
		return workitem.WorkItem{}, nil, fmt.Errorf("get work item %d: %w", id, azure.ErrNotFound)
	}
	return item, r.records(id), nil
}

// CreateWorkItem implements tracker.Remote.
func (r *Remote) CreateWorkItem(_ context.Context, req workitem.CreateRequest) (workitem.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return workitem.WorkItem{}, r.FailWith
	}
	r.nextID++
	r.writes++
	item := applyPatch(workitem.WorkItem{ID: r.nextID, Type: req.Type}, req.Patch)
	r.items[item.ID] = item
	return item, nil
}

// UpdateWorkItem implements tracker.Remote.
func (r *Remote) UpdateWorkItem(_ context.Context, id int, patch workitem.Patch) (workitem.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return workitem.WorkItem{}, r.FailWith
	}
	item, ok := r.items[id]
	if !ok {
		return workitem.WorkItem{}, fmt.Errorf("update work item %d: %w", id, azure.ErrNotFound)
	}
	r.writes++
	item = applyPatch(item, patch)
	r.items[id] = item
	return item, nil
}

// ApplyRelation implements tracker.Remote.
func (r *Remote) ApplyRelation(_ context.Context, intent workitem.RelationIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	if _, ok := r.items[intent.ItemID]; !ok {
		return fmt.Errorf("relation on %d: %w", intent.ItemID, azure.ErrNotFound)
	}
	switch intent.Action {
	case workitem.ActionAdd:
		r.links[intent.ItemID] = append(r.links[intent.ItemID], link{kind: string(intent.Kind), target: intent.TargetID})
		r.links[intent.TargetID] = append(r.links[intent.TargetID], link{kind: reverse(intent.Kind), target: intent.ItemID})
	case workitem.ActionRemove:
		list := r.links[intent.ItemID]
		if intent.Position < 0 || intent.Position >= len(list) {
			return &azure.APIError{StatusCode: 400, Op: "remove relation", Message: "relation index out of range"}
		}
		removed := list[intent.Position]
		r.links[intent.ItemID] = slices.Delete(list, intent.Position, intent.Position+1)
		r.dropReverse(removed.target, reverse(workitem.RelationKind(removed.kind)), intent.ItemID)
	default:
		return fmt.Errorf("unknown action %q", intent.Action)
	}
	r.writes++
	r.applied = append(r.applied, intent)
	return nil
}

func (r *Remote) records(id int) []workitem.RelationRecord {
	var out []workitem.RelationRecord
	for i, l := range r.links[id] {
		if l.kind == otherLink {
			continue
		}
		out = append(out, workitem.RelationRecord{Kind: workitem.RelationKind(l.kind), TargetID: l.target, SourceOrdinal: i})
	}
	return out
}

func (r *Remote) dropReverse(id int, kind string, target int) {
	list := r.links[id]
	for i, l := range list {
		if l.kind == kind && l.target == target {
			r.links[id] = slices.Delete(list, i, i+1)
			return
		}
	}
}

func reverse(kind workitem.RelationKind) string {
	if kind == workitem.ParentLink {
		return string(workitem.ChildLink)
	}
	return string(workitem.ParentLink)
}

func applyPatch(item workitem.WorkItem, patch workitem.Patch) workitem.WorkItem {
	for _, op := range patch {
		switch op.Path {
		case workitem.PathTitle:
			item.Title, _ = op.Value.(string)
		case workitem.PathDescription:
			item.Description, _ = op.Value.(string)
		case workitem.PathState:
			item.State, _ = op.Value.(string)
		case workitem.PathAreaPath:
			item.AreaPath, _ = op.Value.(string)
		case workitem.PathTags:
			item.Tags, _ = op.Value.(string)
		case workitem.PathEffort:
			item.Effort, _ = op.Value.(float64)
		case workitem.PathBusinessValue:
			item.BusinessValue, _ = op.Value.(int)
		case workitem.PathAcceptanceCriteria:
			item.AcceptanceCriteria, _ = op.Value.(string)
		}
	}
	return item
}
