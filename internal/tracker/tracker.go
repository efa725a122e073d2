// Package tracker applies work item intents against the remote store.
//
// Every mutation of an item runs under that item's lock: fetch the item fresh,
// compute intents from what was fetched, apply them, record an audit event.
// Relation removals address entries by position, so computing them from a
// stale list would remove the wrong link.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/metalagman/devboard/internal/db"
	"github.com/metalagman/devboard/internal/workitem"
	"github.com/rs/zerolog/log"
)

// Remote is the subset of the Azure DevOps client the tracker needs.
type Remote interface {
	Organization() string
	Project() string
	Snapshot(ctx context.Context) (workitem.Snapshot, error)
	AreaPaths(ctx context.Context) ([]string, error)
	GetWorkItem(ctx context.Context, id int) (workitem.WorkItem, []workitem.RelationRecord, error)
	CreateWorkItem(ctx context.Context, req workitem.CreateRequest) (workitem.WorkItem, error)
	UpdateWorkItem(ctx context.Context, id int, patch workitem.Patch) (workitem.WorkItem, error)
	ApplyRelation(ctx context.Context, intent workitem.RelationIntent) error
}

// Recorder stores audit events.
type Recorder interface {
	RecordEvent(ctx context.Context, ev db.Event) error
}

// Service runs mutations for one organization and project.
type Service struct {
	remote   Remote
	locks    *Locks
	recorder Recorder
}

// NewService creates a tracker. locks may be shared between services; nil gets
// a private set. recorder may be nil.
func NewService(remote Remote, locks *Locks, recorder Recorder) *Service {
	if locks == nil {
		locks = NewLocks()
	}
	return &Service{remote: remote, locks: locks, recorder: recorder}
}

// Relations is an item's current hierarchy.
type Relations struct {
	ItemID   int                       `json:"id"`
	ParentID int                       `json:"parentId,omitempty"`
	Children []int                     `json:"children"`
	Records  []workitem.RelationRecord `json:"relations"`
}

// Load fetches the whole project into a model.
func (s *Service) Load(ctx context.Context) (*workitem.Model, error) {
	snap, err := s.remote.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return workitem.NewModel(snap), nil
}

// AreaPaths returns the project's area paths.
func (s *Service) AreaPaths(ctx context.Context) ([]string, error) {
	return s.remote.AreaPaths(ctx)
}

// Create validates and creates a draft.
func (s *Service) Create(ctx context.Context, d workitem.Draft) (workitem.WorkItem, error) {
	snap := workitem.Snapshot{}
	if d.AreaPath != "" {
		areas, err := s.remote.AreaPaths(ctx)
		if err != nil {
			return workitem.WorkItem{}, err
		}
		snap.AreaPaths = areas
	}
	req, err := workitem.NewModel(snap).CreateIntent(d)
	if err != nil {
		return workitem.WorkItem{}, err
	}
	item, err := s.remote.CreateWorkItem(ctx, req)
	if err != nil {
		return workitem.WorkItem{}, err
	}
	s.record(ctx, item.ID, db.EventItemCreated, fmt.Sprintf("created %s %q", item.Type, item.Title), req.Patch)
	return item, nil
}

// Update validates an edit against the freshly fetched item and applies it.
// An edit that changes nothing returns the item without a remote write.
func (s *Service) Update(ctx context.Context, id int, e workitem.Edit) (workitem.WorkItem, error) {
	defer s.lock(id)()

	item, _, err := s.remote.GetWorkItem(ctx, id)
	if err != nil {
		return workitem.WorkItem{}, err
	}
	snap := workitem.Snapshot{Items: []workitem.WorkItem{item}}
	if e.AreaPath != nil && *e.AreaPath != "" {
		if snap.AreaPaths, err = s.remote.AreaPaths(ctx); err != nil {
			return workitem.WorkItem{}, err
		}
	}
	patch, err := workitem.NewModel(snap).UpdateIntent(id, e)
	if err != nil {
		return workitem.WorkItem{}, err
	}
	if len(patch) == 0 {
		return item, nil
	}
	updated, err := s.remote.UpdateWorkItem(ctx, id, patch)
	if err != nil {
		return workitem.WorkItem{}, err
	}
	s.record(ctx, id, db.EventItemUpdated, fmt.Sprintf("updated %d fields", len(patch)), patch)
	return updated, nil
}

// Relations returns an item's hierarchy as currently stored.
func (s *Service) Relations(ctx context.Context, id int) (Relations, error) {
	_, recs, err := s.remote.GetWorkItem(ctx, id)
	if err != nil {
		return Relations{}, err
	}
	idx := workitem.NewRelationIndex(map[int][]workitem.RelationRecord{id: recs})
	out := Relations{ItemID: id, Children: idx.ChildrenOf(id), Records: recs}
	if out.Children == nil {
		out.Children = []int{}
	}
	if out.Records == nil {
		out.Records = []workitem.RelationRecord{}
	}
	if p, ok := idx.ParentOf(id); ok {
		out.ParentID = p
	}
	return out, nil
}

// SetParent moves id under parentID; parentID 0 detaches it.
func (s *Service) SetParent(ctx context.Context, id, parentID int) ([]workitem.RelationIntent, error) {
	defer s.lock(id)()

	editor, err := s.editorFor(ctx, id)
	if err != nil {
		return nil, err
	}
	if parentID != 0 && parentID != id {
		if _, _, err := s.remote.GetWorkItem(ctx, parentID); err != nil {
			return nil, err
		}
	}
	intents, err := editor.SetParent(id, parentID)
	if err != nil {
		return nil, err
	}
	for _, intent := range intents {
		if err := s.apply(ctx, intent); err != nil {
			return nil, err
		}
	}
	return intents, nil
}

// AddChild links childID under parentID.
func (s *Service) AddChild(ctx context.Context, parentID, childID int) (workitem.RelationIntent, error) {
	defer s.lock(parentID)()

	editor, err := s.editorFor(ctx, parentID)
	if err != nil {
		return workitem.RelationIntent{}, err
	}
	if childID != parentID {
		if _, _, err := s.remote.GetWorkItem(ctx, childID); err != nil {
			return workitem.RelationIntent{}, err
		}
	}
	intent, err := editor.AddChild(parentID, childID)
	if err != nil {
		return workitem.RelationIntent{}, err
	}
	if err := s.apply(ctx, intent); err != nil {
		return workitem.RelationIntent{}, err
	}
	return intent, nil
}

// RemoveChild unlinks childID from parentID.
func (s *Service) RemoveChild(ctx context.Context, parentID, childID int) (workitem.RelationIntent, error) {
	defer s.lock(parentID)()

	editor, err := s.editorFor(ctx, parentID)
	if err != nil {
		return workitem.RelationIntent{}, err
	}
	intent, err := editor.RemoveChild(parentID, childID)
	if err != nil {
		return workitem.RelationIntent{}, err
	}
	if err := s.apply(ctx, intent); err != nil {
		return workitem.RelationIntent{}, err
	}
	return intent, nil
}

func (s *Service) editorFor(ctx context.Context, id int) (workitem.RelationEditor, error) {
	_, recs, err := s.remote.GetWorkItem(ctx, id)
	if err != nil {
		return workitem.RelationEditor{}, err
	}
	idx := workitem.NewRelationIndex(map[int][]workitem.RelationRecord{id: recs})
	return workitem.NewRelationEditor(idx), nil
}

func (s *Service) apply(ctx context.Context, intent workitem.RelationIntent) error {
	if err := s.remote.ApplyRelation(ctx, intent); err != nil {
		return err
	}
	evType := db.EventRelationAdded
	if intent.Action == workitem.ActionRemove {
		evType = db.EventRelationRemoved
	}
	msg := fmt.Sprintf("%s %s link to %d", intent.Action, intent.Kind, intent.TargetID)
	s.record(ctx, intent.ItemID, evType, msg, intent)
	return nil
}

func (s *Service) lock(id int) func() {
	return s.locks.Lock(s.remote.Organization() + "/" + s.remote.Project() + "/" + strconv.Itoa(id))
}

// record never fails the mutation: the remote change already happened.
func (s *Service) record(ctx context.Context, itemID int, evType, msg string, data any) {
	logger := log.With().
		Str("org", s.remote.Organization()).
		Str("project", s.remote.Project()).
		Int("item_id", itemID).
		Str("event", evType).
		Logger()
	logger.Info().Msg(msg)
	if s.recorder == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Warn().Err(err).Msg("encode event data")
		payload = nil
	}
	ev := db.Event{
		Organization: s.remote.Organization(),
		Project:      s.remote.Project(),
		ItemID:       itemID,
		Type:         evType,
		Message:      msg,
		DataJSON:     string(payload),
	}
	if err := s.recorder.RecordEvent(ctx, ev); err != nil {
		logger.Warn().Err(err).Msg("record event")
	}
}
