package workitem

import (
	"slices"
	"strings"
)

// Snapshot is the already-fetched state a Model is built from.
type Snapshot struct {
	Items     []WorkItem
	Relations map[int][]RelationRecord
	AreaPaths []string
}

// View is a work item with its derived business value and hierarchy.
type View struct {
	WorkItem
	Categories CategorySelection `json:"categories"`
	Score      int               `json:"score"`
	ParentID   int               `json:"parentId,omitempty"`
	Children   []int             `json:"children,omitempty"`
}

// Model composes the item set, relation index and filter state.
// It is not safe for concurrent use.
type Model struct {
	items     []WorkItem
	byID      map[int]int
	index     RelationIndex
	areaPaths []string
	filter    FilterSpec
}

// NewModel builds a model from a snapshot.
func NewModel(s Snapshot) *Model {
	m := &Model{
		items:     slices.Clone(s.Items),
		byID:      make(map[int]int, len(s.Items)),
		index:     NewRelationIndex(s.Relations),
		areaPaths: slices.Clone(s.AreaPaths),
	}
	for i, item := range m.items {
		m.byID[item.ID] = i
	}
	return m
}

// Items returns every item in snapshot order.
func (m *Model) Items() []WorkItem {
	return m.items
}

// Item looks up an item by id.
func (m *Model) Item(id int) (WorkItem, bool) {
	i, ok := m.byID[id]
	if !ok {
		return WorkItem{}, false
	}
	return m.items[i], true
}

// Index returns the relation index.
func (m *Model) Index() RelationIndex {
	return m.index
}

// AreaPaths returns the known area paths.
func (m *Model) AreaPaths() []string {
	return m.areaPaths
}

// SetFilter replaces the filter state.
func (m *Model) SetFilter(spec FilterSpec) {
	m.filter = spec
}

// Filter returns the filter state.
func (m *Model) Filter() FilterSpec {
	return m.filter
}

// Visible returns the items passing the current filter.
func (m *Model) Visible() []WorkItem {
	return Apply(m.items, m.filter)
}

// View returns the derived view of an item.
func (m *Model) View(id int) (View, bool) {
	item, ok := m.Item(id)
	if !ok {
		return View{}, false
	}
	return m.view(item), true
}

// Views returns views for the visible items.
func (m *Model) Views() []View {
	visible := m.Visible()
	out := make([]View, 0, len(visible))
	for _, item := range visible {
		out = append(out, m.view(item))
	}
	return out
}

func (m *Model) view(item WorkItem) View {
	sel := item.Categories()
	v := View{
		WorkItem:   item,
		Categories: sel,
		Score:      ComputeScore(sel),
		Children:   m.index.ChildrenOf(item.ID),
	}
	if p, ok := m.index.ParentOf(item.ID); ok {
		v.ParentID = p
	}
	return v
}

// ParentCandidates lists the items that id may be moved under:
// everything except the item itself and its current children.
func (m *Model) ParentCandidates(id int) []WorkItem {
	children := toIntSet(m.index.ChildrenOf(id))
	out := make([]WorkItem, 0, len(m.items))
	for _, item := range m.items {
		if item.ID == id || children[item.ID] {
			continue
		}
		out = append(out, item)
	}
	return out
}

// TagSet returns every distinct tag across items, sorted.
func (m *Model) TagSet() []string {
	seen := map[string]bool{}
	for _, item := range m.items {
		for _, t := range item.TagList() {
			seen[t] = true
		}
	}
	return sortedKeys(seen)
}

// StateSet returns every distinct state across items, sorted.
func (m *Model) StateSet() []string {
	seen := map[string]bool{}
	for _, item := range m.items {
		if item.State != "" {
			seen[item.State] = true
		}
	}
	return sortedKeys(seen)
}

// CreateIntent validates a draft and returns its create payload.
func (m *Model) CreateIntent(d Draft) (CreateRequest, error) {
	if !slices.Contains(Types, d.Type) {
		return CreateRequest{}, invalid("type", "unsupported work item type %q", d.Type)
	}
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return CreateRequest{}, invalid("title", "must not be empty")
	}
	if d.State == "" {
		d.State = InitialState(d.Type)
	}
	if !IsValidState(d.Type, d.State) {
		return CreateRequest{}, invalid("state", "%q is not valid for %s", d.State, d.Type)
	}
	if err := m.checkAreaPath(d.AreaPath); err != nil {
		return CreateRequest{}, err
	}
	if d.Effort < 0 {
		return CreateRequest{}, invalid("effort", "must not be negative")
	}
	return CreateRequest{Type: d.Type, Patch: createPatch(d)}, nil
}

// UpdateIntent validates an edit of item id and returns its patch.
func (m *Model) UpdateIntent(id int, e Edit) (Patch, error) {
	item, ok := m.Item(id)
	if !ok {
		return nil, invalid("id", "work item %d is not loaded", id)
	}
	if e.Title != nil && strings.TrimSpace(*e.Title) == "" {
		return nil, invalid("title", "must not be empty")
	}
	if e.State != nil && !IsValidState(item.Type, *e.State) {
		return nil, invalid("state", "%q is not valid for %s", *e.State, item.Type)
	}
	if e.AreaPath != nil {
		if err := m.checkAreaPath(*e.AreaPath); err != nil {
			return nil, err
		}
	}
	if e.Effort != nil && *e.Effort < 0 {
		return nil, invalid("effort", "must not be negative")
	}
	return updatePatch(item, e), nil
}

// SetParentIntent computes the intents moving id under parentID (0 detaches).
func (m *Model) SetParentIntent(id, parentID int) ([]RelationIntent, error) {
	if err := m.checkLoaded(id, parentID); err != nil {
		return nil, err
	}
	return NewRelationEditor(m.index).SetParent(id, parentID)
}

// AddChildIntent computes the intent linking childID under parentID.
func (m *Model) AddChildIntent(parentID, childID int) (RelationIntent, error) {
	if err := m.checkLoaded(parentID, childID); err != nil {
		return RelationIntent{}, err
	}
	return NewRelationEditor(m.index).AddChild(parentID, childID)
}

// RemoveChildIntent computes the intent unlinking childID from parentID.
func (m *Model) RemoveChildIntent(parentID, childID int) (RelationIntent, error) {
	return NewRelationEditor(m.index).RemoveChild(parentID, childID)
}

func (m *Model) checkLoaded(itemID, targetID int) error {
	if _, ok := m.byID[itemID]; !ok {
		return violation(itemID, targetID, "unknown work item")
	}
	if _, ok := m.byID[targetID]; targetID != 0 && !ok {
		return violation(itemID, targetID, "unknown target work item")
	}
	return nil
}

func (m *Model) checkAreaPath(path string) error {
	if path == "" || slices.Contains(m.areaPaths, path) {
		return nil
	}
	return invalid("areaPath", "%q is not a known area path", path)
}

func toIntSet(values []int) map[int]bool {
	set := make(map[int]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
