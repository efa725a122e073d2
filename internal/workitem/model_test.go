package workitem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newTestModel() *Model {
	return NewModel(Snapshot{
		Items: []WorkItem{
			{ID: 1, Type: TypeEpic, State: "New", Title: "Platform", AreaPath: "Proj", Tags: "Gov:RTB; Impact:High; Cost:High; Effort:High; Complexity:Low"},
			{ID: 2, Type: TypeFeature, State: "In Progress", Title: "Login", AreaPath: `Proj\Web`, Tags: "web"},
			{ID: 3, Type: TypeProductBacklogItem, State: "Approved", Title: "Form", AreaPath: `Proj\Web`, Tags: "web; Gov:GTB"},
			{ID: 4, Type: TypeBug, State: "Resolved", Title: "Crash", Tags: "urgent"},
		},
		Relations: map[int][]RelationRecord{
			1: {{Kind: ChildLink, TargetID: 2, SourceOrdinal: 0}},
			2: {{Kind: ParentLink, TargetID: 1, SourceOrdinal: 0}, {Kind: ChildLink, TargetID: 3, SourceOrdinal: 1}},
			3: {{Kind: ParentLink, TargetID: 2, SourceOrdinal: 0}},
		},
		AreaPaths: []string{"Proj", `Proj\Web`},
	})
}

func TestDraft_SetTypeResetsState(t *testing.T) {
	t.Parallel()

	d := NewDraft(TypeBug)
	d.State = "Resolved"
	d.SetType(TypeEpic)
	assert.Equal(t, "New", d.State)
	assert.True(t, IsValidState(d.Type, d.State))

	d.SetType(TypeProductBacklogItem)
	assert.Equal(t, "New", d.State)
}

func TestValidStates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"New", "In Progress", "Done", "Removed"}, ValidStates(TypeEpic))
	assert.Equal(t, []string{"New", "In Progress", "Done", "Removed"}, ValidStates(TypeFeature))
	assert.Equal(t, []string{"New", "Approved", "Committed", "Done", "Removed"}, ValidStates(TypeProductBacklogItem))
	for _, typ := range []Type{TypeBug, TypeIssue, TypeTestCase, TypeTestPlan, TypeTestSuite} {
		assert.Equal(t, []string{"New", "In Progress", "Resolved", "Closed"}, ValidStates(typ))
	}

	states := ValidStates(TypeEpic)
	states[0] = "mutated"
	assert.Equal(t, "New", InitialState(TypeEpic))
}

func TestParseType(t *testing.T) {
	t.Parallel()

	typ, err := ParseType(" Product Backlog Item ")
	require.NoError(t, err)
	assert.Equal(t, TypeProductBacklogItem, typ)

	_, err = ParseType("User Story")
	assert.Error(t, err)
}

func TestModel_Views(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	v, ok := m.View(2)
	require.True(t, ok)
	assert.Equal(t, 1, v.ParentID)
	assert.Equal(t, []int{3}, v.Children)

	v, ok = m.View(1)
	require.True(t, ok)
	assert.Equal(t, 100, v.Score)
	assert.True(t, v.Categories.Complete())

	m.SetFilter(FilterSpec{SelectedTags: []string{"web"}})
	views := m.Views()
	require.Len(t, views, 2)
	assert.Equal(t, 2, views[0].ID)
	assert.Equal(t, 3, views[1].ID)
}

func TestModel_ParentCandidatesExcludeSelfAndChildren(t *testing.T) {
	t.Parallel()

	got := newTestModel().ParentCandidates(2)
	assert.Equal(t, []int{1, 4}, ids(got))
}

func TestModel_TagAndStateSets(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	assert.Equal(t, []string{"Approved", "In Progress", "New", "Resolved"}, m.StateSet())
	assert.Contains(t, m.TagSet(), "web")
	assert.Contains(t, m.TagSet(), "Gov:RTB")
}

func TestModel_CreateIntent(t *testing.T) {
	t.Parallel()

	d := NewDraft(TypeProductBacklogItem)
	d.Title = "  Checkout  "
	d.AreaPath = `Proj\Web`
	d.Tags = "web"
	d.Effort = 5
	d.Categories = CategorySelection{GovType: 1, Impact: 1, CostSavings: 1, EffortCategory: 3, Complexity: 1}
	d.HistoryComment = "created from board"

	req, err := newTestModel().CreateIntent(d)
	require.NoError(t, err)
	assert.Equal(t, TypeProductBacklogItem, req.Type)
	assert.Equal(t, Patch{
		{Op: OpAdd, Path: PathTitle, Value: "Checkout"},
		{Op: OpAdd, Path: PathDescription, Value: ""},
		{Op: OpAdd, Path: PathState, Value: "New"},
		{Op: OpAdd, Path: PathAreaPath, Value: `Proj\Web`},
		{Op: OpAdd, Path: PathTags, Value: "web; Gov:RTB; Impact:High; Cost:High; Effort:High; Complexity:Low"},
		{Op: OpAdd, Path: PathEffort, Value: 5.0},
		{Op: OpAdd, Path: PathBusinessValue, Value: 100},
		{Op: OpAdd, Path: PathHistory, Value: "created from board"},
	}, req.Patch)
}

func TestModel_CreateIntentSkipsEffortForOtherTypes(t *testing.T) {
	t.Parallel()

	d := NewDraft(TypeBug)
	d.Title = "Crash"
	d.Effort = 3

	req, err := newTestModel().CreateIntent(d)
	require.NoError(t, err)
	_, ok := req.Patch.Value(PathEffort)
	assert.False(t, ok)
	bv, ok := req.Patch.Value(PathBusinessValue)
	require.True(t, ok)
	assert.Equal(t, 0, bv)
}

func TestModel_CreateIntentValidates(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{name: "empty title", draft: Draft{Type: TypeBug, Title: "  "}, field: "title"},
		{name: "bad state", draft: Draft{Type: TypeEpic, Title: "x", State: "Resolved"}, field: "state"},
		{name: "unknown area", draft: Draft{Type: TypeBug, Title: "x", AreaPath: "Other"}, field: "areaPath"},
		{name: "bad type", draft: Draft{Type: "Task", Title: "x"}, field: "type"},
		{name: "negative effort", draft: Draft{Type: TypeProductBacklogItem, Title: "x", Effort: -1}, field: "effort"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := m.CreateIntent(tt.draft)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestModel_UpdateIntentCategoriesRecomputeValue(t *testing.T) {
	t.Parallel()

	patch, err := newTestModel().UpdateIntent(3, Edit{
		Categories:     &CategorySelection{GovType: 5, Impact: 3, CostSavings: 3, EffortCategory: 1, Complexity: 3},
		HistoryComment: "rescored",
	})
	require.NoError(t, err)
	assert.Equal(t, Patch{
		{Op: OpReplace, Path: PathTags, Value: "web; Gov:Discretionary; Impact:Low; Cost:Low; Effort:Low; Complexity:High"},
		{Op: OpReplace, Path: PathBusinessValue, Value: 40},
		{Op: OpAdd, Path: PathHistory, Value: "rescored"},
	}, patch)
}

func TestModel_UpdateIntentTagsKeepCategories(t *testing.T) {
	t.Parallel()

	patch, err := newTestModel().UpdateIntent(3, Edit{Tags: ptr("web; mobile")})
	require.NoError(t, err)
	assert.Equal(t, Patch{
		{Op: OpReplace, Path: PathTags, Value: "web; mobile; Gov:GTB"},
	}, patch)
}

func TestModel_UpdateIntentFields(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	patch, err := m.UpdateIntent(3, Edit{
		Title:              ptr(" Form v2 "),
		State:              ptr("Committed"),
		AreaPath:           ptr(""),
		Effort:             ptr(8.0),
		AcceptanceCriteria: ptr("works"),
	})
	require.NoError(t, err)
	assert.Equal(t, Patch{
		{Op: OpReplace, Path: PathTitle, Value: "Form v2"},
		{Op: OpReplace, Path: PathState, Value: "Committed"},
		{Op: OpReplace, Path: PathAreaPath, Value: ""},
		{Op: OpReplace, Path: PathEffort, Value: 8.0},
		{Op: OpReplace, Path: PathAcceptanceCriteria, Value: "works"},
	}, patch)

	patch, err = m.UpdateIntent(4, Edit{Effort: ptr(2.0)})
	require.NoError(t, err)
	assert.Empty(t, patch, "effort only applies to product backlog items")
}

func TestModel_UpdateIntentValidates(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	var ve *ValidationError

	_, err := m.UpdateIntent(4, Edit{State: ptr("Done")})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "state", ve.Field)

	_, err = m.UpdateIntent(4, Edit{Title: ptr("")})
	require.True(t, errors.As(err, &ve))

	_, err = m.UpdateIntent(4, Edit{AreaPath: ptr("Nowhere")})
	require.True(t, errors.As(err, &ve))

	_, err = m.UpdateIntent(99, Edit{Title: ptr("x")})
	require.True(t, errors.As(err, &ve))
}

func TestModel_RelationIntents(t *testing.T) {
	t.Parallel()

	m := newTestModel()
	var cv *ConstraintViolation

	intents, err := m.SetParentIntent(3, 4)
	require.NoError(t, err)
	assert.Equal(t, []RelationIntent{
		{Action: ActionRemove, ItemID: 3, TargetID: 2, Position: 0, Kind: ParentLink},
		{Action: ActionAdd, ItemID: 3, TargetID: 4, Kind: ParentLink},
	}, intents)

	_, err = m.SetParentIntent(2, 3)
	assert.True(t, errors.As(err, &cv), "child as parent")

	_, err = m.SetParentIntent(2, 99)
	assert.True(t, errors.As(err, &cv), "unknown parent")

	intent, err := m.AddChildIntent(1, 4)
	require.NoError(t, err)
	assert.Equal(t, RelationIntent{Action: ActionAdd, ItemID: 1, TargetID: 4, Kind: ChildLink}, intent)

	intent, err = m.RemoveChildIntent(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, intent.Position)
}
