package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/metalagman/devboard/internal/azure"
	"github.com/metalagman/devboard/internal/db"
	"github.com/metalagman/devboard/internal/tracker/trackertest"
	"github.com/metalagman/devboard/internal/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu     sync.Mutex
	events []db.Event
}

func (m *memRecorder) RecordEvent(_ context.Context, ev db.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRecorder) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Type)
	}
	return out
}

func newFixture(t *testing.T) (*Service, *trackertest.Remote, *memRecorder) {
	t.Helper()
	remote := trackertest.New("contoso", "web")
	remote.SetAreas(`web`, `web\checkout`)
	for _, item := range []workitem.WorkItem{
		{ID: 1, Type: workitem.TypeEpic, State: "New", Title: "Epic"},
		{ID: 2, Type: workitem.TypeFeature, State: "New", Title: "Feature"},
		{ID: 3, Type: workitem.TypeProductBacklogItem, State: "New", Title: "PBI", Tags: "ui; Gov:RTB"},
		{ID: 4, Type: workitem.TypeBug, State: "New", Title: "Bug"},
	} {
		remote.Put(item)
	}
	rec := &memRecorder{}
	return NewService(remote, nil, rec), remote, rec
}

func TestService_LoadBuildsModel(t *testing.T) {
	t.Parallel()

	svc, remote, _ := newFixture(t)
	remote.Link(1, 2)

	model, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, model.Items(), 4)
	parent, ok := model.Index().ParentOf(2)
	require.True(t, ok)
	assert.Equal(t, 1, parent)
	assert.Equal(t, []string{`web`, `web\checkout`}, model.AreaPaths())
}

func TestService_CreateValidatesAndRecords(t *testing.T) {
	t.Parallel()

	svc, remote, rec := newFixture(t)
	ctx := context.Background()

	d := workitem.NewDraft(workitem.TypeProductBacklogItem)
	d.Title = "  Checkout v2  "
	d.AreaPath = `web\checkout`
	d.Effort = 5
	d.Categories = workitem.CategorySelection{GovType: 5, Impact: 3, CostSavings: 3, EffortCategory: 1, Complexity: 3}

	item, err := svc.Create(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "Checkout v2", item.Title)
	assert.Equal(t, 40, item.BusinessValue)
	assert.Equal(t, "New", item.State)
	assert.Equal(t, []string{db.EventItemCreated}, rec.types())

	d.AreaPath = `elsewhere`
	_, err = svc.Create(ctx, d)
	var verr *workitem.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "areaPath", verr.Field)
	assert.Equal(t, 1, remote.Writes())
}

func TestService_UpdatePreservesCategoriesOnTagEdit(t *testing.T) {
	t.Parallel()

	svc, remote, rec := newFixture(t)
	tags := "backend"

	item, err := svc.Update(context.Background(), 3, workitem.Edit{Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "backend; Gov:RTB", item.Tags)
	assert.Equal(t, 1, remote.Writes())
	assert.Equal(t, []string{db.EventItemUpdated}, rec.types())
}

func TestService_UpdateRejectsInvalidState(t *testing.T) {
	t.Parallel()

	svc, remote, _ := newFixture(t)
	state := "Approved"

	_, err := svc.Update(context.Background(), 1, workitem.Edit{State: &state})
	var verr *workitem.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "state", verr.Field)
	assert.Zero(t, remote.Writes())
}

func TestService_UpdateWithNothingToChangeSkipsWrite(t *testing.T) {
	t.Parallel()

	svc, remote, rec := newFixture(t)
	item, err := svc.Update(context.Background(), 4, workitem.Edit{})
	require.NoError(t, err)
	assert.Equal(t, "Bug", item.Title)
	assert.Zero(t, remote.Writes())
	assert.Empty(t, rec.types())
}

func TestService_UpdateUnknownItem(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFixture(t)
	title := "x"
	_, err := svc.Update(context.Background(), 99, workitem.Edit{Title: &title})
	require.ErrorIs(t, err, azure.ErrNotFound)
}

func TestService_SetParentReplacesExistingParent(t *testing.T) {
	t.Parallel()

	svc, remote, rec := newFixture(t)
	ctx := context.Background()
	remote.AddForeignLink(3)
	remote.Link(2, 3)

	intents, err := svc.SetParent(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, workitem.ActionRemove, intents[0].Action)
	assert.Equal(t, 1, intents[0].Position, "position counts the foreign relation")
	assert.Equal(t, workitem.ActionAdd, intents[1].Action)

	rels, err := svc.Relations(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, rels.ParentID)

	old, err := svc.Relations(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, old.Children)

	assert.Equal(t, []string{db.EventRelationRemoved, db.EventRelationAdded}, rec.types())
}

func TestService_SetParentSameParentIsNoop(t *testing.T) {
	t.Parallel()

	svc, remote, _ := newFixture(t)
	remote.Link(2, 3)

	intents, err := svc.SetParent(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Empty(t, intents)
	assert.Zero(t, remote.Writes())
}

func TestService_SetParentRejectsCycleBeforeWriting(t *testing.T) {
	t.Parallel()

	svc, remote, _ := newFixture(t)
	remote.Link(2, 3)

	_, err := svc.SetParent(context.Background(), 2, 3)
	var cv *workitem.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Zero(t, remote.Writes())
}

func TestService_SetParentUnknownParent(t *testing.T) {
	t.Parallel()

	svc, remote, _ := newFixture(t)
	_, err := svc.SetParent(context.Background(), 3, 77)
	require.ErrorIs(t, err, azure.ErrNotFound)
	assert.Zero(t, remote.Writes())
}

func TestService_DetachParent(t *testing.T) {
	t.Parallel()

	svc, remote, _ := newFixture(t)
	remote.Link(2, 3)

	intents, err := svc.SetParent(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, workitem.ActionRemove, intents[0].Action)
}

func TestService_AddAndRemoveChild(t *testing.T) {
	t.Parallel()

	svc, remote, _ := newFixture(t)
	ctx := context.Background()
	remote.AddForeignLink(1)
	remote.Link(1, 2)

	intent, err := svc.AddChild(ctx, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, workitem.ChildLink, intent.Kind)

	_, err = svc.AddChild(ctx, 1, 4)
	var cv *workitem.ConstraintViolation
	require.ErrorAs(t, err, &cv, "duplicate child")

	rels, err := svc.Relations(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, rels.Children)

	removed, err := svc.RemoveChild(ctx, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, removed.Position)

	rels, err = svc.Relations(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, rels.Children)

	bug, err := svc.Relations(ctx, 4)
	require.NoError(t, err)
	assert.Zero(t, bug.ParentID)

	_, err = svc.RemoveChild(ctx, 1, 4)
	require.ErrorAs(t, err, &cv)
}

func TestService_AddChildRejectsOwnParent(t *testing.T) {
	t.Parallel()

	svc, remote, _ := newFixture(t)
	remote.Link(1, 2)

	_, err := svc.AddChild(context.Background(), 2, 1)
	var cv *workitem.ConstraintViolation
	require.ErrorAs(t, err, &cv)
	assert.Zero(t, remote.Writes())
}

func TestService_RemoteFailurePropagates(t *testing.T) {
	t.Parallel()

	svc, remote, rec := newFixture(t)
	boom := errors.New("boom")
	remote.FailWith = boom

	_, err := svc.AddChild(context.Background(), 1, 2)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, rec.types())
}

func TestService_ConcurrentAddChildIsSerialized(t *testing.T) {
	t.Parallel()

	svc, remote, _ := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddChild(ctx, 1, 2)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok, "only the first add wins; the rest see the fresh link")
	assert.Len(t, remote.Applied(), 1)
}
