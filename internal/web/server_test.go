package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metalagman/devboard/internal/db"
	"github.com/metalagman/devboard/internal/session"
	"github.com/metalagman/devboard/internal/tracker/trackertest"
	"github.com/metalagman/devboard/internal/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv      *httptest.Server
	remote   *trackertest.Remote
	events   *db.Store
	database *sql.DB
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "devboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	remote := trackertest.New("contoso", "web")
	remote.SetAreas(`web`, `web\checkout`)
	for _, item := range []workitem.WorkItem{
		{ID: 1, Type: workitem.TypeEpic, State: "New", Title: "Epic", AreaPath: `web`},
		{ID: 2, Type: workitem.TypeFeature, State: "In Progress", Title: "Feature", AreaPath: `web\checkout`, Tags: "ux; Gov:RTB; Impact:High; Cost:High; Effort:Low; Complexity:Low"},
		{ID: 3, Type: workitem.TypeBug, State: "New", Title: "Bug", AreaPath: `web\checkout`, Tags: "ux"},
		{ID: 4, Type: workitem.TypeProductBacklogItem, State: "Approved", Title: "PBI", Tags: "api"},
	} {
		remote.Put(item)
	}

	events := db.NewStore(database)
	sessions, err := session.NewStore(database, time.Hour, nil)
	require.NoError(t, err)
	srv, err := NewServer(Options{
		Sessions: sessions,
		Events:   events,
		NewRemote: func(organization, project, pat string) (Remote, error) {
			if organization != "contoso" || project != "web" {
				return nil, errors.New("unexpected scope")
			}
			return remote, nil
		},
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return fixture{srv: ts, remote: remote, events: events, database: database}
}

func (f fixture) call(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(data)
		}
		reader = bytes.NewBufferString(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, f.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(AuthHeader, token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (f fixture) login(t *testing.T) string {
	t.Helper()
	status, body := f.call(t, http.MethodPost, "/api/login", "", map[string]string{
		"organization": "contoso", "project": "web", "pat": "secret",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var resp loginResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, body := f.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
}

func TestLogin_RejectedCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.remote.RejectCredentials = true
	status, body := f.call(t, http.MethodPost, "/api/login", "", map[string]string{
		"organization": "contoso", "project": "web", "pat": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	resp := decode[loginResponse](t, body)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Token)
}

func TestLogin_SchemaViolation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, body := f.call(t, http.MethodPost, "/api/login", "", map[string]string{"organization": "contoso"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "pat")

	status, _ = f.call(t, http.MethodPost, "/api/login", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuth_RequiredAndLogoutInvalidates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, _ := f.call(t, http.MethodGet, "/api/workitems", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = f.call(t, http.MethodGet, "/api/workitems", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	token := f.login(t)
	status, _ = f.call(t, http.MethodGet, "/api/workitems", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.call(t, http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.call(t, http.MethodGet, "/api/workitems", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestListItems_FiltersAndScores(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.remote.Link(1, 2)
	token := f.login(t)

	status, body := f.call(t, http.MethodGet, "/api/workitems", token, nil)
	require.Equal(t, http.StatusOK, status)
	all := decode[listResponse](t, body)
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, 4, all.Count)
	assert.Equal(t, []string{"Approved", "In Progress", "New"}, all.States)
	assert.Contains(t, all.Tags, "ux")

	var feature workitem.View
	for _, v := range all.Items {
		if v.ID == 2 {
			feature = v
		}
	}
	assert.Equal(t, 1, feature.ParentID)
	assert.Equal(t, 95, feature.Score)
	assert.Equal(t, 1, feature.Categories.GovType)

	status, body = f.call(t, http.MethodGet, `/api/workitems?areaPath=web%5Ccheckout&tag=ux&state=New`, token, nil)
	require.Equal(t, http.StatusOK, status)
	filtered := decode[listResponse](t, body)
	require.Equal(t, 1, filtered.Count)
	assert.Equal(t, 3, filtered.Items[0].ID)

	status, body = f.call(t, http.MethodGet, "/api/workitems?type=Product%20Backlog%20Item", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[listResponse](t, body).Count)
}

func TestCreateItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := f.login(t)

	status, body := f.call(t, http.MethodPost, "/api/workitems", token, map[string]any{
		"workItemType": "Product Backlog Item",
		"title":        "Faster checkout",
		"areaPath":     `web\checkout`,
		"effort":       3,
		"tags":         "perf",
		"categories":   map[string]int{"govType": 5, "impact": 3, "costSavings": 3, "effortCategory": 1, "complexity": 3},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	item := decode[workitem.WorkItem](t, body)
	assert.Equal(t, "New", item.State)
	assert.Equal(t, 40, item.BusinessValue)
	assert.Equal(t, "perf; Gov:Discretionary; Impact:Low; Cost:Low; Effort:Low; Complexity:High", item.Tags)

	status, _ = f.call(t, http.MethodPost, "/api/workitems", token, map[string]any{
		"workItemType": "User Story", "title": "x",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.call(t, http.MethodPost, "/api/workitems", token, map[string]any{
		"workItemType": "Bug", "title": "x", "areaPath": "nowhere",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "areaPath", decode[errorBody](t, body).Field)

	status, body = f.call(t, http.MethodPost, "/api/workitems", token, map[string]any{
		"workItemType": "Epic", "title": "x", "state": "Approved",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "state", decode[errorBody](t, body).Field)
}

func TestUpdateItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := f.login(t)

	status, body := f.call(t, http.MethodPatch, "/api/workitems/2", token, map[string]any{
		"title": "Renamed",
		"tags":  "ux; mobile",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	item := decode[workitem.WorkItem](t, body)
	assert.Equal(t, "Renamed", item.Title)
	assert.Equal(t, "ux; mobile; Gov:RTB; Impact:High; Cost:High; Effort:Low; Complexity:Low", item.Tags)

	status, body = f.call(t, http.MethodPatch, "/api/workitems/3", token, map[string]any{"state": "Committed"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "state", decode[errorBody](t, body).Field)

	status, _ = f.call(t, http.MethodPatch, "/api/workitems/99", token, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.call(t, http.MethodPatch, "/api/workitems/abc", token, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = f.call(t, http.MethodPatch, "/api/workitems/3", token, map[string]any{"owner": "me"})
	assert.Equal(t, http.StatusBadRequest, status, "unknown fields are rejected by the schema")
}

func TestRelations_ParentAndChildren(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := f.login(t)

	status, body := f.call(t, http.MethodPut, "/api/workitems/3/parent", token, map[string]any{"parentId": 2})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = f.call(t, http.MethodGet, "/api/workitems/2/relations", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []int{3}, decode[struct {
		Children []int `json:"children"`
	}](t, body).Children)

	status, body = f.call(t, http.MethodPut, "/api/workitems/2/parent", token, map[string]any{"parentId": 3})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, 2, decode[errorBody](t, body).ItemID)

	status, _ = f.call(t, http.MethodPut, "/api/workitems/3/parent", token, map[string]any{"parentId": 404})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.call(t, http.MethodPost, "/api/workitems/2/children", token, map[string]any{"childId": 3})
	assert.Equal(t, http.StatusUnprocessableEntity, status, "already a child")

	status, _ = f.call(t, http.MethodPost, "/api/workitems/2/children", token, map[string]any{"childId": 4})
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.call(t, http.MethodDelete, "/api/workitems/2/children/3", token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.call(t, http.MethodDelete, "/api/workitems/2/children/3", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body = f.call(t, http.MethodPut, "/api/workitems/4/parent", token, map[string]any{"parentId": nil})
	require.Equal(t, http.StatusOK, status)
	applied := decode[struct {
		Applied []workitem.RelationIntent `json:"applied"`
	}](t, body).Applied
	require.Len(t, applied, 1)
	assert.Equal(t, workitem.ActionRemove, applied[0].Action)

	status, body = f.call(t, http.MethodGet, "/api/workitems/3/events", token, nil)
	require.Equal(t, http.StatusOK, status)
	events := decode[[]eventResponse](t, body)
	require.Len(t, events, 1)
	assert.Equal(t, db.EventRelationAdded, events[0].Type)
}

func TestScore_IsPure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	status, body := f.call(t, http.MethodPost, "/api/score", "", map[string]any{
		"categories": map[string]int{"govType": 5, "impact": 3, "costSavings": 3, "effortCategory": 1, "complexity": 3},
		"tags":       "ui; Gov:RTB",
	})
	require.Equal(t, http.StatusOK, status)
	resp := decode[scoreResponse](t, body)
	assert.Equal(t, 40, resp.Score)
	assert.True(t, resp.Complete)
	assert.Equal(t, "ui; Gov:Discretionary; Impact:Low; Cost:Low; Effort:Low; Complexity:High", resp.Tags)
	assert.Zero(t, f.remote.Writes())

	status, _ = f.call(t, http.MethodPost, "/api/score", "", map[string]any{
		"categories": map[string]int{"govType": 9},
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRemoteFailureIsBadGateway(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := f.login(t)
	f.remote.FailWith = errors.New("connection reset")

	status, _ := f.call(t, http.MethodGet, "/api/workitems", token, nil)
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, f.srv.URL+"/api/workitems", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-auth-token")
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers")), strings.ToLower(AuthHeader))

	req, err = http.NewRequestWithContext(context.Background(), http.MethodOptions, f.srv.URL+"/api/workitems", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-debug")
	resp, err = f.srv.Client().Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"), "unlisted header is refused")

	req, err = http.NewRequestWithContext(context.Background(), http.MethodGet, f.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.test")
	resp, err = f.srv.Client().Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewServer(Options{})
	require.Error(t, err)
}

func TestSessionStoreFailureIsInternal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	token := f.login(t)
	require.NoError(t, f.database.Close())

	status, body := f.call(t, http.MethodGet, "/api/workitems", token, nil)
	assert.Equal(t, http.StatusInternalServerError, status, string(body))
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusUnauthorized, statusOf(fmt.Errorf("lookup: %w", session.ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, statusOf(internalError(errors.New("database is closed"))))
	assert.Equal(t, http.StatusBadRequest, statusOf(badRequest("bad")))
	assert.Equal(t, http.StatusBadGateway, statusOf(errors.New("connection reset")))
}
