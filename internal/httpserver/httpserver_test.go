package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ronappleton/studioflow/internal/config"
	"github.com/ronappleton/studioflow/internal/studio"
	"github.com/ronappleton/studioflow/internal/workflow"
)

var now = time.Date(2024, time.August, 20, 9, 0, 0, 0, time.UTC)

const weddingJSON = `{
  "id": "tpl_wedding",
  "name": "Wedding",
  "groups": [
    {"id": "prep", "name": "Prep", "order": 1},
    {"id": "edit", "name": "Edit", "order": 2},
    {"id": "deliver", "name": "Deliver", "order": 3}
  ],
  "steps": [
    {"id": "S1", "title": "Consult", "group": "prep", "estimated_hours": 1, "due_offset_days": -2},
    {"id": "S2", "title": "Edit", "group": "edit", "estimated_hours": 4, "due_offset_days": 3, "dependencies": ["S1"]},
    {"id": "S3", "title": "Deliver", "group": "deliver", "estimated_hours": 1, "due_offset_days": 10, "dependencies": ["S2"]}
  ]
}`

type who struct {
	id, role string
}

var (
	asAdmin  = who{"u_admin", "admin"}
	asEditor = who{"u_editor", "editor"}
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := studio.NewMemoryDirectory()
	dir.PutSession(studio.SessionSummary{
		ID:             "sess_1",
		OrganizationID: "org_1",
		SchoolID:       "sch_1",
		SchoolName:     "Hillside",
		Date:           "2024-09-01",
		SessionTypes:   []string{"wedding"},
	})
	dir.PutMember(studio.TeamMember{ID: "u_editor", OrganizationID: "org_1", Name: "Eddie", Role: "editor", Active: true})
	svc := workflow.NewService(workflow.ServiceOptions{
		Directory: dir,
		Now:       func() time.Time { return now },
	})
	cfg := config.Default()
	cfg.Organization.DefaultID = "org_1"
	return NewServer(cfg, zap.NewNop(), svc).Handler()
}

func do(t *testing.T, h http.Handler, as who, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", as.id)
	req.Header.Set("X-User-Role", as.role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type viewModel struct {
	Workflow struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"workflow"`
	ProgressPercent float64 `json:"progress_percent"`
	StatusColor     string  `json:"status_color"`
	CurrentStep     *struct {
		ID string `json:"id"`
	} `json:"current_step"`
}

func seedInstance(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, asAdmin, http.MethodPost, "/v1/templates", weddingJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, asAdmin, http.MethodPost, "/v1/instances", `{"template_id":"tpl_wedding","session_id":"sess_1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[viewModel](t, rec).Workflow.ID
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), who{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTemplateRoutes(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, asEditor, http.MethodPost, "/v1/templates", weddingJSON)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = do(t, h, asAdmin, http.MethodPost, "/v1/templates", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cyclic := `{"name":"Loop","steps":[
	 {"id":"a","title":"A","estimated_hours":1,"dependencies":["b"]},
	 {"id":"b","title":"B","estimated_hours":1,"dependencies":["a"]}]}`
	rec = do(t, h, asAdmin, http.MethodPost, "/v1/templates", cyclic)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	p := decode[Problem](t, rec)
	assert.ElementsMatch(t, []string{"a", "b"}, uniq(p.IDs))

	rec = do(t, h, asAdmin, http.MethodPost, "/v1/templates", weddingJSON)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, asAdmin, http.MethodPut, "/v1/templates/tpl_wedding", strings.Replace(weddingJSON, `"Wedding"`, `"Wedding Plus"`, 1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decode[map[string]any](t, rec)["version"])

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/templates/tpl_wedding/versions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]any](t, rec)["items"], 1)

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/templates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]any](t, rec)["items"], 1)

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/templates/tpl_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, asAdmin, http.MethodDelete, "/v1/templates/tpl_wedding", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deactivated":false}`, rec.Body.String())
}

func TestCatalogRoutes(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, asAdmin, http.MethodGet, "/v1/catalog/resolve?session_type=Team%20Photos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"sports"}`, rec.Body.String())

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]any](t, rec)["items"], 4)

	rec = do(t, h, asAdmin, http.MethodPost, "/v1/catalog/boudoir/instantiate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unknown template kind", decode[Problem](t, rec).Title)

	rec = do(t, h, asAdmin, http.MethodPost, "/v1/catalog/wedding/instantiate", `{"name":"Our Wedding"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Our Wedding", decode[map[string]any](t, rec)["name"])
}

func TestStepRoutes(t *testing.T) {
	h := newTestServer(t)
	id := seedInstance(t, h)
	base := "/v1/instances/" + id

	rec := do(t, h, asEditor, http.MethodPost, base+"/steps/S2/transition", `{"status":"completed"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"S1"}, decode[Problem](t, rec).IDs)

	rec = do(t, h, asEditor, http.MethodPost, base+"/steps/S9/transition", `{"status":"completed"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[Problem](t, rec).Detail, "please refresh")

	rec = do(t, h, asEditor, http.MethodPost, base+"/steps/S1/transition", `{"status":"done"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, asEditor, http.MethodPost, base+"/steps/S1/complete", `{"notes":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	vm := decode[viewModel](t, rec)
	assert.InDelta(t, 33.3, vm.ProgressPercent, 0.1)
	require.NotNil(t, vm.CurrentStep)
	assert.Equal(t, "S2", vm.CurrentStep.ID)
	assert.Equal(t, "#3b82f6", vm.StatusColor)

	rec = do(t, h, asEditor, http.MethodPut, base+"/steps/S2/assignee", `{"assignee_id":"u_editor"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, h, asAdmin, http.MethodPut, base+"/steps/S2/assignee", `{"assignee_id":"u_editor"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, asEditor, http.MethodPatch, base+"/steps/S2", `{"files":["draft.zip"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, asEditor, http.MethodGet, "/v1/overview/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]any](t, rec)["items"], 1)

	rec = do(t, h, asAdmin, http.MethodPut, base+"/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, asEditor, http.MethodPost, base+"/move", `{"group_id":"deliver"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[struct {
		Report workflow.MoveReport `json:"report"`
	}](t, rec)
	assert.Equal(t, []string{"S2"}, moved.Report.Completed)
	assert.Equal(t, []string{"S3"}, moved.Report.Started)

	rec = do(t, h, asAdmin, http.MethodPost, base+"/steps/S3/transition", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	vm = decode[viewModel](t, rec)
	assert.Equal(t, "completed", vm.Workflow.Status)
	assert.Equal(t, 100.0, vm.ProgressPercent)
}

func TestOverviewRoutes(t *testing.T) {
	h := newTestServer(t)
	id := seedInstance(t, h)
	rec := do(t, h, asEditor, http.MethodPost, "/v1/instances/"+id+"/steps/S1/transition", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/overview/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]int](t, rec)
	assert.Equal(t, 1, stats["total"])
	assert.Equal(t, 1, stats["completed_steps"])

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/instances?group=school", "")
	require.Equal(t, http.StatusOK, rec.Code)
	groups := decode[map[string][]bucketView](t, rec)["groups"]
	require.Len(t, groups, 1)
	assert.Equal(t, "Hillside", groups[0].Key)

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/instances?search=nomatch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]any](t, rec)["items"])

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/overview/kanban", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, asAdmin, http.MethodGet, "/v1/overview/matrix", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, asAdmin, http.MethodGet, "/v1/overview/timeline", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]any](t, rec)["items"], 3)

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/overview/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(rec.Body.String(), "\r\n")
	assert.Equal(t, `"School","Session Type","Template","Date","Status","Progress","Consult","Edit","Deliver"`, lines[0])
	assert.Equal(t, `"Hillside","wedding","Wedding","2024-09-01","active","33%","completed","pending","pending"`, lines[1])

	rec = do(t, h, asAdmin, http.MethodGet, "/v1/team", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]any](t, rec)["items"], 1)
}

func TestProblemFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&workflow.UnknownTemplateKindError{Key: "x"}, http.StatusBadRequest},
		{&workflow.ForbiddenError{Action: "x"}, http.StatusForbidden},
		{fmt.Errorf("wrap: %w", workflow.ErrNotFound), http.StatusNotFound},
		{&workflow.StepNotFoundError{StepID: "x"}, http.StatusConflict},
		{&workflow.CycleDetectedError{StepIDs: []string{"a", "b", "a"}}, http.StatusUnprocessableEntity},
		{&workflow.DependencyNotSatisfiedError{StepID: "b", MissingDeps: []string{"a"}}, http.StatusUnprocessableEntity},
		{&workflow.InvalidTemplateError{Problems: []string{"name is required"}}, http.StatusUnprocessableEntity},
		{&workflow.PersistenceError{Op: "save", Err: errors.New("down")}, http.StatusBadGateway},
		{workflow.ErrDerivedStatus, http.StatusConflict},
		{workflow.ErrTemplateInactive, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, problemFor(tc.err).Status, tc.err.Error())
	}
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
