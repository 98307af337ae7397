package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/domain"
	"taskdeck/internal/offline"
	"taskdeck/pkg/response"
)

// fakeAPI serves an in-memory task collection behind the response
// envelope, requiring a bearer token on everything but auth and health.
type fakeAPI struct {
	mu      sync.Mutex
	tasks   map[string]map[string]interface{}
	next    int
	lastURL string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{tasks: map[string]map[string]interface{}{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func (f *fakeAPI) requested() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastURL
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastURL = r.URL.String()

	switch {
	case r.URL.Path == "/api/v1/health":
		response.Success(w, map[string]string{"status": "ok"})
		return
	case r.URL.Path == "/api/v1/auth/login":
		var req domain.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret123" {
			response.Unauthorized(w, "invalid credentials")
			return
		}
		response.Success(w, domain.AuthResponse{
			User:  &domain.User{ID: "u1", Email: req.Email},
			Token: "tok-1",
		})
		return
	}

	if r.Header.Get("Authorization") != "Bearer tok-1" {
		response.Unauthorized(w, "missing token")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
	switch {
	case r.URL.Path == "/api/v1/knowledge/tags":
		response.Success(w, []string{"go", "ops"})
	case r.URL.Path == "/api/v1/tasks" && r.Method == http.MethodGet:
		out := []map[string]interface{}{}
		for _, t := range f.tasks {
			out = append(out, t)
		}
		response.Success(w, out)
	case r.URL.Path == "/api/v1/tasks" && r.Method == http.MethodPost:
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["title"] == "" || body["title"] == nil {
			response.BadRequest(w, "title is required")
			return
		}
		f.next++
		body["id"] = fmt.Sprintf("t%d", f.next)
		f.tasks[body["id"].(string)] = body
		response.Created(w, body)
	case r.Method == http.MethodGet:
		if t, ok := f.tasks[id]; ok {
			response.Success(w, t)
			return
		}
		response.NotFound(w, "task not found")
	case r.Method == http.MethodPut:
		t, ok := f.tasks[id]
		if !ok {
			response.NotFound(w, "task not found")
			return
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		for k, v := range body {
			t[k] = v
		}
		t["id"] = id
		response.Success(w, t)
	case r.Method == http.MethodDelete:
		if _, ok := f.tasks[id]; !ok {
			response.NotFound(w, "task not found")
			return
		}
		delete(f.tasks, id)
		response.Message(w, "task deleted")
	default:
		response.InternalError(w, "unexpected request")
	}
}

func TestClient_LoginStoresToken(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.Login(ctx, &domain.LoginRequest{Email: "a@b.co", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, offline.IsRejected(err), "401 must stay retryable")
	assert.Empty(t, c.Token())

	auth, err := c.Login(ctx, &domain.LoginRequest{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", auth.Token)
	assert.Equal(t, "u1", auth.User.ID)
	assert.Equal(t, "tok-1", c.Token())

	tags, err := c.KnowledgeTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "ops"}, tags)
}

func TestResource_CRUD(t *testing.T) {
	api, srv := newFakeAPI(t)
	tasks := New(srv.URL, WithToken("tok-1")).Tasks()
	ctx := context.Background()

	created, err := tasks.Create(ctx, offline.Entity{"title": "Buy milk"})
	require.NoError(t, err)
	id := offline.EntityID(created)
	require.NotEmpty(t, id)

	updated, err := tasks.Update(ctx, id, offline.Entity{"completed": true})
	require.NoError(t, err)
	assert.Equal(t, true, updated["completed"])
	assert.Equal(t, "Buy milk", updated["title"])

	list, err := tasks.List(ctx, map[string][]string{"status": {"new"}})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Contains(t, api.requested(), "status=new")

	got, err := tasks.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, offline.EntityID(got))

	require.NoError(t, tasks.Delete(ctx, id))

	err = tasks.Delete(ctx, id)
	require.Error(t, err)
	assert.True(t, offline.IsNotFound(err))
}

func TestResource_ErrorClassification(t *testing.T) {
	_, srv := newFakeAPI(t)
	tasks := New(srv.URL, WithToken("tok-1")).Tasks()
	ctx := context.Background()

	_, err := tasks.Create(ctx, offline.Entity{"title": ""})
	require.Error(t, err)
	assert.True(t, offline.IsRejected(err))
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Contains(t, err.Error(), "title is required")

	_, err = tasks.Update(ctx, "missing", offline.Entity{"title": "x"})
	assert.True(t, offline.IsNotFound(err))

	srv.Close()
	_, err = tasks.List(ctx, nil)
	require.Error(t, err)
	assert.False(t, offline.IsRejected(err))
	assert.Zero(t, StatusCode(err))
}

func TestError_Rejected(t *testing.T) {
	cases := []struct {
		code     int
		rejected bool
	}{
		{400, true},
		{403, true},
		{404, true},
		{422, true},
		{401, false},
		{408, false},
		{409, false},
		{429, false},
		{500, false},
		{503, false},
	}
	for _, tc := range cases {
		e := &Error{StatusCode: tc.code}
		assert.Equal(t, tc.rejected, e.Rejected(), "status %d", tc.code)
	}
}

func TestClient_Ping(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := New(srv.URL + "/")
	require.NoError(t, c.Ping(context.Background()))

	srv.Close()
	assert.Error(t, c.Ping(context.Background()))
}
