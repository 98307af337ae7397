package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"taskdeck/internal/localstore"
)

var errConnRefused = errors.New("dial tcp: connection refused")

// statusError mimics the API client's error classification.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("server returned %d", e.code) }
func (e *statusError) Rejected() bool {
	return e.code >= 400 && e.code < 500 && e.code != 401 && e.code != 408 && e.code != 409 && e.code != 429
}
func (e *statusError) NotFound() bool { return e.code == 404 }

type call struct {
	method string
	id     string
}

// fakeRemote is an in-memory server collection.
type fakeRemote struct {
	mu     sync.Mutex
	items  []Entity
	nextID int
	calls  []call

	// fail, when set, may return an error for a call before it is applied.
	fail func(method, id string, data Entity) error
	// beforeCreate runs inside Create, outside the fake's lock.
	beforeCreate func(data Entity)
	matcher      Matcher
}

func newFakeRemote(seed ...Entity) *fakeRemote {
	f := &fakeRemote{matcher: matchAll}
	for _, s := range seed {
		f.items = append(f.items, cloneEntity(s))
	}
	return f
}

func (f *fakeRemote) record(method, id string, data Entity) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{method: method, id: id})
	fail := f.fail
	f.mu.Unlock()
	if fail != nil {
		return fail(method, id, data)
	}
	return nil
}

func (f *fakeRemote) List(ctx context.Context, query url.Values) ([]Entity, error) {
	if err := f.record("GET", "", nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	match := f.matcher(query)
	var out []Entity
	for _, it := range f.items {
		if match(it) {
			out = append(out, cloneEntity(it))
		}
	}
	return out, nil
}

func (f *fakeRemote) Get(ctx context.Context, id string) (Entity, error) {
	if err := f.record("GET", id, nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := indexOfEntity(f.items, id); i >= 0 {
		return cloneEntity(f.items[i]), nil
	}
	return nil, &statusError{code: 404}
}

func (f *fakeRemote) Create(ctx context.Context, data Entity) (Entity, error) {
	if err := f.record("POST", "", data); err != nil {
		return nil, err
	}
	if f.beforeCreate != nil {
		f.beforeCreate(data)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := cloneEntity(data)
	created[IDKey] = fmt.Sprintf("srv-%d", f.nextID)
	f.items = append(f.items, created)
	return cloneEntity(created), nil
}

func (f *fakeRemote) Update(ctx context.Context, id string, data Entity) (Entity, error) {
	if err := f.record("PUT", id, data); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := indexOfEntity(f.items, id)
	if i < 0 {
		return nil, &statusError{code: 404}
	}
	updated := merge(f.items[i], data)
	updated[IDKey] = id
	f.items[i] = updated
	return cloneEntity(updated), nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	if err := f.record("DELETE", id, nil); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if indexOfEntity(f.items, id) < 0 {
		return &statusError{code: 404}
	}
	f.items = removeEntity(f.items, id)
	return nil
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) resetCalls() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *fakeRemote) snapshot() []Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneEntities(f.items)
}

var quietLogger = log.New(io.Discard, "", 0)

type harness struct {
	remote  *fakeRemote
	store   *localstore.Memory
	monitor *Monitor
	engine  *Engine
}

func newHarness(t *testing.T, online bool, seed ...Entity) *harness {
	t.Helper()
	h := &harness{
		remote:  newFakeRemote(seed...),
		store:   localstore.NewMemory(),
		monitor: NewMonitor(online),
	}
	engine, err := NewEngine("tasks", h.remote, h.store, h.monitor, WithLogger(quietLogger))
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	h.engine = engine
	return h
}

// byTitle indexes a collection by title with identifiers stripped.
func byTitle(list []Entity) map[string]Entity {
	out := make(map[string]Entity, len(list))
	for _, e := range list {
		c := cloneEntity(e)
		delete(c, IDKey)
		delete(c, OfflineFlag)
		title, _ := c["title"].(string)
		out[title] = c
	}
	return out
}
