package offline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Remote is the server side of one entity collection.
type Remote interface {
	List(ctx context.Context, query url.Values) ([]Entity, error)
	Get(ctx context.Context, id string) (Entity, error)
	Create(ctx context.Context, data Entity) (Entity, error)
	Update(ctx context.Context, id string, data Entity) (Entity, error)
	Delete(ctx context.Context, id string) error
}

// Matcher turns a list query into the predicate applied to cached
// entities when the server cannot answer.
type Matcher func(query url.Values) func(Entity) bool

func matchAll(url.Values) func(Entity) bool {
	return func(Entity) bool { return true }
}

type SyncResult struct {
	Name       string    `json:"name"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Rejected   []*Action `json:"rejected,omitempty"`
	Remaining  int       `json:"remaining"`
	Refreshed  bool      `json:"refreshed"`
	FinishedAt time.Time `json:"finished_at"`
}

type Status struct {
	Name     string    `json:"name"`
	Online   bool      `json:"online"`
	Pending  int       `json:"pending"`
	Rejected int       `json:"rejected"`
	Syncing  bool      `json:"syncing"`
	LastSync time.Time `json:"last_sync,omitempty"`
}

type Option func(*Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMatcher(m Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithSyncTimeout bounds syncs started by a connectivity transition.
func WithSyncTimeout(d time.Duration) Option {
	return func(e *Engine) { e.syncTimeout = d }
}

// Engine serves one entity collection from the server when reachable and
// from the local snapshot otherwise, queueing writes it could not deliver.
//
// mu guards the snapshot and queues and is never held across a remote
// call. syncMu serializes replays.
type Engine struct {
	name        string
	remote      Remote
	store       Store
	monitor     *Monitor
	logger      *log.Logger
	now         func() time.Time
	matcher     Matcher
	syncTimeout time.Duration

	mu       sync.Mutex
	cache    []Entity
	queue    []*Action
	rejected []*Action
	aliases  map[string]string
	seq      uint64
	syncing  bool
	lastSync time.Time

	syncMu      sync.Mutex
	completed   listeners[SyncResult]
	unsubscribe func()
}

// NewEngine loads the persisted snapshot and queue for name and
// subscribes to monitor so that going online replays the queue.
func NewEngine(name string, remote Remote, store Store, monitor *Monitor, opts ...Option) (*Engine, error) {
	if monitor == nil {
		monitor = NewMonitor(true)
	}
	e := &Engine{
		name:    name,
		remote:  remote,
		store:   store,
		monitor: monitor,
		logger:  log.Default(),
		now:     time.Now,
		matcher: matchAll,
		aliases: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := loadJSON(store, cacheKey(name), &e.cache); err != nil {
		return nil, err
	}
	if err := loadJSON(store, pendingKey(name), &e.queue); err != nil {
		return nil, err
	}
	if err := loadJSON(store, rejectedKey(name), &e.rejected); err != nil {
		return nil, err
	}

	e.unsubscribe = monitor.Subscribe(e.onConnectivity)
	return e, nil
}

func (e *Engine) Name() string { return e.name }

// Close detaches the engine from its monitor.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// OnSyncComplete registers fn to run after every replay batch.
func (e *Engine) OnSyncComplete(fn func(SyncResult)) (unsubscribe func()) {
	return e.completed.add(fn)
}

func (e *Engine) onConnectivity(online bool) {
	if !online {
		e.logf("offline, writes will be queued")
		return
	}
	ctx := context.Background()
	if e.syncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.syncTimeout)
		defer cancel()
	}
	if _, err := e.Sync(ctx); err != nil && !errors.Is(err, ErrOffline) {
		e.logf("sync after reconnect: %v", err)
	}
}

// List returns the collection. Online, the server answer is merged into
// the snapshot (replacing it for an unfiltered query); otherwise the
// snapshot is filtered through the engine's matcher.
func (e *Engine) List(ctx context.Context, query url.Values) ([]Entity, error) {
	if e.monitor.Online() {
		items, err := e.remote.List(ctx, query)
		if err == nil {
			e.mu.Lock()
			defer e.mu.Unlock()

			merged, view := e.overlayPending(items, query)
			next := e.cache
			if len(query) == 0 {
				next = e.retainPending(merged)
			} else {
				for _, m := range merged {
					next = upsertEntity(next, EntityID(m), m)
				}
			}
			if err := e.commitCache(next); err != nil {
				return nil, err
			}
			return cloneEntities(view), nil
		}
		e.logf("list failed, serving cache: %v", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	match := e.matcher(query)
	out := make([]Entity, 0, len(e.cache))
	for _, c := range e.cache {
		if match(c) {
			out = append(out, cloneEntity(c))
		}
	}
	return out, nil
}

// overlayPending applies queued local writes on top of a server listing
// so that a refresh never resurrects or reverts unsynced work. merged is
// the server listing with pending updates applied, for the snapshot.
// view is what the caller sees: entities carrying local state must pass
// the query's matcher, and locally edited or created entities the server
// did not return are added when they match.
func (e *Engine) overlayPending(items []Entity, query url.Values) (merged, view []Entity) {
	last := lastActionTypes(e.queue)
	match := e.matcher(query)

	returned := make(map[string]bool, len(items))
	merged = make([]Entity, 0, len(items))
	view = make([]Entity, 0, len(items))
	for _, it := range items {
		id := EntityID(it)
		returned[id] = true
		switch last[id] {
		case ActionDelete:
			continue
		case ActionUpdate:
			local := merge(it, pendingPatch(e.queue, id))
			local[IDKey] = id
			local[OfflineFlag] = true
			merged = append(merged, local)
			if match(local) {
				view = append(view, local)
			}
			continue
		}
		merged = append(merged, it)
		view = append(view, it)
	}

	for _, c := range e.cache {
		id := EntityID(c)
		if returned[id] {
			continue
		}
		switch {
		case IsLocalID(id) && last[id] == ActionCreate,
			!IsLocalID(id) && last[id] == ActionUpdate:
			if match(c) {
				view = append(view, c)
			}
		}
	}
	return merged, view
}

// retainPending returns merged plus every cached entity that still has
// queued writes, so replacing the snapshot keeps their local state.
// Called with mu held.
func (e *Engine) retainPending(merged []Entity) []Entity {
	next := merged
	for _, c := range e.cache {
		id := EntityID(c)
		if hasActionFor(e.queue, id) && indexOfEntity(next, id) < 0 {
			next = append(next, c)
		}
	}
	return next
}

// Get returns one entity, preferring the server.
func (e *Engine) Get(ctx context.Context, id string) (Entity, error) {
	e.mu.Lock()
	id = e.resolve(id)
	pending := hasActionFor(e.queue, id)
	e.mu.Unlock()

	if e.monitor.Online() && !IsLocalID(id) && !pending {
		item, err := e.remote.Get(ctx, id)
		switch {
		case err == nil:
			e.mu.Lock()
			defer e.mu.Unlock()
			if err := e.commitCache(upsertEntity(e.cache, id, item)); err != nil {
				return nil, err
			}
			return cloneEntity(item), nil
		case IsNotFound(err):
			e.mu.Lock()
			defer e.mu.Unlock()
			if err := e.commitCache(removeEntity(e.cache, id)); err != nil {
				return nil, err
			}
			return nil, ErrNotFound
		case IsRejected(err):
			return nil, err
		}
		e.logf("get %s failed, serving cache: %v", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if i := indexOfEntity(e.cache, id); i >= 0 {
		return cloneEntity(e.cache[i]), nil
	}
	return nil, ErrNotFound
}

// Create writes data to the server, or stores it under a local id and
// queues a CREATE when the server is unreachable. A rejected create is
// returned as an error and leaves no trace.
func (e *Engine) Create(ctx context.Context, data Entity) (Entity, error) {
	payload := wirePayload(data, false)

	if e.monitor.Online() {
		created, err := e.remote.Create(ctx, payload)
		if err == nil {
			e.mu.Lock()
			defer e.mu.Unlock()
			if err := e.commitCache(upsertEntity(e.cache, EntityID(created), created)); err != nil {
				return nil, err
			}
			return cloneEntity(created), nil
		}
		if IsRejected(err) {
			return nil, err
		}
		e.logf("create failed, queueing: %v", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.seq++
	id := newLocalID(now, e.seq)
	entity := merge(payload, Entity{IDKey: id, OfflineFlag: true})

	if err := e.commitQueue(appendAction(e.queue, newAction(ActionCreate, id, payload, now))); err != nil {
		return nil, err
	}
	if err := e.commitCache(upsertEntity(e.cache, id, entity)); err != nil {
		return nil, err
	}
	return cloneEntity(entity), nil
}

// Update patches an entity. Entities with queued writes, and every
// entity while offline, are patched locally and the merged entity is
// queued so per-entity order is preserved.
func (e *Engine) Update(ctx context.Context, id string, data Entity) (Entity, error) {
	patch := wirePayload(data, false)

	e.mu.Lock()
	id = e.resolve(id)
	if IsLocalID(id) {
		defer e.mu.Unlock()
		return e.reviseCreate(id, patch)
	}
	pending := hasActionFor(e.queue, id)
	e.mu.Unlock()

	if e.monitor.Online() && !pending {
		updated, err := e.remote.Update(ctx, id, patch)
		if err == nil {
			e.mu.Lock()
			defer e.mu.Unlock()
			if err := e.commitCache(upsertEntity(e.cache, id, updated)); err != nil {
				return nil, err
			}
			return cloneEntity(updated), nil
		}
		if IsRejected(err) {
			return nil, err
		}
		e.logf("update %s failed, queueing: %v", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	base := Entity{IDKey: id}
	if i := indexOfEntity(e.cache, id); i >= 0 {
		base = e.cache[i]
	}
	merged := merge(base, patch)
	merged[IDKey] = id
	merged[OfflineFlag] = true

	action := newAction(ActionUpdate, id, wirePayload(merged, true), e.now())
	if err := e.commitQueue(appendAction(e.queue, action)); err != nil {
		return nil, err
	}
	if err := e.commitCache(upsertEntity(e.cache, id, merged)); err != nil {
		return nil, err
	}
	return cloneEntity(merged), nil
}

// reviseCreate folds a patch for a not-yet-synced entity into its queued
// CREATE. Called with mu held.
func (e *Engine) reviseCreate(id string, patch Entity) (Entity, error) {
	a := pendingCreate(e.queue, id)
	if a == nil {
		return nil, ErrNotFound
	}

	revised := a.clone()
	revised.Payload = merge(a.Payload, patch)
	revised.Revision++

	base := Entity{IDKey: id}
	if i := indexOfEntity(e.cache, id); i >= 0 {
		base = e.cache[i]
	}
	merged := merge(base, patch)
	merged[IDKey] = id
	merged[OfflineFlag] = true

	if err := e.commitQueue(replaceAction(e.queue, a.ID, revised)); err != nil {
		return nil, err
	}
	if err := e.commitCache(upsertEntity(e.cache, id, merged)); err != nil {
		return nil, err
	}
	return cloneEntity(merged), nil
}

// Delete removes the entity from the snapshot immediately. It reports
// false only when the server rejected the delete.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	id = e.resolve(id)
	if IsLocalID(id) {
		defer e.mu.Unlock()
		return true, e.cancelCreate(id)
	}
	pending := hasActionFor(e.queue, id)
	e.mu.Unlock()

	if e.monitor.Online() && !pending {
		err := e.remote.Delete(ctx, id)
		if err == nil || IsNotFound(err) {
			e.mu.Lock()
			defer e.mu.Unlock()
			return true, e.commitCache(removeEntity(e.cache, id))
		}
		if IsRejected(err) {
			e.mu.Lock()
			defer e.mu.Unlock()
			if cerr := e.commitCache(removeEntity(e.cache, id)); cerr != nil {
				return false, cerr
			}
			return false, err
		}
		e.logf("delete %s failed, queueing: %v", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	action := newAction(ActionDelete, id, Entity{IDKey: id}, e.now())
	if err := e.commitQueue(appendAction(e.queue, action)); err != nil {
		return false, err
	}
	return true, e.commitCache(removeEntity(e.cache, id))
}

// cancelCreate drops every queued action for a local id: the server
// never learns about the entity. Called with mu held.
func (e *Engine) cancelCreate(id string) error {
	if hasActionFor(e.queue, id) {
		if err := e.commitQueue(removeActionsFor(e.queue, id)); err != nil {
			return err
		}
	}
	return e.commitCache(removeEntity(e.cache, id))
}

// Sync replays the queue in order. Each action is attempted at most once
// per call; successes leave the queue, retryable failures stay in place
// and hold back later actions for the same entity, rejections move to the
// rejected list. Actions that appear while replaying (new writes or
// follow-ups from reconciliation) are picked up in the same call. The
// completion listeners always run once the queue has been walked.
func (e *Engine) Sync(ctx context.Context) (*SyncResult, error) {
	if !e.monitor.Online() {
		return nil, ErrOffline
	}

	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	e.setSyncing(true)
	defer e.setSyncing(false)

	result := &SyncResult{Name: e.name}
	attempted := make(map[string]bool)
	blocked := make(map[string]bool)
	var storeErr error

replay:
	for ctx.Err() == nil {
		batch := e.unattempted(attempted)
		if len(batch) == 0 {
			break
		}
		for _, actionID := range batch {
			if ctx.Err() != nil {
				break replay
			}
			attempted[actionID] = true

			a := e.liveAction(actionID)
			if a == nil {
				continue
			}
			if blocked[a.EntityID] {
				result.Skipped++
				continue
			}

			result.Attempted++
			if err := e.replayOne(ctx, a, result, blocked); err != nil {
				storeErr = err
				break replay
			}
		}
	}

	e.mu.Lock()
	result.Remaining = len(e.queue)
	e.mu.Unlock()

	if storeErr == nil && result.Attempted > 0 && result.Remaining == 0 && ctx.Err() == nil {
		storeErr = e.refresh(ctx, result)
	}

	result.FinishedAt = e.now()
	e.mu.Lock()
	e.lastSync = result.FinishedAt
	e.mu.Unlock()

	if result.Attempted > 0 {
		e.logf("sync finished: %d ok, %d failed, %d rejected, %d remaining",
			result.Succeeded, result.Failed, len(result.Rejected), result.Remaining)
	}
	e.completed.emit(*result)
	return result, storeErr
}

// refresh reloads the snapshot after the queue drained completely.
func (e *Engine) refresh(ctx context.Context, result *SyncResult) error {
	items, err := e.remote.List(ctx, nil)
	if err != nil {
		e.logf("refresh after sync failed: %v", err)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) > 0 {
		return nil
	}
	if err := e.commitCache(items); err != nil {
		return err
	}
	result.Refreshed = true
	return nil
}

func (e *Engine) unattempted(attempted map[string]bool) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ids []string
	for _, a := range e.queue {
		if !attempted[a.ID] {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func (e *Engine) liveAction(id string) *Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := indexOfAction(e.queue, id); i >= 0 {
		return e.queue[i].clone()
	}
	return nil
}

// replayOne sends a single action. The returned error is a local store
// failure; remote failures are recorded on the action and in result.
func (e *Engine) replayOne(ctx context.Context, a *Action, result *SyncResult, blocked map[string]bool) error {
	switch a.Type {
	case ActionCreate:
		created, err := e.remote.Create(ctx, a.Payload)
		if err != nil {
			return e.recordFailure(a, err, result, blocked)
		}
		return e.reconcileCreate(a, created, result)

	case ActionUpdate:
		updated, err := e.remote.Update(ctx, a.EntityID, a.Payload)
		if err != nil {
			return e.recordFailure(a, err, result, blocked)
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		queue := removeAction(e.queue, a.ID)
		if err := e.commitQueue(queue); err != nil {
			return err
		}
		result.Succeeded++
		if updated != nil && !hasActionFor(queue, a.EntityID) {
			return e.commitCache(upsertEntity(e.cache, a.EntityID, updated))
		}
		return nil

	case ActionDelete:
		if err := e.remote.Delete(ctx, a.EntityID); err != nil && !IsNotFound(err) {
			return e.recordFailure(a, err, result, blocked)
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if err := e.commitQueue(removeAction(e.queue, a.ID)); err != nil {
			return err
		}
		result.Succeeded++
		return nil
	}

	return e.recordFailure(a, fmt.Errorf("unknown action type %q", a.Type), result, blocked)
}

// reconcileCreate swaps the local id for the server id. The live action
// may have changed while the request was in flight: a local delete
// removes it, a local edit bumps its revision.
func (e *Engine) reconcileCreate(sent *Action, created Entity, result *SyncResult) error {
	serverID := EntityID(created)
	localID := sent.EntityID

	e.mu.Lock()
	defer e.mu.Unlock()

	result.Succeeded++
	e.aliases[localID] = serverID

	var live *Action
	if i := indexOfAction(e.queue, sent.ID); i >= 0 {
		live = e.queue[i]
	}

	switch {
	case live == nil:
		del := newAction(ActionDelete, serverID, Entity{IDKey: serverID}, e.now())
		return e.commitQueue(appendAction(e.queue, del))

	case live.Revision != sent.Revision:
		conv := live.clone()
		conv.ID = uuid.New().String()
		conv.Type = ActionUpdate
		conv.EntityID = serverID
		conv.Payload = merge(live.Payload, Entity{IDKey: serverID})
		conv.Revision = 0
		conv.Attempts = 0
		conv.LastError = ""

		queue := remapEntity(replaceAction(e.queue, sent.ID, conv), localID, serverID)
		if err := e.commitQueue(queue); err != nil {
			return err
		}

		local := cloneEntity(created)
		if i := indexOfEntity(e.cache, localID); i >= 0 {
			local = merge(created, e.cache[i])
		}
		local[IDKey] = serverID
		local[OfflineFlag] = true
		return e.commitCache(swapEntity(e.cache, localID, serverID, local))

	default:
		queue := remapEntity(removeAction(e.queue, sent.ID), localID, serverID)
		if err := e.commitQueue(queue); err != nil {
			return err
		}
		return e.commitCache(swapEntity(e.cache, localID, serverID, cloneEntity(created)))
	}
}

func (e *Engine) recordFailure(a *Action, cause error, result *SyncResult, blocked map[string]bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if IsRejected(cause) {
		rej := a.clone()
		rej.Attempts++
		rej.LastError = cause.Error()
		result.Rejected = append(result.Rejected, rej)
		e.logf("%s %s rejected: %v", a.Type, a.EntityID, cause)

		queue := removeAction(e.queue, a.ID)
		cache := e.cache
		if a.Type == ActionCreate {
			queue = removeActionsFor(queue, a.EntityID)
			cache = removeEntity(cache, a.EntityID)
		}
		if err := e.commitRejected(append(cloneActions(e.rejected), rej)); err != nil {
			return err
		}
		if err := e.commitQueue(queue); err != nil {
			return err
		}
		return e.commitCache(cache)
	}

	result.Failed++
	blocked[a.EntityID] = true
	e.logf("%s %s failed, will retry: %v", a.Type, a.EntityID, cause)

	i := indexOfAction(e.queue, a.ID)
	if i < 0 {
		return nil
	}
	retry := e.queue[i].clone()
	retry.Attempts++
	retry.LastError = cause.Error()
	return e.commitQueue(replaceAction(e.queue, a.ID, retry))
}

// Pending returns a copy of the queue in replay order.
func (e *Engine) Pending() []*Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneActions(e.queue)
}

// Rejected returns the actions the server refused during replay.
func (e *Engine) Rejected() []*Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneActions(e.rejected)
}

// DiscardRejected empties the rejected list.
func (e *Engine) DiscardRejected() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitRejected(nil)
}

// Snapshot returns the cached collection without consulting the server.
func (e *Engine) Snapshot() []Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneEntities(e.cache)
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Name:     e.name,
		Online:   e.monitor.Online(),
		Pending:  len(e.queue),
		Rejected: len(e.rejected),
		Syncing:  e.syncing,
		LastSync: e.lastSync,
	}
}

func (e *Engine) setSyncing(v bool) {
	e.mu.Lock()
	e.syncing = v
	e.mu.Unlock()
}

// resolve maps a local id that has since been synced to its server id.
// Called with mu held.
func (e *Engine) resolve(id string) string {
	if serverID, ok := e.aliases[id]; ok {
		return serverID
	}
	return id
}

// commitQueue persists q and then makes it current. Called with mu held.
func (e *Engine) commitQueue(q []*Action) error {
	if q == nil {
		q = []*Action{}
	}
	if err := saveJSON(e.store, pendingKey(e.name), q); err != nil {
		return err
	}
	e.queue = q
	return nil
}

func (e *Engine) commitCache(c []Entity) error {
	if c == nil {
		c = []Entity{}
	}
	if err := saveJSON(e.store, cacheKey(e.name), c); err != nil {
		return err
	}
	e.cache = c
	return nil
}

func (e *Engine) commitRejected(r []*Action) error {
	if r == nil {
		r = []*Action{}
	}
	if err := saveJSON(e.store, rejectedKey(e.name), r); err != nil {
		return err
	}
	e.rejected = r
	return nil
}

func (e *Engine) logf(format string, args ...interface{}) {
	e.logger.Printf("[sync:%s] "+format, append([]interface{}{e.name}, args...)...)
}

func appendAction(list []*Action, a *Action) []*Action {
	return append(list[:len(list):len(list)], a)
}

func removeActionsFor(list []*Action, entityID string) []*Action {
	out := make([]*Action, 0, len(list))
	for _, a := range list {
		if a.EntityID != entityID {
			out = append(out, a)
		}
	}
	return out
}

// remapEntity points queued actions for oldID at newID.
func remapEntity(list []*Action, oldID, newID string) []*Action {
	out := make([]*Action, len(list))
	for i, a := range list {
		if a.EntityID != oldID {
			out[i] = a
			continue
		}
		c := a.clone()
		c.EntityID = newID
		if _, ok := c.Payload[IDKey]; ok {
			c.Payload[IDKey] = newID
		}
		out[i] = c
	}
	return out
}

// swapEntity replaces the entity under oldID with e (keeping its
// position) and drops any stale copy already stored under newID.
func swapEntity(list []Entity, oldID, newID string, e Entity) []Entity {
	out := removeEntity(list, newID)
	if i := indexOfEntity(out, oldID); i >= 0 {
		out[i] = e
		return out
	}
	return append(out, e)
}
