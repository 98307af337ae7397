package offline

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/domain"
	"taskdeck/internal/localstore"
)

type fakeTags struct {
	tags []string
	err  error
}

func (f fakeTags) KnowledgeTags(context.Context) ([]string, error) { return f.tags, f.err }

func newKnowledgeHarness(t *testing.T, tags TagSource, seed ...Entity) (*KnowledgeBase, *fakeRemote, *Monitor) {
	t.Helper()
	remote := newFakeRemote(seed...)
	remote.matcher = KnowledgeMatcher
	monitor := NewMonitor(true)
	kb, err := NewKnowledgeBase(remote, tags, localstore.NewMemory(), monitor, WithLogger(quietLogger))
	require.NoError(t, err)
	t.Cleanup(kb.Close)
	return kb, remote, monitor
}

func titles(list []Entity) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e["title"].(string))
	}
	return out
}

func TestKnowledgeBase_OfflineSearchMatchesServer(t *testing.T) {
	kb, _, monitor := newKnowledgeHarness(t, nil,
		Entity{"id": "k1", "title": "Deploy guide", "content": "kubectl apply", "category": "documentation", "status": "published", "tags": []interface{}{"ops"}},
		Entity{"id": "k2", "title": "Old runbook", "content": "ssh into box", "category": "documentation", "status": "archived", "tags": []interface{}{"ops"}},
		Entity{"id": "k3", "title": "Idea", "content": "Deploy on Fridays", "category": "note", "status": "draft"},
	)
	ctx := context.Background()

	list, err := kb.List(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Deploy guide", "Idea"}, titles(list))

	archived, err := kb.Search(ctx, domain.KnowledgeFilter{Status: "archived"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Old runbook"}, titles(archived))
	require.Len(t, kb.Snapshot(), 3, "filtered listings merge into the snapshot")

	monitor.Set(false)

	cases := []struct {
		name   string
		filter domain.KnowledgeFilter
		want   []string
	}{
		{"default hides archived", domain.KnowledgeFilter{}, []string{"Deploy guide", "Idea"}},
		{"explicit archived", domain.KnowledgeFilter{Status: "archived"}, []string{"Old runbook"}},
		{"tag", domain.KnowledgeFilter{Tag: "ops"}, []string{"Deploy guide"}},
		{"search is case-insensitive over content", domain.KnowledgeFilter{Search: "deploy"}, []string{"Deploy guide", "Idea"}},
		{"category", domain.KnowledgeFilter{Category: "note"}, []string{"Idea"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := kb.Search(ctx, tc.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.want, titles(got))
		})
	}
}

func TestKnowledgeBase_OfflineCreatesAreSearchable(t *testing.T) {
	kb, _, monitor := newKnowledgeHarness(t, nil)
	monitor.Set(false)
	ctx := context.Background()

	_, err := kb.Create(ctx, Entity{"title": "Retro notes", "content": "", "category": "meeting", "status": "draft", "tags": []string{"team"}})
	require.NoError(t, err)

	got, err := kb.List(ctx, url.Values{"tag": {"team"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Retro notes"}, titles(got))
}

func TestKnowledgeBase_Tags(t *testing.T) {
	seed := []Entity{
		{"id": "k1", "title": "a", "tags": []interface{}{"ops", "go"}},
		{"id": "k2", "title": "b", "tags": []interface{}{"go"}},
	}

	kb, _, monitor := newKnowledgeHarness(t, fakeTags{tags: []string{"from-server"}}, seed...)
	ctx := context.Background()

	tags, err := kb.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"from-server"}, tags)

	_, err = kb.List(ctx, nil)
	require.NoError(t, err)

	monitor.Set(false)
	tags, err = kb.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "ops"}, tags)

	failing, _, _ := newKnowledgeHarness(t, fakeTags{err: errors.New("timeout")})
	tags, err = failing.Tags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

// queueUpdatesOffline edits entries while offline and reconnects with
// every PUT failing, so the edits stay queued.
func queueUpdatesOffline(t *testing.T, kb *KnowledgeBase, remote *fakeRemote, monitor *Monitor, edits map[string]Entity) {
	t.Helper()
	ctx := context.Background()

	monitor.Set(false)
	for id, patch := range edits {
		_, err := kb.Update(ctx, id, patch)
		require.NoError(t, err)
	}

	remote.fail = func(method, id string, data Entity) error {
		if method == "PUT" {
			return &statusError{code: 500}
		}
		return nil
	}
	monitor.Set(true)
	require.Len(t, kb.Pending(), len(edits))
}

func TestKnowledgeBase_PendingArchiveHiddenOnline(t *testing.T) {
	kb, remote, monitor := newKnowledgeHarness(t, nil,
		Entity{"id": "k1", "title": "Deploy guide", "content": "", "category": "documentation", "status": "published"},
	)
	ctx := context.Background()

	_, err := kb.List(ctx, nil)
	require.NoError(t, err)

	queueUpdatesOffline(t, kb, remote, monitor, map[string]Entity{"k1": {"status": "archived"}})

	online, err := kb.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, online)

	archived, err := kb.Search(ctx, domain.KnowledgeFilter{Status: "archived"})
	require.NoError(t, err)
	require.Equal(t, []string{"Deploy guide"}, titles(archived))
	assert.True(t, IsOffline(archived[0]))

	require.Len(t, kb.Snapshot(), 1, "queued edits keep their entity in the snapshot")

	monitor.Set(false)
	offline, err := kb.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, offline)
}

func TestKnowledgeBase_PendingEditMatchesFilterOnline(t *testing.T) {
	kb, remote, monitor := newKnowledgeHarness(t, nil,
		Entity{"id": "k1", "title": "Standup", "content": "", "category": "documentation", "status": "published"},
	)
	ctx := context.Background()

	_, err := kb.List(ctx, nil)
	require.NoError(t, err)

	queueUpdatesOffline(t, kb, remote, monitor, map[string]Entity{"k1": {"category": "meeting"}})

	meetings, err := kb.Search(ctx, domain.KnowledgeFilter{Category: "meeting"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Standup"}, titles(meetings), "server still has the old category")

	docs, err := kb.Search(ctx, domain.KnowledgeFilter{Category: "documentation"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestKnowledgeBase_PendingEditWithoutCachedCopy(t *testing.T) {
	kb, remote, monitor := newKnowledgeHarness(t, nil,
		Entity{"id": "k1", "title": "Deploy guide", "content": "kubectl apply", "category": "documentation", "status": "published"},
	)
	ctx := context.Background()

	queueUpdatesOffline(t, kb, remote, monitor, map[string]Entity{"k1": {"status": "draft"}})

	list, err := kb.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Deploy guide", list[0]["title"])
	assert.Equal(t, "kubectl apply", list[0]["content"])
	assert.Equal(t, "draft", list[0]["status"])

	snapshot := kb.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Deploy guide", snapshot[0]["title"])
}
