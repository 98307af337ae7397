package offline

import (
	"context"
	"net/url"
	"sort"

	"taskdeck/internal/domain"
)

// TagSource lists every tag in use on the server.
type TagSource interface {
	KnowledgeTags(ctx context.Context) ([]string, error)
}

// KnowledgeBase is an Engine for knowledge entries with the server's
// listing semantics replicated over the snapshot.
type KnowledgeBase struct {
	*Engine
	tags TagSource
}

func NewKnowledgeBase(remote Remote, tags TagSource, store Store, monitor *Monitor, opts ...Option) (*KnowledgeBase, error) {
	opts = append([]Option{WithMatcher(KnowledgeMatcher)}, opts...)
	engine, err := NewEngine("knowledge", remote, store, monitor, opts...)
	if err != nil {
		return nil, err
	}
	return &KnowledgeBase{Engine: engine, tags: tags}, nil
}

// Search lists entries matching f.
func (kb *KnowledgeBase) Search(ctx context.Context, f domain.KnowledgeFilter) ([]Entity, error) {
	return kb.List(ctx, f.Query())
}

// Tags returns the server's tag list, or the tags present in the
// snapshot when the server is unreachable.
func (kb *KnowledgeBase) Tags(ctx context.Context) ([]string, error) {
	if kb.tags != nil && kb.monitor.Online() {
		tags, err := kb.tags.KnowledgeTags(ctx)
		if err == nil {
			return tags, nil
		}
		kb.logf("tags failed, serving cache: %v", err)
	}

	seen := map[string]bool{}
	for _, e := range kb.Snapshot() {
		for _, t := range stringList(e["tags"]) {
			seen[t] = true
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// KnowledgeMatcher applies domain.KnowledgeFilter to cached entries.
func KnowledgeMatcher(query url.Values) func(Entity) bool {
	f := domain.KnowledgeFilterFromQuery(query)
	return func(e Entity) bool {
		return f.Matches(knowledgeFields(e))
	}
}

func knowledgeFields(e Entity) domain.KnowledgeFields {
	str := func(k string) string {
		s, _ := e[k].(string)
		return s
	}
	return domain.KnowledgeFields{
		Title:    str("title"),
		Content:  str("content"),
		Category: str("category"),
		Status:   str("status"),
		Tags:     stringList(e["tags"]),
	}
}

// stringList accepts both []string and the []interface{} produced by
// decoding JSON.
func stringList(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
