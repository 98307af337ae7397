package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// KnowledgeFields is the part of a knowledge entry a KnowledgeFilter
// inspects. Both the server's typed entries and the client's cached
// maps are projected onto it.
type KnowledgeFields struct {
	Title    string
	Content  string
	Category string
	Status   string
	Tags     []string
}

// KnowledgeFilter is the single definition of knowledge listing
// semantics. The repository turns it into a Mango selector; the offline
// cache evaluates Matches directly.
//
//   - Category: exact match when set.
//   - Status: exact match when set, otherwise anything but archived.
//   - Tag: entry must carry the tag.
//   - Search: case-insensitive substring of title or content.
type KnowledgeFilter struct {
	Category string
	Status   string
	Tag      string
	Search   string
}

func KnowledgeFilterFromQuery(q url.Values) KnowledgeFilter {
	return KnowledgeFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Status:   strings.TrimSpace(q.Get("status")),
		Tag:      strings.TrimSpace(q.Get("tag")),
		Search:   strings.TrimSpace(q.Get("search")),
	}
}

// Query encodes the filter as the query string accepted by GET /knowledge.
func (f KnowledgeFilter) Query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

func (f KnowledgeFilter) IsZero() bool {
	return f == KnowledgeFilter{}
}

func (f KnowledgeFilter) Matches(e KnowledgeFields) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Status != "" {
		if e.Status != f.Status {
			return false
		}
	} else if e.Status == string(KnowledgeArchived) {
		return false
	}
	if f.Tag != "" && !containsString(e.Tags, f.Tag) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Title), needle) &&
			!strings.Contains(strings.ToLower(e.Content), needle) {
			return false
		}
	}
	return true
}

// Selector returns the Mango selector clauses for the filter. Callers
// add their own scoping clauses (doc_type, user_id).
func (f KnowledgeFilter) Selector() map[string]interface{} {
	sel := map[string]interface{}{}
	if f.Category != "" {
		sel["category"] = f.Category
	}
	if f.Status != "" {
		sel["status"] = f.Status
	} else {
		sel["status"] = map[string]interface{}{"$ne": string(KnowledgeArchived)}
	}
	if f.Tag != "" {
		sel["tags"] = map[string]interface{}{"$elemMatch": map[string]interface{}{"$eq": f.Tag}}
	}
	if f.Search != "" {
		pattern := "(?i)" + regexp.QuoteMeta(f.Search)
		sel["$or"] = []interface{}{
			map[string]interface{}{"title": map[string]interface{}{"$regex": pattern}},
			map[string]interface{}{"content": map[string]interface{}{"$regex": pattern}},
		}
	}
	return sel
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
