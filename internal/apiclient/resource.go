package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"taskdeck/internal/offline"
)

// Resource is one REST collection exposed as an offline.Remote.
type Resource struct {
	client *Client
	path   string
}

var _ offline.Remote = (*Resource)(nil)

func (r *Resource) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r *Resource) List(ctx context.Context, query url.Values) ([]offline.Entity, error) {
	var out []offline.Entity
	if err := r.client.do(ctx, http.MethodGet, r.path, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource) Get(ctx context.Context, id string) (offline.Entity, error) {
	var out offline.Entity
	if err := r.client.do(ctx, http.MethodGet, r.item(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource) Create(ctx context.Context, data offline.Entity) (offline.Entity, error) {
	var out offline.Entity
	if err := r.client.do(ctx, http.MethodPost, r.path, nil, data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource) Update(ctx context.Context, id string, data offline.Entity) (offline.Entity, error) {
	var out offline.Entity
	if err := r.client.do(ctx, http.MethodPut, r.item(id), nil, data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource) Delete(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodDelete, r.item(id), nil, nil, nil)
}
