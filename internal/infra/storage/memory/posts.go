package memory

import (
	"context"
	"sync"

	domainpost "halfandhalf/internal/domain/post"
)

// PostRepository is an in-memory implementation used by tests and demo
// mode.
type PostRepository struct {
	mu    sync.RWMutex
	items map[string]*domainpost.Post
}

func NewPostRepository() *PostRepository {
	return &PostRepository{items: make(map[string]*domainpost.Post)}
}

func (r *PostRepository) ByID(ctx context.Context, id string) (*domainpost.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainpost.ErrNotFound
	}
	return clonePost(p), nil
}

func (r *PostRepository) ByOwner(ctx context.Context, ownerID string) ([]*domainpost.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainpost.Post
	for _, p := range r.items {
		if p.OwnerID == ownerID {
			out = append(out, clonePost(p))
		}
	}
	return out, nil
}

func (r *PostRepository) All(ctx context.Context) ([]*domainpost.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainpost.Post, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, clonePost(p))
	}
	return out, nil
}

func (r *PostRepository) Save(ctx context.Context, p *domainpost.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = clonePost(p)
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func clonePost(p *domainpost.Post) *domainpost.Post {
	if p == nil {
		return nil
	}
	copyPost := *p
	if p.Location != nil {
		loc := *p.Location
		copyPost.Location = &loc
	}
	return &copyPost
}
