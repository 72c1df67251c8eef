package posts

import (
	"context"
	"strings"

	"inkwell/domain"
)

// Page is one slice of the public feed.
type Page struct {
	Items   []*domain.Post
	Page    int
	Limit   int
	Total   int
	HasMore bool
}

// List returns published posts matching the filter, newest first
// (publishedAt descending, id descending as the tiebreaker, which keeps
// pagination stable across identical timestamps). Non-positive page/limit
// fall back to defaults.
func (s *Service) List(ctx context.Context, f domain.PostFilter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Tag = strings.TrimSpace(f.Tag)

	items, total, err := s.store.ListPublished(ctx, f)
	if err != nil {
		return nil, err
	}
	skip := (f.Page - 1) * f.Limit
	return &Page{
		Items:   items,
		Page:    f.Page,
		Limit:   f.Limit,
		Total:   total,
		HasMore: skip+len(items) < total,
	}, nil
}

// GetBySlug is the public detail lookup. Drafts are invisible.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	return s.store.PublishedBySlug(ctx, slug)
}

// Tags lists every distinct tag across published posts, sorted
// case-insensitively.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	return s.store.DistinctTags(ctx)
}

// ListMine returns all of the caller's posts, drafts included.
func (s *Service) ListMine(ctx context.Context, ownerID string) ([]*domain.Post, error) {
	return s.store.ListByOwner(ctx, ownerID)
}
