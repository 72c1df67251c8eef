package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"inkwell/domain"
)

// Memory is a map-backed store with the same behaviour as DB. It backs
// tests and makes the service layer exercisable without a database file.
type Memory struct {
	mu    sync.RWMutex
	posts map[string]*domain.Post
	users map[string]*domain.User
}

func NewMemory() *Memory {
	return &Memory{
		posts: map[string]*domain.Post{},
		users: map[string]*domain.User{},
	}
}

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	c.Tags = append([]string{}, p.Tags...)
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

func (m *Memory) CreatePost(_ context.Context, p *domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.posts {
		if other.Slug == p.Slug {
			return domain.ErrConflict
		}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.posts[p.ID] = clonePost(p)
	return nil
}

func (m *Memory) UpdatePost(_ context.Context, p *domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, other := range m.posts {
		if id != p.ID && other.Slug == p.Slug {
			return domain.ErrConflict
		}
	}
	p.UpdatedAt = time.Now().UTC()
	m.posts[p.ID] = clonePost(p)
	return nil
}

func (m *Memory) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *Memory) PostByID(_ context.Context, id string) (*domain.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePost(p), nil
}

func (m *Memory) PublishedBySlug(_ context.Context, slug string) (*domain.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.posts {
		if p.Slug == slug && p.Published {
			return clonePost(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) SlugTaken(_ context.Context, slug, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, p := range m.posts {
		if p.Slug == slug && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func matchesFilter(p *domain.Post, f domain.PostFilter) bool {
	if !p.Published {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, tag := range p.Tags {
			if strings.EqualFold(tag, f.Tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if strings.Contains(strings.ToLower(p.Title), needle) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	}
	return true
}

func (m *Memory) ListPublished(_ context.Context, f domain.PostFilter) ([]*domain.Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []*domain.Post{}
	for _, p := range m.posts {
		if matchesFilter(p, f) {
			matched = append(matched, clonePost(p))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		at, bt := publishedAtOrZero(a), publishedAtOrZero(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.ID > b.ID
	})

	total := len(matched)
	offset := (f.Page - 1) * f.Limit
	if offset >= total {
		return []*domain.Post{}, total, nil
	}
	end := offset + f.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func publishedAtOrZero(p *domain.Post) time.Time {
	if p.PublishedAt == nil {
		return time.Time{}
	}
	return *p.PublishedAt
}

func (m *Memory) ListByOwner(_ context.Context, ownerID string) ([]*domain.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mine := []*domain.Post{}
	for _, p := range m.posts {
		if p.OwnerID == ownerID {
			mine = append(mine, clonePost(p))
		}
	}
	sort.Slice(mine, func(i, j int) bool {
		a, b := mine[i], mine[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID > b.ID
	})
	return mine, nil
}

func (m *Memory) DistinctTags(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	tags := []string{}
	for _, p := range m.posts {
		if !p.Published {
			continue
		}
		for _, tag := range p.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		a, b := strings.ToLower(tags[i]), strings.ToLower(tags[j])
		if a != b {
			return a < b
		}
		return tags[i] < tags[j]
	})
	return tags, nil
}

func (m *Memory) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, other := range m.users {
		if other.Email == email {
			return domain.ErrConflict
		}
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Email = email
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}
