// Package posts implements the post lifecycle: creation, partial updates,
// the draft/live state machine, ownership enforcement and the public
// query/pagination surface.
package posts

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"inkwell/domain"
	"inkwell/sanitize"
	"inkwell/slug"
)

// DefaultLimit is the page size used when the client sends none.
const DefaultLimit = 10

// Store is the persistence surface the service needs. Implemented by
// store.DB (SQLite) and store.Memory.
type Store interface {
	CreatePost(ctx context.Context, p *domain.Post) error
	UpdatePost(ctx context.Context, p *domain.Post) error
	DeletePost(ctx context.Context, id string) error
	PostByID(ctx context.Context, id string) (*domain.Post, error)
	PublishedBySlug(ctx context.Context, slug string) (*domain.Post, error)
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
	ListPublished(ctx context.Context, f domain.PostFilter) ([]*domain.Post, int, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Post, error)
	DistinctTags(ctx context.Context) ([]string, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Content formats accepted from clients. HTML is the default; markdown is
// rendered server-side before sanitization.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

type CreateInput struct {
	Title         string
	AuthorName    string
	Slug          string
	CoverImage    string
	Tags          []string
	Content       string
	ContentFormat string
	Excerpt       string
	Published     bool
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	Title         *string
	AuthorName    *string
	CoverImage    *string
	Tags          *[]string
	Content       *string
	ContentFormat string
	Excerpt       *string
	Published     *bool
}

// Create validates input, sanitizes content, reserves a unique slug and
// persists the post. The post starts Live only when Published is set, in
// which case PublishedAt is stamped.
func (s *Service) Create(ctx context.Context, in CreateInput, ownerID string) (*domain.Post, error) {
	if err := validTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validAuthorName(in.AuthorName); err != nil {
		return nil, err
	}
	if err := validContent(in.Content); err != nil {
		return nil, err
	}
	if err := validCoverImage(in.CoverImage); err != nil {
		return nil, err
	}

	content, err := renderContent(in.Content, in.ContentFormat)
	if err != nil {
		return nil, err
	}

	base := in.Slug
	if base == "" {
		base = in.Title
	}
	candidate := slug.Slugify(base)
	if candidate == "" {
		return nil, domain.Invalid("title", "yields an empty slug")
	}
	final, err := slug.Unique(ctx, func(ctx context.Context, probe string) (bool, error) {
		return s.store.SlugTaken(ctx, probe, "")
	}, candidate)
	if err != nil {
		return nil, err
	}

	p := &domain.Post{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(in.Title),
		Slug:       final,
		AuthorName: strings.TrimSpace(in.AuthorName),
		OwnerID:    ownerID,
		CoverImage: in.CoverImage,
		Tags:       cleanTags(in.Tags),
		Content:    content,
		Published:  in.Published,
	}
	p.Excerpt = deriveExcerpt(in.Excerpt, content)
	if in.Published {
		now := s.now()
		p.PublishedAt = &now
	}

	// A concurrent creator racing on the same base slug loses at the unique
	// index and surfaces as a conflict.
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update applies a partial patch to an owned post. The slug is sticky: it
// never changes here, even when the title does. Publishing a draft stamps
// PublishedAt only when it is currently unset; unpublishing always clears it.
func (s *Service) Update(ctx context.Context, id string, patch Patch, requesterID string) (*domain.Post, error) {
	p, err := s.store.PostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Editable(requesterID) {
		return nil, domain.ErrForbidden
	}

	if patch.Title != nil {
		if err := validTitle(*patch.Title); err != nil {
			return nil, err
		}
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.AuthorName != nil {
		if err := validAuthorName(*patch.AuthorName); err != nil {
			return nil, err
		}
		p.AuthorName = strings.TrimSpace(*patch.AuthorName)
	}
	if patch.CoverImage != nil {
		if err := validCoverImage(*patch.CoverImage); err != nil {
			return nil, err
		}
		p.CoverImage = *patch.CoverImage
	}
	if patch.Tags != nil {
		p.Tags = cleanTags(*patch.Tags)
	}
	if patch.Content != nil {
		if err := validContent(*patch.Content); err != nil {
			return nil, err
		}
		content, err := renderContent(*patch.Content, patch.ContentFormat)
		if err != nil {
			return nil, err
		}
		p.Content = content
	}
	if patch.Excerpt != nil {
		p.Excerpt = sanitize.Excerpt(*patch.Excerpt)
	}
	if p.Excerpt == "" && p.Content != "" {
		p.Excerpt = sanitize.Excerpt(p.Content)
	}

	if patch.Published != nil {
		if *patch.Published {
			if p.PublishedAt == nil {
				now := s.now()
				p.PublishedAt = &now
			}
		} else {
			p.PublishedAt = nil
		}
		p.Published = *patch.Published
	}

	if err := s.store.UpdatePost(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes an owned post for good. No tombstones.
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	p, err := s.store.PostByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.Editable(requesterID) {
		return domain.ErrForbidden
	}
	return s.store.DeletePost(ctx, id)
}

// GetForEdit returns the full record, drafts included, to its owner.
func (s *Service) GetForEdit(ctx context.Context, id, requesterID string) (*domain.Post, error) {
	p, err := s.store.PostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Editable(requesterID) {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

func validTitle(title string) error {
	if utf8.RuneCountInString(strings.TrimSpace(title)) < 3 {
		return domain.Invalid("title", "must be at least 3 characters")
	}
	return nil
}

func validAuthorName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < 2 {
		return domain.Invalid("authorName", "must be at least 2 characters")
	}
	return nil
}

// validContent checks the raw, pre-sanitization length.
func validContent(content string) error {
	if utf8.RuneCountInString(content) < 10 {
		return domain.Invalid("content", "must be at least 10 characters")
	}
	return nil
}

func validCoverImage(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return domain.Invalid("coverImage", "must be a valid http(s) URL")
	}
	return nil
}

func renderContent(raw, format string) (string, error) {
	switch format {
	case "", FormatHTML:
		return sanitize.HTML(raw), nil
	case FormatMarkdown:
		return sanitize.Markdown(raw), nil
	default:
		return "", domain.Invalid("contentFormat", "must be html or markdown")
	}
}

func deriveExcerpt(supplied, content string) string {
	if supplied != "" {
		return sanitize.Excerpt(supplied)
	}
	return sanitize.Excerpt(content)
}

func cleanTags(tags []string) []string {
	out := []string{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
