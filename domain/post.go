package domain

import (
	"time"
)

// Post is the authoritative record of a blog entry. Content holds sanitized
// HTML; Excerpt is a plain-text prefix derived from it unless the author
// supplied one. OwnerID is empty for legacy imports that predate user
// accounts; such posts are permanently read-only.
type Post struct {
	ID          string
	Title       string
	Slug        string
	AuthorName  string
	OwnerID     string
	CoverImage  string
	Tags        []string
	Content     string
	Excerpt     string
	Published   bool
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Editable reports whether userID may mutate the post.
// Ownerless posts are editable by nobody.
func (p *Post) Editable(userID string) bool {
	return p.OwnerID != "" && p.OwnerID == userID
}
