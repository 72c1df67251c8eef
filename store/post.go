package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inkwell/domain"
)

const postColumns = `id, title, slug, author_name, owner_id, cover_image, content, excerpt, published, published_at, created_at, updated_at`

const postColumnsP = `p.id, p.title, p.slug, p.author_name, p.owner_id, p.cover_image, p.content, p.excerpt, p.published, p.published_at, p.created_at, p.updated_at`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CreatePost inserts the post and its tags in one transaction and stamps
// CreatedAt/UpdatedAt. A duplicate slug maps to domain.ErrConflict.
func (d *DB) CreatePost(ctx context.Context, p *domain.Post) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Title, p.Slug, p.AuthorName, nullString(p.OwnerID), p.CoverImage,
		p.Content, p.Excerpt, p.Published, nullTime(p.PublishedAt), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert post %q: %w", p.Slug, domain.ErrConflict)
		}
		return fmt.Errorf("insert post: %w", err)
	}

	if err := insertTags(ctx, tx, p.ID, p.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdatePost replaces the stored row and tag set and stamps UpdatedAt.
func (d *DB) UpdatePost(ctx context.Context, p *domain.Post) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	p.UpdatedAt = time.Now().UTC()

	res, err := tx.ExecContext(ctx,
		`UPDATE posts SET title = ?, slug = ?, author_name = ?, cover_image = ?,
		        content = ?, excerpt = ?, published = ?, published_at = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Slug, p.AuthorName, p.CoverImage,
		p.Content, p.Excerpt, p.Published, nullTime(p.PublishedAt), p.UpdatedAt, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update post %q: %w", p.Slug, domain.ErrConflict)
		}
		return fmt.Errorf("update post: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	if err := insertTags(ctx, tx, p.ID, p.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTags(ctx context.Context, tx *sql.Tx, postID string, tags []string) error {
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, position, tag) VALUES (?,?,?)`, postID, i, tag); err != nil {
			return fmt.Errorf("insert tag %q: %w", tag, err)
		}
	}
	return nil
}

func (d *DB) DeletePost(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	_, err = d.db.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post tags: %w", err)
	}
	return nil
}

func (d *DB) PostByID(ctx context.Context, id string) (*domain.Post, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return d.scanPost(ctx, row)
}

// PublishedBySlug is the public lookup path; drafts are invisible here.
func (d *DB) PublishedBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug = ? AND published = 1`, slug)
	return d.scanPost(ctx, row)
}

// SlugTaken probes for a conflicting slug, ignoring the post excludeID so an
// update can keep its own slug.
func (d *DB) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var taken bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = ? AND id <> ?)`, slug, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("probe slug: %w", err)
	}
	return taken, nil
}

// ListPublished returns one page of published posts plus the unpaginated
// total. Tag filtering is a case-insensitive exact match; search is a
// case-insensitive substring match on title or any tag. Sorted by
// published_at descending with id descending as the tiebreaker.
func (d *DB) ListPublished(ctx context.Context, f domain.PostFilter) ([]*domain.Post, int, error) {
	where := `FROM posts p WHERE p.published = 1
	  AND (? = '' OR EXISTS (SELECT 1 FROM post_tags t WHERE t.post_id = p.id AND t.tag = ? COLLATE NOCASE))
	  AND (? = '' OR p.title LIKE '%' || ? || '%'
	       OR EXISTS (SELECT 1 FROM post_tags t2 WHERE t2.post_id = p.id AND t2.tag LIKE '%' || ? || '%'))`
	args := []any{f.Tag, f.Tag, f.Search, f.Search, f.Search}

	var total int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+postColumnsP+` `+where+` ORDER BY p.published_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts, err := d.collectPosts(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListByOwner returns all of a user's posts, drafts included, most recently
// updated first.
func (d *DB) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Post, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE owner_id = ? ORDER BY updated_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list posts by owner: %w", err)
	}
	defer rows.Close()
	return d.collectPosts(ctx, rows)
}

// DistinctTags lists every tag on a published post, case-insensitively
// sorted. Casing variants of the same tag are distinct values, as stored.
func (d *DB) DistinctTags(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT DISTINCT t.tag FROM post_tags t
		 JOIN posts p ON p.id = t.post_id
		 WHERE p.published = 1
		 ORDER BY t.tag COLLATE NOCASE, t.tag`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostRow(row rowScanner) (*domain.Post, error) {
	p := &domain.Post{}
	var owner sql.NullString
	var publishedAt sql.NullTime
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.AuthorName, &owner, &p.CoverImage,
		&p.Content, &p.Excerpt, &p.Published, &publishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.OwnerID = owner.String
	if publishedAt.Valid {
		t := publishedAt.Time
		p.PublishedAt = &t
	}
	return p, nil
}

func (d *DB) scanPost(ctx context.Context, row rowScanner) (*domain.Post, error) {
	p, err := scanPostRow(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	if err := d.loadTags(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *DB) collectPosts(ctx context.Context, rows *sql.Rows) ([]*domain.Post, error) {
	posts := []*domain.Post{}
	for rows.Next() {
		p, err := scanPostRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	for _, p := range posts {
		if err := d.loadTags(ctx, p); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (d *DB) loadTags(ctx context.Context, p *domain.Post) error {
	rows, err := d.db.QueryContext(ctx,
		`SELECT tag FROM post_tags WHERE post_id = ? ORDER BY position`, p.ID)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()
	p.Tags = []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		p.Tags = append(p.Tags, tag)
	}
	return rows.Err()
}
