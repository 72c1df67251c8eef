package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"inkwell/domain"
)

// newTestDB opens an in-memory database with the migrated schema. A single
// connection keeps the pool from spawning fresh empty memory databases.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../db/migrations/000001_init.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return New(db)
}

func testPost(id, slug string) *domain.Post {
	return &domain.Post{
		ID:         id,
		Title:      "A Title",
		Slug:       slug,
		AuthorName: "Ada",
		OwnerID:    "u1",
		Content:    "<p>body</p>",
		Excerpt:    "body",
		Tags:       []string{"go", "web"},
	}
}

func TestCreateAndGetPost(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := context.Background()

	publishedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := testPost("p1", "a-title")
	p.Published = true
	p.PublishedAt = &publishedAt
	p.CoverImage = "https://example.com/c.png"

	require.NoError(t, d.CreatePost(ctx, p))
	assert.False(t, p.CreatedAt.IsZero(), "store stamps createdAt")

	got, err := d.PostByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "A Title", got.Title)
	assert.Equal(t, "a-title", got.Slug)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, "https://example.com/c.png", got.CoverImage)
	assert.Equal(t, []string{"go", "web"}, got.Tags, "tag order preserved")
	require.NotNil(t, got.PublishedAt)
	assert.True(t, got.PublishedAt.Equal(publishedAt))

	_, err = d.PostByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreatePost(ctx, testPost("p1", "same")))
	err := d.CreatePost(ctx, testPost("p2", "same"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdatePost(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := context.Background()

	p := testPost("p1", "a-title")
	require.NoError(t, d.CreatePost(ctx, p))

	p.Title = "Renamed"
	p.Tags = []string{"only"}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p.Published = true
	p.PublishedAt = &now
	require.NoError(t, d.UpdatePost(ctx, p))

	got, err := d.PostByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, []string{"only"}, got.Tags)
	assert.True(t, got.Published)
	require.NotNil(t, got.PublishedAt)

	// clearing publishedAt persists as NULL
	p.Published = false
	p.PublishedAt = nil
	require.NoError(t, d.UpdatePost(ctx, p))
	got, err = d.PostByID(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got.PublishedAt)

	missing := testPost("ghost", "ghost")
	assert.ErrorIs(t, d.UpdatePost(ctx, missing), domain.ErrNotFound)
}

func TestDeletePost(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreatePost(ctx, testPost("p1", "x")))
	require.NoError(t, d.DeletePost(ctx, "p1"))

	_, err := d.PostByID(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, d.DeletePost(ctx, "p1"), domain.ErrNotFound)
}

func TestSlugTaken(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.CreatePost(ctx, testPost("p1", "taken")))

	taken, err := d.SlugTaken(ctx, "taken", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = d.SlugTaken(ctx, "free", "")
	require.NoError(t, err)
	assert.False(t, taken)

	// a post may keep its own slug during update
	taken, err = d.SlugTaken(ctx, "taken", "p1")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestPublishedBySlug(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	ctx := context.Background()

	live := testPost("p1", "live")
	live.Published = true
	now := time.Now().UTC()
	live.PublishedAt = &now
	require.NoError(t, d.CreatePost(ctx, live))
	require.NoError(t, d.CreatePost(ctx, testPost("p2", "draft")))

	got, err := d.PublishedBySlug(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)

	_, err = d.PublishedBySlug(ctx, "draft")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func seedFeed(t *testing.T, d *DB, n int) {
	t.Helper()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := testPost(fmt.Sprintf("p%02d", i), fmt.Sprintf("post-%02d", i))
		p.Title = fmt.Sprintf("Feed Post %02d", i)
		p.Published = true
		at := base.Add(time.Duration(i) * time.Minute)
		p.PublishedAt = &at
		require.NoError(t, d.CreatePost(ctx(), p))
	}
}

func ctx() context.Context { return context.Background() }

func TestListPublishedPagination(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	seedFeed(t, d, 20)

	page1, total, err := d.ListPublished(ctx(), domain.PostFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 20, total)
	require.Len(t, page1, 10)
	assert.Equal(t, "p19", page1[0].ID, "newest first")

	page2, _, err := d.ListPublished(ctx(), domain.PostFilter{Page: 2, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page2, 10)

	all, _, err := d.ListPublished(ctx(), domain.PostFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, all, 20)

	for i, p := range append(append([]*domain.Post{}, page1...), page2...) {
		assert.Equal(t, all[i].ID, p.ID, "page union must equal one larger fetch")
	}
}

func TestListPublishedTieBreak(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c"} {
		p := testPost(id, "tie-"+id)
		p.Published = true
		tt := at
		p.PublishedAt = &tt
		require.NoError(t, d.CreatePost(ctx(), p))
	}

	items, _, err := d.ListPublished(ctx(), domain.PostFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{items[0].ID, items[1].ID, items[2].ID},
		"identical timestamps break ties by id descending")
}

func TestListPublishedFilters(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	now := time.Now().UTC()

	mk := func(id, title string, published bool, tags ...string) {
		p := testPost(id, "slug-"+id)
		p.Title = title
		p.Tags = tags
		p.Published = published
		if published {
			tt := now
			p.PublishedAt = &tt
		}
		require.NoError(t, d.CreatePost(ctx(), p))
	}
	mk("p1", "Go Concurrency Patterns", true, "Go", "concurrency")
	mk("p2", "Cooking With Gas", true, "cooking")
	mk("p3", "Hidden Draft About Go", false, "go")

	items, total, err := d.ListPublished(ctx(), domain.PostFilter{Tag: "GO", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID, "tag match is case-insensitive exact, drafts excluded")

	items, _, err = d.ListPublished(ctx(), domain.PostFilter{Tag: "cook", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, items, "tag filter is exact, not substring")

	items, _, err = d.ListPublished(ctx(), domain.PostFilter{Search: "COOKING", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ID)

	items, _, err = d.ListPublished(ctx(), domain.PostFilter{Search: "concurr", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1, "search matches tag substrings")

	items, total, err = d.ListPublished(ctx(), domain.PostFilter{Search: "zzz", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, total)
}

func TestDistinctTags(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	now := time.Now().UTC()

	p := testPost("p1", "one")
	p.Tags = []string{"zebra", "Apple", "zebra"}
	p.Published = true
	p.PublishedAt = &now
	require.NoError(t, d.CreatePost(ctx(), p))

	p = testPost("p2", "two")
	p.Tags = []string{"mango", "Apple"}
	p.Published = true
	p.PublishedAt = &now
	require.NoError(t, d.CreatePost(ctx(), p))

	p = testPost("p3", "three")
	p.Tags = []string{"invisible"}
	require.NoError(t, d.CreatePost(ctx(), p))

	tags, err := d.DistinctTags(ctx())
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "mango", "zebra"}, tags)
}

func TestListByOwner(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)

	mine := testPost("p1", "mine")
	require.NoError(t, d.CreatePost(ctx(), mine))
	other := testPost("p2", "other")
	other.OwnerID = "u2"
	require.NoError(t, d.CreatePost(ctx(), other))
	orphan := testPost("p3", "orphan")
	orphan.OwnerID = ""
	require.NoError(t, d.CreatePost(ctx(), orphan))

	posts, err := d.ListByOwner(ctx(), "u1")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].ID)
}

func TestUsers(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)

	u := &domain.User{ID: "u1", Name: "Ada", Email: "Ada@Example.com", PasswordHash: "x"}
	require.NoError(t, d.CreateUser(ctx(), u))
	assert.Equal(t, "ada@example.com", u.Email, "emails are stored lowercased")
	assert.Equal(t, domain.RoleUser, u.Role)

	dup := &domain.User{ID: "u2", Name: "Imp", Email: "ADA@example.com", PasswordHash: "y"}
	assert.ErrorIs(t, d.CreateUser(ctx(), dup), domain.ErrConflict)

	got, err := d.UserByEmail(ctx(), "ADA@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	got, err = d.UserByID(ctx(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = d.UserByID(ctx(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
