package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"inkwell/domain"
	"inkwell/posts"
)

type postResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	AuthorName  string     `json:"authorName"`
	CoverImage  string     `json:"coverImage,omitempty"`
	Tags        []string   `json:"tags"`
	Excerpt     string     `json:"excerpt"`
	Content     string     `json:"content,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// toPostResponse shapes a post for the wire. Feed listings omit the body.
func toPostResponse(p *domain.Post, withContent bool) postResponse {
	r := postResponse{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		AuthorName:  p.AuthorName,
		CoverImage:  p.CoverImage,
		Tags:        p.Tags,
		Excerpt:     p.Excerpt,
		Published:   p.Published,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if withContent {
		r.Content = p.Content
	}
	return r
}

func toPostList(items []*domain.Post) []postResponse {
	out := make([]postResponse, len(items))
	for i, p := range items {
		out[i] = toPostResponse(p, false)
	}
	return out
}

func toInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// GetPosts serves the public paginated feed.
// GET /api/posts?search=&tag=&page=&limit=
func (h *Handler) GetPosts(c echo.Context) error {
	page, err := h.Posts.List(c.Request().Context(), domain.PostFilter{
		Search: c.QueryParam("search"),
		Tag:    c.QueryParam("tag"),
		Page:   toInt(c.QueryParam("page")),
		Limit:  toInt(c.QueryParam("limit")),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":    toPostList(page.Items),
		"page":    page.Page,
		"limit":   page.Limit,
		"total":   page.Total,
		"hasMore": page.HasMore,
	})
}

// GetTags serves the distinct tags of published posts.
// GET /api/posts/tags
func (h *Handler) GetTags(c echo.Context) error {
	tags, err := h.Posts.Tags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

// GetPostBySlug serves a published post in full.
// GET /api/posts/:slug
func (h *Handler) GetPostBySlug(c echo.Context) error {
	p, err := h.Posts.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPostResponse(p, true))
}

// GetMyPosts lists the caller's posts, drafts included.
// GET /api/posts/mine
func (h *Handler) GetMyPosts(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.Posts.ListMine(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": toPostList(items)})
}

// GetPostForEdit returns the full record to its owner for editing.
// GET /api/posts/:id/edit
func (h *Handler) GetPostForEdit(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	p, err := h.Posts.GetForEdit(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPostResponse(p, true))
}

type createPostRequest struct {
	Title         string   `json:"title" validate:"required,min=3"`
	AuthorName    string   `json:"authorName" validate:"required,min=2"`
	Slug          string   `json:"slug"`
	CoverImage    string   `json:"coverImage" validate:"omitempty,url"`
	Tags          []string `json:"tags"`
	Content       string   `json:"content" validate:"required,min=10"`
	ContentFormat string   `json:"contentFormat" validate:"omitempty,oneof=html markdown"`
	Excerpt       string   `json:"excerpt"`
	Published     bool     `json:"published"`
}

// NewPost creates a post owned by the caller.
// POST /api/posts
func (h *Handler) NewPost(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	req := new(createPostRequest)
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	p, err := h.Posts.Create(c.Request().Context(), posts.CreateInput{
		Title:         req.Title,
		AuthorName:    req.AuthorName,
		Slug:          req.Slug,
		CoverImage:    req.CoverImage,
		Tags:          req.Tags,
		Content:       req.Content,
		ContentFormat: req.ContentFormat,
		Excerpt:       req.Excerpt,
		Published:     req.Published,
	}, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": p.ID, "slug": p.Slug})
}

type updatePostRequest struct {
	Title         *string   `json:"title" validate:"omitempty,min=3"`
	AuthorName    *string   `json:"authorName" validate:"omitempty,min=2"`
	CoverImage    *string   `json:"coverImage" validate:"omitempty,url"`
	Tags          *[]string `json:"tags"`
	Content       *string   `json:"content" validate:"omitempty,min=10"`
	ContentFormat string    `json:"contentFormat" validate:"omitempty,oneof=html markdown"`
	Excerpt       *string   `json:"excerpt"`
	Published     *bool     `json:"published"`
}

// EditPost applies a partial update to an owned post.
// PATCH /api/posts/:id
func (h *Handler) EditPost(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	req := new(updatePostRequest)
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	p, err := h.Posts.Update(c.Request().Context(), c.Param("id"), posts.Patch{
		Title:         req.Title,
		AuthorName:    req.AuthorName,
		CoverImage:    req.CoverImage,
		Tags:          req.Tags,
		Content:       req.Content,
		ContentFormat: req.ContentFormat,
		Excerpt:       req.Excerpt,
		Published:     req.Published,
	}, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"id": p.ID, "slug": p.Slug})
}

// DeletePost removes an owned post.
// DELETE /api/posts/:id
func (h *Handler) DeletePost(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		return err
	}
	if err := h.Posts.Delete(c.Request().Context(), c.Param("id"), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
