package domain

// PostFilter selects a page of the public feed. Page and Limit are
// normalized (≥1) before reaching a store.
type PostFilter struct {
	Search string
	Tag    string
	Page   int
	Limit  int
}
