// Package slug derives URL-safe, unique post identifiers from titles.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"inkwell/domain"
)

// MaxProbes bounds the uniqueness loop. Two writers racing on the same base
// title are resolved by the store's unique index, not by probing forever.
const MaxProbes = 50

var (
	quotes      = regexp.MustCompile(`['"]`)
	nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify converts a title to a URL-safe slug: lowercase, quote characters
// dropped, every run of non-alphanumeric characters collapsed to a single
// hyphen, leading and trailing hyphens trimmed. An input with no usable
// characters yields "" and must be treated as invalid by the caller.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = quotes.ReplaceAllString(s, "")
	s = nonAlnumRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ExistsFunc probes whether a candidate slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns the first free slug in the sequence base, base-1, base-2, …
// giving up with domain.ErrSlugExhausted after MaxProbes attempts.
func Unique(ctx context.Context, exists ExistsFunc, base string) (string, error) {
	candidate := base
	for i := 1; i <= MaxProbes; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probing slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", domain.ErrSlugExhausted
}
