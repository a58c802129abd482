package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const maxSlugBase = 100

// slugBase turns a title into the readable part of a slug. Titles written in
// Devanagari keep their script; Latin titles are transliterated to ASCII.
func slugBase(title string) string {
	if hasScript(title, unicode.Devanagari) {
		return devanagariSlug(title)
	}
	return truncateRunes(slug.Make(title), maxSlugBase)
}

func devanagariSlug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r):
			b.WriteRune(r)
			dash = false
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.Trim(truncateRunes(b.String(), maxSlugBase), "-")
}

func hasScript(s string, table *unicode.RangeTable) bool {
	for _, r := range s {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRight(string(runes[:n]), "-")
}

// uniqueSlug builds "<base>-<unix millis>" and falls back to a random suffix on collision
func uniqueSlug(ctx context.Context, title string, now time.Time, exists func(context.Context, string) (bool, error)) (string, error) {
	base := slugBase(title)
	if base == "" {
		base = "article"
	}

	candidate := fmt.Sprintf("%s-%d", base, now.UnixMilli())
	for attempt := 0; attempt < 5; attempt++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d-%s", base, now.UnixMilli(), uuid.New().String()[:8])
	}
	return "", fmt.Errorf("%w: could not allocate a unique slug", ErrConflict)
}
