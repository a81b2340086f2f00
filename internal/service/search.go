package service

import (
	"context"
	"strings"

	fuzzysearch "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/tadb/internal/domain"
)

// Search returns the posts whose title fuzzy-matches query, best match first
func (r *PostRepository) Search(ctx context.Context, query string) []domain.Post {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	posts := r.All(ctx)
	titles := make([]string, len(posts))
	for i, p := range posts {
		titles[i] = strings.ToLower(p.Title)
	}

	matches := fuzzy.Find(strings.ToLower(query), titles)

	results := make([]domain.Post, len(matches))
	for i, match := range matches {
		results[i] = posts[match.Index]
	}
	r.logger.Debug("searched posts", "query", query, "matches", len(results))
	return results
}

// FilterByTag returns the posts carrying tag as a category or label.
// Comparison ignores case and diacritics.
func (r *PostRepository) FilterByTag(ctx context.Context, tag string) []domain.Post {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil
	}

	var results []domain.Post
	for _, p := range r.All(ctx) {
		if hasTag(p.Categories, tag) || hasTag(p.Labels, tag) {
			results = append(results, p)
		}
	}
	return results
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		// Subsequence both ways means equal after normalization
		if fuzzysearch.MatchNormalizedFold(tag, t) && fuzzysearch.MatchNormalizedFold(t, tag) {
			return true
		}
	}
	return false
}
