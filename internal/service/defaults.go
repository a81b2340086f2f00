package service

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/mmcdole/tadb/internal/domain"
)

//go:embed fixtures/default_posts.json
var defaultPostsJSON []byte

// DefaultPosts returns the starter posts seeded into an empty catalog
func DefaultPosts() ([]domain.Post, error) {
	var posts []domain.Post
	if err := json.Unmarshal(defaultPostsJSON, &posts); err != nil {
		return nil, fmt.Errorf("decode default posts: %w", err)
	}
	return posts, nil
}
