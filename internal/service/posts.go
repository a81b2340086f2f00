package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/tadb/internal/domain"
)

// PostRepository manages catalog posts on top of a Loader. Reads prefer
// the static posts file; writes always go to the fallback store.
//
// Construction starts initialization in the background. Reads that need
// the resolved state wait for it via Ready.
type PostRepository struct {
	loader *Loader
	logger *slog.Logger

	ready chan struct{} // closed when initialization is done

	mu           sync.RWMutex // Protects static
	static       []domain.Post
	staticLoaded bool

	writeMu sync.Mutex // Serializes read-modify-write cycles
}

// NewPostRepository creates the repository and starts its initialization:
// load the static posts file, then seed the default posts if there is
// still nothing to show. ctx bounds the initialization only.
func NewPostRepository(ctx context.Context, loader *Loader, logger *slog.Logger) *PostRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &PostRepository{
		loader: loader,
		logger: logger,
		ready:  make(chan struct{}),
	}
	go r.init(ctx)
	return r
}

func (r *PostRepository) init(ctx context.Context) {
	defer close(r.ready)

	r.loadStatic(ctx)

	if len(r.AllNow()) == 0 {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()
		if err := r.SeedDefaults(); err != nil {
			r.logger.Error("failed to seed default posts", "error", err)
		}
	}
}

// loadStatic adopts the static posts file when it holds at least one post
func (r *PostRepository) loadStatic(ctx context.Context) {
	records, ok := r.loader.StaticData(ctx, domain.DataTypePosts)
	if !ok || len(records) == 0 {
		return
	}

	posts, err := decodePosts(records)
	if err != nil {
		r.logger.Warn("malformed static posts, using fallback store", "error", err)
		return
	}

	r.mu.Lock()
	r.static = posts
	r.staticLoaded = true
	r.mu.Unlock()

	r.logger.Info("loaded posts from static file", "count", len(posts))
}

// Ready is closed once initialization has completed
func (r *PostRepository) Ready() <-chan struct{} {
	return r.ready
}

func (r *PostRepository) wait(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	default:
	}
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// All returns every post after initialization: the static posts if they
// were loaded, otherwise the fallback store contents.
func (r *PostRepository) All(ctx context.Context) []domain.Post {
	if err := r.wait(ctx); err != nil {
		r.logger.Warn("gave up waiting for post initialization", "error", err)
		return []domain.Post{}
	}
	return r.AllNow()
}

// AllNow returns the current posts without waiting for initialization.
func (r *PostRepository) AllNow() []domain.Post {
	r.mu.RLock()
	if r.staticLoaded {
		posts := clonePosts(r.static)
		r.mu.RUnlock()
		return posts
	}
	r.mu.RUnlock()

	return r.readStored()
}

// readStored decodes the fallback store posts. Entries that are not post
// objects are skipped.
func (r *PostRepository) readStored() []domain.Post {
	records := r.loader.LoadFromFallback(domain.DataTypePosts)

	posts := make([]domain.Post, 0, len(records))
	for i, rec := range records {
		var p domain.Post
		if err := json.Unmarshal(rec, &p); err != nil {
			r.logger.Warn("skipping malformed stored post", "index", i, "error", err)
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

// SaveAll replaces the stored posts with posts
func (r *PostRepository) SaveAll(posts []domain.Post) error {
	store := r.loader.Store()
	if store == nil {
		return fmt.Errorf("save posts: no fallback store")
	}
	if posts == nil {
		posts = []domain.Post{}
	}

	data, err := json.Marshal(posts)
	if err != nil {
		r.logger.Error("failed to encode posts", "error", err)
		return fmt.Errorf("encode posts: %w", err)
	}
	if err := store.Set(domain.DataTypePosts.StorageKey(), data); err != nil {
		r.logger.Error("failed to save posts", "error", err)
		return fmt.Errorf("save posts: %w", err)
	}

	r.logger.Debug("saved posts", "count", len(posts))
	return nil
}

// FindByID returns the post with the given id
func (r *PostRepository) FindByID(ctx context.Context, id int) (domain.Post, bool) {
	for _, p := range r.All(ctx) {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Post{}, false
}

// Detail returns the full post for the detail page
func (r *PostRepository) Detail(ctx context.Context, id int) (domain.Post, bool) {
	return r.FindByID(ctx, id)
}

// Save adds or updates a post. A post whose non-zero id already exists is
// updated in place with the fields set on post; any other post is appended
// with the next free id. The whole collection is then persisted.
func (r *PostRepository) Save(ctx context.Context, post domain.Post) (domain.Post, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Post{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	posts := r.AllNow()

	idx := -1
	if post.ID != 0 {
		for i, p := range posts {
			if p.ID == post.ID {
				idx = i
				break
			}
		}
	}

	var saved domain.Post
	if idx >= 0 {
		merged, err := posts[idx].Merge(post)
		if err != nil {
			r.logger.Error("failed to merge post", "id", post.ID, "error", err)
			return domain.Post{}, fmt.Errorf("merge post %d: %w", post.ID, err)
		}
		posts[idx] = merged
		saved = merged
	} else {
		saved = post.Clone()
		saved.ID = nextPostID(posts)
		posts = append(posts, saved)
	}

	if err := r.SaveAll(posts); err != nil {
		return domain.Post{}, err
	}

	r.logger.Info("saved post", "id", saved.ID, "title", saved.Title, "created", idx < 0)
	return saved.Clone(), nil
}

// Delete removes the post with the given id. Deleting an unknown id is a
// successful no-op.
func (r *PostRepository) Delete(ctx context.Context, id int) error {
	if err := r.wait(ctx); err != nil {
		return err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	posts := r.AllNow()
	kept := posts[:0]
	for _, p := range posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}

	if err := r.SaveAll(kept); err != nil {
		return err
	}
	r.logger.Info("deleted post", "id", id, "removed", len(posts)-len(kept))
	return nil
}

// SeedDefaults stores the built-in starter posts
func (r *PostRepository) SeedDefaults() error {
	posts, err := DefaultPosts()
	if err != nil {
		return err
	}
	if err := r.SaveAll(posts); err != nil {
		return err
	}
	r.logger.Info("seeded default posts", "count", len(posts))
	return nil
}

// Index returns the summary view of every post
func (r *PostRepository) Index(ctx context.Context) []domain.IndexPost {
	posts := r.All(ctx)
	out := make([]domain.IndexPost, len(posts))
	for i, p := range posts {
		out[i] = p.Index()
	}
	return out
}

// nextPostID returns the highest id plus one, or 1 for an empty collection
func nextPostID(posts []domain.Post) int {
	maxID := 0
	for _, p := range posts {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID + 1
}

func decodePosts(records []domain.Record) ([]domain.Post, error) {
	posts := make([]domain.Post, len(records))
	var errs []error
	for i, rec := range records {
		if err := json.Unmarshal(rec, &posts[i]); err != nil {
			errs = append(errs, fmt.Errorf("post %d: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return posts, nil
}

func clonePosts(posts []domain.Post) []domain.Post {
	out := make([]domain.Post, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
	}
	return out
}
