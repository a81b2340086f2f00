package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mmcdole/tadb/internal/adapter"
	"github.com/mmcdole/tadb/internal/domain"
	"github.com/mmcdole/tadb/internal/render"
	"github.com/mmcdole/tadb/internal/service"
)

// app holds the wired services for one command invocation
type app struct {
	loader    *service.Loader
	repo      *service.PostRepository
	store     domain.FallbackStore
	printer   *render.Printer
	stdin     io.Reader
	exportDir string
	logger    *slog.Logger
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", "error", err)
	}
}

// run dispatches a command
func (a *app) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "stats":
		a.printer.Stats(a.loader.Stats(ctx))
		return nil

	case "list":
		a.printer.Index(a.repo.Index(ctx))
		return nil

	case "show":
		id, err := postIDArg(cmd, rest)
		if err != nil {
			return err
		}
		post, ok := a.repo.Detail(ctx, id)
		if !ok {
			return fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
		}
		a.printer.Detail(post)
		return nil

	case "search":
		query := strings.Join(rest, " ")
		if strings.TrimSpace(query) == "" {
			return fmt.Errorf("search: query is required")
		}
		a.printer.Index(indexOf(a.repo.Search(ctx, query)))
		return nil

	case "tag":
		if len(rest) != 1 {
			return fmt.Errorf("tag: exactly one tag is required")
		}
		a.printer.Index(indexOf(a.repo.FilterByTag(ctx, rest[0])))
		return nil

	case "add":
		if len(rest) != 1 {
			return fmt.Errorf("add: a JSON file or - for stdin is required")
		}
		post, err := a.readPost(rest[0])
		if err != nil {
			return err
		}
		saved, err := a.repo.Save(ctx, post)
		if err != nil {
			return fmt.Errorf("failed to save post: %w", err)
		}
		a.printer.Index([]domain.IndexPost{saved.Index()})
		return nil

	case "delete":
		id, err := postIDArg(cmd, rest)
		if err != nil {
			return err
		}
		if err := a.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete post %d: %w", id, err)
		}
		return nil

	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("get: exactly one data set is required")
		}
		t, err := domain.ParseDataType(rest[0])
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		return a.printer.Records(a.loader.GetData(ctx, t))

	case "reset":
		var types []domain.DataType
		for _, name := range rest {
			t, err := domain.ParseDataType(name)
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			types = append(types, t)
		}
		removed, err := a.loader.Reset(types...)
		a.printer.Reset(removed)
		if err != nil {
			return fmt.Errorf("reset incomplete: %w", err)
		}
		return nil

	case "export":
		dir := a.exportDir
		if len(rest) > 0 {
			dir = adapter.ExpandHome(rest[0])
		}
		saver := adapter.NewDirSaver(dir, a.logger)
		files, err := a.loader.TriggerDownloads(ctx, saver)
		a.printer.Exports(files, saver.Dir(), err)
		if err != nil {
			return fmt.Errorf("export incomplete: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// readPost decodes a post from a file, or from stdin when name is "-"
func (a *app) readPost(name string) (domain.Post, error) {
	var r io.Reader = a.stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return domain.Post{}, fmt.Errorf("failed to open post file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var post domain.Post
	if err := json.NewDecoder(r).Decode(&post); err != nil {
		return domain.Post{}, fmt.Errorf("failed to decode post: %w", err)
	}
	return post, nil
}

func postIDArg(cmd string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s: exactly one post id is required", cmd)
	}
	id, err := domain.ParsePostID(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", cmd, err)
	}
	return id, nil
}

func indexOf(posts []domain.Post) []domain.IndexPost {
	out := make([]domain.IndexPost, len(posts))
	for i, p := range posts {
		out[i] = p.Index()
	}
	return out
}
