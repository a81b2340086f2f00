package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/tadb/internal/adapter"
	"github.com/mmcdole/tadb/internal/domain"
	"github.com/mmcdole/tadb/internal/render"
)

func newTestApp(t *testing.T, siteDir string) (*app, *bytes.Buffer) {
	t.Helper()

	cfg := adapter.DefaultConfig()
	cfg.Store.Driver = "memory"
	cfg.Export.Dir = t.TempDir()
	cfg.Export.Stagger = 0
	if siteDir == "" {
		cfg.Source.Type = adapter.SourceTypeNone
	} else {
		cfg.Source.Dir = siteDir
	}

	a, err := newApp(context.Background(), cfg, adapter.NullLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(a.close)

	var out bytes.Buffer
	a.printer = render.NewPrinter(&out, false)
	a.stdin = strings.NewReader("")
	return a, &out
}

func TestRunListSeededPosts(t *testing.T) {
	a, out := newTestApp(t, "")

	if err := a.run(context.Background(), []string{"list"}); err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"Zenshu", "DanDaDan"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestRunStaticSite(t *testing.T) {
	site := t.TempDir()
	if err := os.MkdirAll(filepath.Join(site, "data"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(site, "data", "posts.json"), []byte(`[{"id":4,"title":"From Site"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	a, out := newTestApp(t, site)

	if err := a.run(context.Background(), []string{"stats"}); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out.String(), "Posts      1") {
		t.Errorf("stats output:\n%s", out)
	}

	out.Reset()
	if err := a.run(context.Background(), []string{"show", "4"}); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.HasPrefix(out.String(), "From Site #4") {
		t.Errorf("show output:\n%s", out)
	}
}

func TestRunAddAndDelete(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()

	a.stdin = strings.NewReader(`{"title":"Frieren","categories":["Fantasy"]}`)
	if err := a.run(ctx, []string{"add", "-"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out.String(), "   3  Frieren") {
		t.Errorf("add output:\n%s", out)
	}

	out.Reset()
	if err := a.run(ctx, []string{"tag", "fantasy"}); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if !strings.Contains(out.String(), "Frieren") {
		t.Errorf("tag output:\n%s", out)
	}

	if err := a.run(ctx, []string{"delete", "3"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err := a.run(ctx, []string{"show", "3"})
	if !errors.Is(err, domain.ErrPostNotFound) {
		t.Errorf("show deleted post err = %v, want ErrPostNotFound", err)
	}
}

func TestRunAddFromFile(t *testing.T) {
	a, _ := newTestApp(t, "")
	path := filepath.Join(t.TempDir(), "post.json")
	if err := os.WriteFile(path, []byte(`{"id":1,"status":"Airing"}`), 0644); err != nil {
		t.Fatal(err)
	}

	if err := a.run(context.Background(), []string{"add", path}); err != nil {
		t.Fatalf("add: %v", err)
	}
	post, ok := a.repo.FindByID(context.Background(), 1)
	if !ok || string(post.Extra["status"]) != `"Airing"` || post.Title != "Zenshu" {
		t.Errorf("post 1 after update = %+v", post)
	}
}

func TestRunExport(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dir := t.TempDir()
	if err := a.run(ctx, []string{"export", dir}); err != nil {
		t.Fatalf("export: %v", err)
	}

	for _, name := range []string{"posts.json", "schedule.json", "creators.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "written to "+dir) {
		t.Errorf("export output:\n%s", out)
	}
}

func TestRunErrors(t *testing.T) {
	a, _ := newTestApp(t, "")

	tests := [][]string{
		{"bogus"},
		{"show"},
		{"show", "abc"},
		{"search"},
		{"tag"},
		{"add"},
		{"add", filepath.Join(t.TempDir(), "missing.json")},
		{"delete", "1", "2"},
		{"get"},
		{"get", "movies"},
		{"reset", "movies"},
	}
	for _, args := range tests {
		if err := a.run(context.Background(), args); err == nil {
			t.Errorf("run(%v) succeeded, want error", args)
		}
	}
}

func TestRunGetAndReset(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()

	if err := a.run(ctx, []string{"get", "Posts"}); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(out.String(), `"title": "Zenshu"`) {
		t.Errorf("get output missing seeded post:\n%s", out)
	}

	out.Reset()
	if err := a.run(ctx, []string{"reset"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out.String(), "reset posts") {
		t.Errorf("reset output:\n%s", out)
	}
	if posts := a.repo.All(ctx); len(posts) != 0 {
		t.Errorf("posts after reset = %d, want 0", len(posts))
	}

	out.Reset()
	if err := a.run(ctx, []string{"reset", "schedule"}); err != nil {
		t.Fatalf("reset schedule: %v", err)
	}
}
