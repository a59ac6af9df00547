package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	errs "statusbak/pkg/errors"
)

func writeSnapshot(t *testing.T, dir string, page int, html string) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("page_%d.html", page))
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse test markup: %v", err)
	}
	return doc
}

const snapshotHTML = `
<html><head><title>tester的广播</title></head><body>
<div class="stream-items">
	<div class="status-item" data-sid="1"></div>
</div>
</body></html>`

func TestSnapshotSessionNavigation(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, 1, snapshotHTML)
	writeSnapshot(t, dir, 3, snapshotHTML)

	s, err := NewSnapshotSession(dir)
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	page, err := s.CurrentPage(ctx)
	if err != nil || page != 1 {
		t.Fatalf("CurrentPage = %d, %v", page, err)
	}

	total, err := s.TotalPages(ctx)
	if err != nil || total != 3 {
		t.Fatalf("TotalPages = %d, %v", total, err)
	}

	if err := s.Navigate(ctx, 3); err != nil {
		t.Fatalf("failed to navigate: %v", err)
	}
	if page, _ := s.CurrentPage(ctx); page != 3 {
		t.Errorf("CurrentPage after navigate = %d", page)
	}

	// A page with no saved file is a navigation failure.
	if err := s.Navigate(ctx, 2); errs.TypeOf(err) != errs.ErrorTypeNavigation {
		t.Errorf("expected a navigation error, got %v", err)
	}
}

func TestSnapshotSessionUserName(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, 1, snapshotHTML)

	s, err := NewSnapshotSession(dir)
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	defer s.Close()

	name, err := s.UserName(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "tester" {
		t.Errorf("UserName = %q", name)
	}
}

func TestSnapshotSessionCannotRevealComments(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, 1, snapshotHTML)

	s, err := NewSnapshotSession(dir)
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	defer s.Close()

	_, err = s.RevealComments(context.Background(), "1")
	if errs.TypeOf(err) != errs.ErrorTypeNavigationRequired {
		t.Errorf("expected a navigation-required error, got %v", err)
	}
}

func TestPageFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"https://www.douban.com/mine/statuses?p=4", 4},
		{"https://www.douban.com/mine/statuses", 1},
		{"https://www.douban.com/mine/statuses?p=abc", 1},
	}
	for _, tt := range tests {
		if got := pageFromURL(tt.in); got != tt.want {
			t.Errorf("pageFromURL(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWithPageParam(t *testing.T) {
	got := withPageParam("https://www.douban.com/mine/statuses?p=1", 7)
	if got != "https://www.douban.com/mine/statuses?p=7" {
		t.Errorf("got %q", got)
	}
}

func TestTotalPagesEstimate(t *testing.T) {
	doc := mustDoc(t, `
		<div class="paginator">
			<a href="?p=2">2</a><a href="?p=3">3</a>
			<span class="break">...</span>
			<a href="?p=12">12</a>
		</div>`)
	if got := totalPagesFromDoc(doc); got != estimatedMinimumPages {
		t.Errorf("truncated paginator should floor the estimate, got %d", got)
	}

	doc = mustDoc(t, `
		<div class="paginator">
			<a href="?p=2">2</a><a href="?p=3">3</a>
		</div>`)
	if got := totalPagesFromDoc(doc); got != 3 {
		t.Errorf("complete paginator estimate = %d, want 3", got)
	}
}
