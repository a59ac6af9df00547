package extract

import (
	"context"
	"strings"
	"testing"
	"time"

	errs "statusbak/pkg/errors"
	"statusbak/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

func TestNormalizeMinimalStatus(t *testing.T) {
	item := statusItem(t, `
		<div class="status-item" data-sid="555">
			<a class="created_at" title="2024-06-01 12:00:00" href="https://www.douban.com/people/u1/status/555/">6月1日</a>
			<a class="lnk-people" href="https://www.douban.com/people/u1/">甲</a>
			<div class="status-saying"><blockquote><p>极简的一条广播</p></blockquote></div>
		</div>`)

	status, err := NewNormalizer(nil, time.Second, false).Normalize(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.ID != "555" {
		t.Errorf("ID = %q", status.ID)
	}
	if status.FullTime != "2024-06-01 12:00:00" {
		t.Errorf("FullTime = %q", status.FullTime)
	}
	if status.Author.UID != "u1" {
		t.Errorf("Author = %+v", status.Author)
	}
	if status.Text != "极简的一条广播" {
		t.Errorf("Text = %q", status.Text)
	}
	if status.OriginalURL != "https://www.douban.com/people/u1/status/555/" {
		t.Errorf("OriginalURL = %q", status.OriginalURL)
	}
}

func TestNormalizeRedirectingTriggerGetsPlaceholder(t *testing.T) {
	item := statusItem(t, `
		<div class="status-item" data-sid="777">
			<a class="created_at" title="2024-06-01 12:00:00" href="https://www.douban.com/people/u1/status/777/">6月1日</a>
			<a class="lnk-people" href="https://www.douban.com/people/u1/">甲</a>
			<div class="status-saying"><blockquote><p>有回应的广播</p></blockquote></div>
			<a class="btn-action-reply" href="/status/777/" data-count="3">回应</a>
		</div>`)

	status, err := NewNormalizer(nil, time.Second, true).Normalize(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.CommentCount != 3 {
		t.Fatalf("CommentCount = %d", status.CommentCount)
	}
	if len(status.Comments) != 1 {
		t.Fatalf("expected exactly one placeholder, got %d comments", len(status.Comments))
	}
	placeholder := status.Comments[0]
	if !placeholder.IsSystem() {
		t.Error("placeholder must be a system comment")
	}
	if !strings.Contains(placeholder.Content, "3") {
		t.Errorf("placeholder should carry the count: %q", placeholder.Content)
	}
}

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, *goquery.Selection, string, int) ([]models.Comment, error) {
	return nil, errs.New(errs.ErrorTypeCommentFetch, "settle never completed")
}

func TestNormalizeFetchFailureDegradesToPlaceholder(t *testing.T) {
	item := statusItem(t, `
		<div class="status-item" data-sid="888">
			<a class="created_at" title="2024-06-01 12:00:00" href="https://www.douban.com/people/u1/status/888/">6月1日</a>
			<a class="lnk-people" href="https://www.douban.com/people/u1/">甲</a>
			<div class="status-saying"><blockquote><p>正文</p></blockquote></div>
			<a class="btn-action-reply" data-action-type="showComments" data-count="5">回应</a>
		</div>`)

	status, err := NewNormalizer(failingFetcher{}, time.Second, true).Normalize(context.Background(), item)
	if err != nil {
		t.Fatalf("the status itself must survive a comment failure: %v", err)
	}
	if len(status.Comments) != 1 {
		t.Fatalf("expected one placeholder, got %d", len(status.Comments))
	}
	if !strings.Contains(status.Comments[0].Content, "获取失败") {
		t.Errorf("expected the failure placeholder, got %q", status.Comments[0].Content)
	}
}

func TestNormalizeTimeout(t *testing.T) {
	item := statusItem(t, `
		<div class="status-item" data-sid="999">
			<a class="created_at" title="2024-06-01 12:00:00" href="#">6月1日</a>
			<a class="btn-action-reply" data-action-type="showComments" data-count="2">回应</a>
		</div>`)

	slow := fetcherFunc(func(ctx context.Context) ([]models.Comment, error) {
		time.Sleep(200 * time.Millisecond)
		return nil, ctx.Err()
	})

	_, err := NewNormalizer(slow, 20*time.Millisecond, true).Normalize(context.Background(), item)
	if errs.TypeOf(err) != errs.ErrorTypeExtractionTimeout {
		t.Errorf("expected an extraction timeout, got %v", err)
	}
}

type fetcherFunc func(ctx context.Context) ([]models.Comment, error)

func (f fetcherFunc) Fetch(ctx context.Context, _ *goquery.Selection, _ string, _ int) ([]models.Comment, error) {
	return f(ctx)
}
