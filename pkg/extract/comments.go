package extract

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"statusbak/pkg/dom"
	errs "statusbak/pkg/errors"
	"statusbak/pkg/models"
)

const (
	replyTriggerSelector = ".btn-action-reply"
	commentItemSelector  = ".comments-items .lite-comment-item"
	showCommentsAction   = "showComments"
	commentContentClass  = ".lite-comment-item-content"
	commentAuthorClass   = ".lite-comment-item-author"
)

// CommentFetcher reads the reply list of one status subtree after the
// host page has (or would have) rendered it. Implementations must not
// panic on missing markup; errors are contained by the normalizer.
type CommentFetcher interface {
	Fetch(ctx context.Context, item *goquery.Selection, statusID string, count int) ([]models.Comment, error)
}

// Revealer triggers the lazy comment rendering for a status on a live
// page and returns the document after the settle delay.
type Revealer interface {
	RevealComments(ctx context.Context, statusID string) (*goquery.Document, error)
}

// CommentCount resolves the reply count of an item: the trigger's
// data-count attribute first, then digits inside its display text,
// then 0.
func CommentCount(item *goquery.Selection) int {
	trigger := item.Find(replyTriggerSelector).First()
	if trigger.Length() == 0 {
		return 0
	}
	if n := firstNumber(trigger.AttrOr("data-count", "")); n > 0 {
		return n
	}
	return firstNumber(dom.Text(trigger))
}

// TriggerRedirects reports whether activating the reply trigger would
// navigate away instead of revealing comments in place. A missing
// trigger counts as redirecting: there is nothing to activate.
func TriggerRedirects(item *goquery.Selection) bool {
	trigger := item.Find(replyTriggerSelector).First()
	if trigger.Length() == 0 {
		return true
	}
	return trigger.AttrOr("data-action-type", "") != showCommentsAction
}

// RedirectPlaceholder is the single synthetic comment substituted when
// fetching would leave the page.
func RedirectPlaceholder(count int) models.Comment {
	return models.Comment{
		Content: fmt.Sprintf("[该广播有 %d 条回应，请访问原文查看]", count),
		Author:  models.Author{Name: models.SystemAuthorName},
	}
}

// FailurePlaceholder is the single synthetic comment substituted when
// the reveal-and-read path failed.
func FailurePlaceholder(count int) models.Comment {
	return models.Comment{
		Content: fmt.Sprintf("[该广播有 %d 条回应，但获取失败]", count),
		Author:  models.Author{Name: models.SystemAuthorName},
	}
}

// parseCommentItems reads rendered comment elements out of a subtree.
func parseCommentItems(item *goquery.Selection) []models.Comment {
	var comments []models.Comment
	item.Find(commentItemSelector).Each(func(_ int, ci *goquery.Selection) {
		content := ci.Find(commentContentClass).First()
		author := ci.Find(commentAuthorClass).First()
		if content.Length() == 0 || author.Length() == 0 {
			return
		}
		link := author.AttrOr("href", "")
		comments = append(comments, models.Comment{
			Content: dom.Text(content),
			Author: models.Author{
				Name: dom.Text(author),
				UID:  UIDFromLink(link),
				Link: link,
			},
		})
	})
	return comments
}

// StaticCommentFetcher reads comments that are already rendered in the
// subtree. It cannot activate the reply trigger, so an absent comment
// container means the caller has to fall back to a placeholder.
type StaticCommentFetcher struct{}

// Fetch implements CommentFetcher.
func (StaticCommentFetcher) Fetch(_ context.Context, item *goquery.Selection, statusID string, _ int) ([]models.Comment, error) {
	if item.Find(commentItemSelector).Length() == 0 {
		return nil, errs.New(errs.ErrorTypeNavigationRequired,
			fmt.Sprintf("comments for status %s are not rendered in this snapshot", statusID))
	}
	return parseCommentItems(item), nil
}

// LiveCommentFetcher activates the reply trigger through a browser
// session, waits for the asynchronous DOM population to settle, then
// reads the resulting comment list.
type LiveCommentFetcher struct {
	Revealer Revealer
}

// Fetch implements CommentFetcher.
func (f *LiveCommentFetcher) Fetch(ctx context.Context, item *goquery.Selection, statusID string, _ int) ([]models.Comment, error) {
	doc, err := f.Revealer.RevealComments(ctx, statusID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCommentFetch,
			fmt.Sprintf("failed to reveal comments for status %s", statusID), err)
	}

	revealed := doc.Find(fmt.Sprintf(`.status-item[data-sid="%s"]`, statusID)).First()
	if revealed.Length() == 0 {
		// Fall back to the stale subtree; the settle may have raced.
		revealed = item
	}
	return parseCommentItems(revealed), nil
}
