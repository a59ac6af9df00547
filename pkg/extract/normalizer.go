package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"statusbak/pkg/dom"
	errs "statusbak/pkg/errors"
	"statusbak/pkg/logger"
	"statusbak/pkg/models"
)

const (
	resharedWrapperClass = "status-reshared-wrapper"
	realWrapperSelector  = ".status-real-wrapper"
)

// Body-text fallback cascades. Tier order matters: the first tier
// that yields non-empty text wins.
var (
	// Dedicated cascade for topic-discussion statuses.
	topicContentSelectors = []string{
		"blockquote p",
		".bd p",
		".content p",
		".status-saying p",
		".status-content p",
		".text p",
		`p[style*="white-space"]`,
		".content blockquote p",
	}

	genericContentCascade = dom.Cascade{
		".status-content", ".text", ".content", "p", "blockquote p",
	}

	resharedContentCascade = dom.Cascade{
		".status-saying", ".status-content", ".text", ".content",
	}

	// Paragraph-like descendants considered by the last-resort
	// aggregation tier.
	aggregateSelector = "p, div.text, div.content, blockquote p, .content p"
)

// Normalizer turns one status DOM item into a Status record. Every
// per-item extraction races a deadline so a single pathological item
// cannot stall the page batch.
type Normalizer struct {
	comments      CommentFetcher
	itemTimeout   time.Duration
	fetchComments bool
	log           logger.Logger
}

// NewNormalizer creates a Normalizer. fetcher may be nil, in which
// case replies are never fetched and the renderer falls back to a
// count-only line.
func NewNormalizer(fetcher CommentFetcher, itemTimeout time.Duration, fetchComments bool) *Normalizer {
	if itemTimeout <= 0 {
		itemTimeout = 5 * time.Second
	}
	return &Normalizer{
		comments:      fetcher,
		itemTimeout:   itemTimeout,
		fetchComments: fetchComments,
		log:           logger.GetLogger(),
	}
}

// Normalize extracts one Status from the item subtree. The error is
// either an extraction timeout or a panic-free failure from a lower
// layer; either way the caller decides whether to drop the item.
func (n *Normalizer) Normalize(ctx context.Context, item *goquery.Selection) (*models.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, n.itemTimeout)
	defer cancel()

	type result struct {
		status *models.Status
		err    error
	}
	done := make(chan result, 1)
	go func() {
		status, err := n.normalize(ctx, item)
		done <- result{status, err}
	}()

	select {
	case r := <-done:
		return r.status, r.err
	case <-ctx.Done():
		return nil, errs.Wrap(errs.ErrorTypeExtractionTimeout,
			fmt.Sprintf("status %s exceeded the per-item deadline", ExtractID(item)), ctx.Err())
	}
}

func (n *Normalizer) normalize(ctx context.Context, item *goquery.Selection) (*models.Status, error) {
	id := ExtractID(item)
	statusType := item.AttrOr("data-atype", "")
	deleted := item.HasClass("deleted") || item.HasClass("hidden")

	createTime, fullTime, timeHref := ExtractTime(item)
	author := ExtractAuthor(item)

	status := &models.Status{
		ID:         id,
		Type:       statusType,
		CreateTime: createTime,
		FullTime:   fullTime,
		SharingURL: timeHref,
		Author:     author,
		Activity:   ExtractActivity(item),
		Rating:     ExtractRating(item),
		Text:       n.bodyText(item, statusType),
		Topic:      ExtractTopic(item, statusType),
		Images:     ExtractImages(item),
		Card:       ExtractCard(item),
		LikeCount:  ExtractLikeCount(item),
		Deleted:    deleted,
		Hidden:     deleted,
	}

	status.OriginalURL = timeHref
	if status.OriginalURL == "" && author.UID != "" && id != "" {
		status.OriginalURL = fmt.Sprintf("https://www.douban.com/people/%s/status/%s/", author.UID, id)
	}

	status.Reshared = extractReshared(item)

	if !IsNestedOriginal(item) {
		status.CommentCount = CommentCount(item)
		status.Comments = n.fetchCommentList(ctx, item, status.ID, status.CommentCount)
	}

	return status, nil
}

// fetchCommentList applies the reply policy: fetch only when there is
// something to fetch and the trigger reveals in place; otherwise
// substitute a single placeholder. A fetch failure degrades to a
// placeholder instead of failing the status.
func (n *Normalizer) fetchCommentList(ctx context.Context, item *goquery.Selection, statusID string, count int) []models.Comment {
	if count <= 0 || !n.fetchComments {
		return nil
	}

	if TriggerRedirects(item) {
		return []models.Comment{RedirectPlaceholder(count)}
	}
	if n.comments == nil {
		return []models.Comment{RedirectPlaceholder(count)}
	}

	comments, err := n.comments.Fetch(ctx, item, statusID, count)
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeNavigationRequired {
			return []models.Comment{RedirectPlaceholder(count)}
		}
		n.log.WarnWithFields("comment fetch failed", map[string]interface{}{
			"status_id": statusID,
			"count":     count,
			"error":     err.Error(),
		})
		return []models.Comment{FailurePlaceholder(count)}
	}
	return comments
}

// bodyText assembles the status body through the ordered cascade of
// extraction strategies.
func (n *Normalizer) bodyText(item *goquery.Selection, statusType string) string {
	// Tier 1: quoted-block content of topic discussions.
	if topicDiscussionType(statusType) {
		if text := topicContent(item); text != "" {
			return text
		}
	}

	// Tier 2: the dedicated saying element.
	if saying := item.Find(".status-saying").First(); saying.Length() > 0 {
		text := dom.Text(saying)
		text = NormalizeRepostPrefix(text)
		if text = StripPhotoScript(text); text != "" {
			return text
		}
	}

	// Tier 3: generic content fallbacks.
	if text := StripPhotoScript(genericContentCascade.Text(item)); text != "" {
		return text
	}

	// Tier 4: the bd container chain.
	if text := bdContent(item); text != "" {
		return text
	}

	// Tier 5: aggregate paragraph-like descendants that are pure text.
	return aggregateText(item)
}

// topicContent prefers the blockquote paragraph of a topic
// discussion, then sweeps the known content selectors.
func topicContent(item *goquery.Selection) string {
	if bq := item.Find("blockquote").First(); bq.Length() > 0 {
		if p := bq.Find("p").First(); p.Length() > 0 {
			if text := dom.Text(p); text != "" {
				return text
			}
		}
		if text := dom.Text(bq); text != "" {
			return text
		}
	}

	for _, selector := range topicContentSelectors {
		var texts []string
		item.Find(selector).Each(func(_ int, el *goquery.Selection) {
			if text := dom.Text(el); text != "" {
				texts = append(texts, text)
			}
		})
		if len(texts) > 0 {
			return strings.Join(texts, "\n\n")
		}
	}
	return ""
}

// bdContent walks the bd container: saying, then its blockquote, then
// the blockquote's paragraph.
func bdContent(item *goquery.Selection) string {
	bd := item.Find(".bd").First()
	if bd.Length() == 0 {
		return ""
	}
	saying := bd.Find(".status-saying").First()
	if saying.Length() == 0 {
		return ""
	}

	text := ""
	if bq := saying.Find("blockquote").First(); bq.Length() > 0 {
		if p := bq.Find("p").First(); p.Length() > 0 {
			text = dom.Text(p)
		} else {
			text = dom.Text(bq)
		}
	} else {
		text = dom.Text(saying)
	}
	return StripPhotoScript(text)
}

// aggregateText joins every visible paragraph-like descendant that
// does not itself contain links, timestamps or action controls.
func aggregateText(item *goquery.Selection) string {
	var texts []string
	item.Find(aggregateSelector).Each(func(_ int, el *goquery.Selection) {
		if el.Find("a, .created_at, .actions").Length() > 0 {
			return
		}
		if text := dom.Text(el); text != "" {
			texts = append(texts, text)
		}
	})
	return StripPhotoScript(strings.Join(texts, "\n\n"))
}

// IsNestedOriginal reports whether the item is the original status
// rendered inside a repost wrapper. Such items are reachable only
// through their parent's Reshared field.
func IsNestedOriginal(item *goquery.Selection) bool {
	return item.Closest(realWrapperSelector).Length() > 0 &&
		item.Closest("."+resharedWrapperClass).Length() > 0
}

// extractReshared reads the one-level-deep original of a repost. The
// original's own markup is read literally with the same extractors;
// deeper nesting stays inside its text.
func extractReshared(item *goquery.Selection) *models.Reshared {
	if IsNestedOriginal(item) {
		return nil
	}
	wrapper := item.Find(realWrapperSelector).First()
	if wrapper.Length() == 0 {
		if container := item.Closest("." + resharedWrapperClass); container.Length() > 0 {
			wrapper = container.Find(realWrapperSelector).First()
		}
	}
	if wrapper.Length() == 0 {
		return nil
	}

	text := ""
	if contentEl := resharedContentCascade.Find(wrapper); contentEl != nil {
		if bq := contentEl.Find("blockquote").First(); bq.Length() > 0 {
			text = dom.Text(bq)
		} else {
			text = dom.Text(contentEl)
		}
	}

	return &models.Reshared{
		ID:     wrapper.AttrOr("data-sid", ""),
		Author: ExtractAuthor(wrapper),
		Text:   text,
		Images: ExtractImages(wrapper),
		Card:   ExtractCard(wrapper),
	}
}
