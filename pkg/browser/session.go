// Package browser abstracts where timeline pages come from. A live
// Chrome session navigates the real site and can reveal lazy comment
// lists; a snapshot session reads saved page files and cannot.
package browser

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"statusbak/pkg/dom"
)

// Session is a source of timeline pages. CurrentPage reflects where
// the session is; Navigate moves it. Implementations that cannot
// activate page scripts return a navigation-required error from
// RevealComments.
type Session interface {
	// CurrentPage returns the 1-based page the session is on.
	CurrentPage(ctx context.Context) (int, error)
	// UserName returns the timeline owner's display name.
	UserName(ctx context.Context) (string, error)
	// TotalPages estimates how many pages the timeline has.
	TotalPages(ctx context.Context) (int, error)
	// Document parses the current page.
	Document(ctx context.Context) (*goquery.Document, error)
	// Navigate moves the session to the given page.
	Navigate(ctx context.Context, page int) error
	// RevealComments activates the reply trigger of a status and
	// returns the settled document.
	RevealComments(ctx context.Context, statusID string) (*goquery.Document, error)
	// Close releases the session.
	Close() error
}

// estimatedMinimumPages floors the page estimate when the paginator
// truncates its tail with an ellipsis. Long timelines hide their real
// length, so the estimate errs high and lets empty pages end the run.
const estimatedMinimumPages = 100

// pageFromURL reads the 1-based page number out of a timeline URL's
// "p" query parameter, defaulting to 1.
func pageFromURL(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 1
	}
	if p, err := strconv.Atoi(u.Query().Get("p")); err == nil && p > 0 {
		return p
	}
	return 1
}

// withPageParam rewrites a timeline URL to point at the given page.
func withPageParam(raw string, page int) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("p", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// userNameFromDoc resolves the timeline owner's display name from the
// page markup, falling back to the document title.
func userNameFromDoc(doc *goquery.Document) string {
	if name := dom.Text(doc.Find("#db-usr-profile .info h1").First()); name != "" {
		return name
	}
	if name := dom.Text(doc.Find(".nav-user-account .bn-more span").First()); name != "" {
		return strings.TrimSuffix(name, "的帐号")
	}
	title := dom.Text(doc.Find("title").First())
	if idx := strings.Index(title, "的广播"); idx > 0 {
		return title[:idx]
	}
	return ""
}

// totalPagesFromDoc estimates the timeline length from the paginator.
// A truncated paginator yields at least estimatedMinimumPages.
func totalPagesFromDoc(doc *goquery.Document) int {
	paginator := doc.Find(".paginator").First()
	if paginator.Length() == 0 {
		return 1
	}

	max := 1
	paginator.Find("a").Each(func(_ int, a *goquery.Selection) {
		if n, err := strconv.Atoi(dom.Text(a)); err == nil && n > max {
			max = n
		}
	})
	if paginator.Find(".break").Length() > 0 && max < estimatedMinimumPages {
		return estimatedMinimumPages
	}
	return max
}
