package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	errs "statusbak/pkg/errors"
	"statusbak/pkg/logger"
)

// ChromeSession drives a real Chrome instance. It is the only session
// kind that can reveal in-place comment lists, because the reveal is a
// page script the site runs on click.
type ChromeSession struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	startURL    string
	settleDelay time.Duration
	log         logger.Logger
}

// ChromeOptions configures a live session.
type ChromeOptions struct {
	StartURL    string
	Headless    bool
	SettleDelay time.Duration
}

// NewChromeSession launches Chrome and opens the start URL. The
// returned session must be closed.
func NewChromeSession(ctx context.Context, opts ChromeOptions) (*ChromeSession, error) {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 500 * time.Millisecond
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &ChromeSession{
		ctx:         browserCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		startURL:    opts.StartURL,
		settleDelay: opts.SettleDelay,
		log:         logger.GetLogger(),
	}

	if err := chromedp.Run(browserCtx, chromedp.Navigate(opts.StartURL)); err != nil {
		s.Close()
		return nil, errs.Wrap(errs.ErrorTypeNavigation,
			fmt.Sprintf("failed to open %s", opts.StartURL), err)
	}
	return s, nil
}

// CurrentPage implements Session.
func (s *ChromeSession) CurrentPage(ctx context.Context) (int, error) {
	var location string
	if err := s.run(ctx, chromedp.Location(&location)); err != nil {
		return 0, errs.Wrap(errs.ErrorTypeNavigation, "failed to read location", err)
	}
	return pageFromURL(location), nil
}

// UserName implements Session.
func (s *ChromeSession) UserName(ctx context.Context) (string, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return "", err
	}
	return userNameFromDoc(doc), nil
}

// TotalPages implements Session.
func (s *ChromeSession) TotalPages(ctx context.Context) (int, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return 0, err
	}
	return totalPagesFromDoc(doc), nil
}

// Document implements Session.
func (s *ChromeSession) Document(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNavigation, "failed to read page markup", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNavigation, "failed to parse page markup", err)
	}
	return doc, nil
}

// Navigate implements Session.
func (s *ChromeSession) Navigate(ctx context.Context, page int) error {
	target := withPageParam(s.startURL, page)
	s.log.InfoWithFields("navigating", map[string]interface{}{
		"page": page,
		"url":  target,
	})
	if err := s.run(ctx, chromedp.Navigate(target)); err != nil {
		return errs.Wrap(errs.ErrorTypeNavigation,
			fmt.Sprintf("failed to navigate to page %d", page), err)
	}
	return nil
}

// RevealComments implements Session. It clicks the status's reply
// trigger, waits the settle delay for the asynchronous list to render,
// and returns the refreshed document.
func (s *ChromeSession) RevealComments(ctx context.Context, statusID string) (*goquery.Document, error) {
	trigger := fmt.Sprintf(`.status-item[data-sid=%q] .btn-action-reply`, statusID)
	err := s.run(ctx,
		chromedp.Click(trigger, chromedp.ByQuery),
		chromedp.Sleep(s.settleDelay),
	)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeCommentFetch,
			fmt.Sprintf("failed to activate reply trigger for status %s", statusID), err)
	}
	return s.Document(ctx)
}

// Close implements Session.
func (s *ChromeSession) Close() error {
	s.cancelCtx()
	s.cancelAlloc()
	return nil
}

// run executes chromedp actions, honoring the caller's deadline on
// top of the browser context.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}
