// Package backup drives the whole run: resume or start the cursor,
// navigate, extract, render, deliver, pace, and clean up.
package backup

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"statusbak/pkg/archive"
	"statusbak/pkg/browser"
	"statusbak/pkg/config"
	"statusbak/pkg/extract"
	"statusbak/pkg/logger"
	"statusbak/pkg/models"
	"statusbak/pkg/render"
	"statusbak/pkg/retry"
	"statusbak/pkg/state"
	"statusbak/pkg/storage"
	"statusbak/pkg/ui"
)

// PageOutcome is the result of backing up one page.
type PageOutcome struct {
	Page     int
	Statuses int
	Failures int
	Path     string
}

// RunSummary is the result of a whole run.
type RunSummary struct {
	Pages      int
	Statuses   int
	Skipped    []int
	BundlePath string
	Cancelled  bool
}

// Runner wires the session, extraction pipeline, renderer, delivery
// and cursor machine into the multi-page loop.
type Runner struct {
	session  browser.Session
	driver   *extract.Driver
	renderer *render.Renderer
	machine  *state.Machine
	store    *storage.Manager
	reporter *ui.Reporter
	cfg      config.BackupConfig
	zip      bool
	clock    clockwork.Clock
	rng      *rand.Rand
	log      logger.Logger
}

// NewRunner assembles a Runner. A nil clock falls back to the real
// one; the pacing source is seeded from it.
func NewRunner(
	session browser.Session,
	driver *extract.Driver,
	machine *state.Machine,
	store *storage.Manager,
	reporter *ui.Reporter,
	cfg config.BackupConfig,
	zip bool,
	clock clockwork.Clock,
) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		session:  session,
		driver:   driver,
		renderer: render.NewRenderer(),
		machine:  machine,
		store:    store,
		reporter: reporter,
		cfg:      cfg,
		zip:      zip,
		clock:    clock,
		rng:      rand.New(rand.NewSource(clock.Now().UnixNano())),
		log:      logger.GetLogger(),
	}
}

// BackupPage backs up a single page under the page deadline: parse
// the current document, extract every status, render and deliver the
// Markdown document.
func (r *Runner) BackupPage(ctx context.Context, page int, userName string) (*PageOutcome, error) {
	pageCtx, cancel := context.WithTimeout(ctx, r.cfg.PageTimeout)
	defer cancel()

	doc, err := r.session.Document(pageCtx)
	if err != nil {
		return nil, err
	}

	result, err := r.driver.ExtractPage(pageCtx, doc)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	content, err := r.renderer.Render(result.Statuses, userName, now)
	if err != nil {
		return nil, err
	}

	path, err := r.store.SavePage(content, userName, page, now)
	if err != nil {
		return nil, err
	}

	logger.LogPageBackup(page, len(result.Statuses), result.Failures, nil)
	return &PageOutcome{
		Page:     page,
		Statuses: len(result.Statuses),
		Failures: result.Failures,
		Path:     path,
	}, nil
}

// Run executes the multi-page loop for the given range. It resumes an
// in-flight run when one exists for the same user; otherwise it starts
// fresh. The loop survives page navigations because every cycle
// reloads the cursor before acting.
func (r *Runner) Run(ctx context.Context, startPage, endPage int) (*RunSummary, error) {
	userName, err := r.session.UserName(ctx)
	if err != nil {
		return nil, err
	}
	originalPage, err := r.session.CurrentPage(ctx)
	if err != nil {
		return nil, err
	}

	if endPage <= 0 {
		total, err := r.session.TotalPages(ctx)
		if err != nil {
			return nil, err
		}
		endPage = total
	}

	st, err := r.machine.Resume()
	if err != nil {
		return nil, err
	}
	if st == nil {
		st, err = r.machine.Start(startPage, endPage, originalPage, userName)
		if err != nil {
			return nil, err
		}
	} else {
		r.log.InfoWithFields("resuming backup run", map[string]interface{}{
			"current_page": st.CurrentPage,
			"processed":    len(st.Processed),
		})
	}

	summary := &RunSummary{}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		browserPage, err := r.session.CurrentPage(ctx)
		if err != nil {
			return summary, err
		}

		action := r.machine.Decide(st, browserPage)
		if action == state.ActionFinish {
			break
		}

		if action == state.ActionNavigate {
			if err := r.navigate(ctx, st.CurrentPage); err != nil {
				r.skipPage(st, summary, err)
				if done, advErr := r.machine.Advance(st); advErr != nil {
					return summary, advErr
				} else if done {
					break
				}
				continue
			}
			// Fall through to extraction on the next cycle so the
			// decision always runs against the page we are really on.
			continue
		}

		r.reporter.PageStart(st.CurrentPage, st.StartPage, st.EndPage)
		outcome, err := r.BackupPage(ctx, st.CurrentPage, st.UserName)
		if err != nil {
			r.skipPage(st, summary, err)
		} else {
			summary.Pages++
			summary.Statuses += outcome.Statuses
			r.reporter.PageDone(outcome.Page, outcome.Statuses, outcome.Failures, outcome.Path)

			// Give the filesystem a moment before leaving the page.
			if err := r.sleep(ctx, r.cfg.SaveGraceDelay); err != nil {
				return summary, err
			}
		}

		done, err := r.machine.Advance(st)
		if err != nil {
			return summary, err
		}
		if done {
			break
		}

		if cancelled, err := r.pace(ctx); err != nil {
			return summary, err
		} else if cancelled {
			summary.Cancelled = true
			r.reporter.Cancelled()
			r.returnToOrigin(ctx, originalPage)
			return summary, nil
		}
	}

	if err := r.finish(ctx, st, originalPage, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// navigate moves the session to a page, retrying transient failures.
func (r *Runner) navigate(ctx context.Context, page int) error {
	cfg := retry.DefaultConfig()
	cfg.Context = ctx
	return retry.Do(func() error {
		return r.session.Navigate(ctx, page)
	}, cfg)
}

// skipPage records a failed page. The cursor still advances so one
// broken page can never wedge the run.
func (r *Runner) skipPage(st *models.BackupState, summary *RunSummary, err error) {
	summary.Skipped = append(summary.Skipped, st.CurrentPage)
	r.reporter.PageSkipped(st.CurrentPage, err.Error())
	r.log.WarnWithFields("skipping page", map[string]interface{}{
		"page":  st.CurrentPage,
		"error": err.Error(),
	})
}

// pace sleeps a randomized delay between pages and re-checks for
// cancellation afterwards, since a cancel may have landed while this
// cycle was asleep.
func (r *Runner) pace(ctx context.Context) (cancelled bool, err error) {
	spread := r.cfg.PacingMax - r.cfg.PacingMin
	delay := r.cfg.PacingMin
	if spread > 0 {
		delay += time.Duration(r.rng.Int63n(int64(spread)))
	}
	r.reporter.Pacing(delay.Seconds())
	if err := r.sleep(ctx, delay); err != nil {
		return false, err
	}
	return r.machine.Cancelled()
}

// returnToOrigin navigates back to the page the run started from.
// Best effort: the backup itself already succeeded or was cancelled.
func (r *Runner) returnToOrigin(ctx context.Context, originalPage int) {
	current, err := r.session.CurrentPage(ctx)
	if err != nil || current == originalPage {
		return
	}
	if err := r.navigate(ctx, originalPage); err != nil {
		r.log.WarnWithFields("failed to return to the original page", map[string]interface{}{
			"page":  originalPage,
			"error": err.Error(),
		})
	}
}

// finish clears the cursor, returns to the page the run started from,
// and packages the delivered documents when requested.
func (r *Runner) finish(ctx context.Context, st *models.BackupState, originalPage int, summary *RunSummary) error {
	if err := r.machine.Finish(st); err != nil {
		return err
	}

	r.returnToOrigin(ctx, originalPage)

	if r.zip {
		delivered := r.store.Delivered()
		paths := make([]string, 0, len(delivered))
		for _, f := range delivered {
			paths = append(paths, f.Path)
		}
		if len(paths) > 0 {
			bundlePath, err := archive.WriteBundle(r.store.BaseDirectory(), st.UserName, paths, r.clock.Now())
			if err != nil {
				return fmt.Errorf("backup succeeded but packaging failed: %w", err)
			}
			summary.BundlePath = bundlePath
		}
	}

	r.reporter.Summary(summary.Pages, summary.Statuses, summary.BundlePath)
	return nil
}

// sleep waits on the runner's clock, honoring cancellation.
func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := r.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
