package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statusbak/pkg/config"
	errs "statusbak/pkg/errors"
	"statusbak/pkg/extract"
	"statusbak/pkg/models"
	"statusbak/pkg/state"
	"statusbak/pkg/storage"
	"statusbak/pkg/ui"
)

func pageHTML(page int) string {
	return fmt.Sprintf(`
<html><head><title>tester的广播</title></head><body>
<div id="db-usr-profile"><div class="info"><h1>tester</h1></div></div>
<div class="stream-items">
	<div class="status-item" data-sid="%d01">
		<a class="created_at" title="2024-06-01 12:00:00" href="https://www.douban.com/people/u1/status/%d01/">6月1日</a>
		<a class="lnk-people" href="https://www.douban.com/people/u1/">tester</a>
		<div class="status-saying"><blockquote><p>第 %d 页的广播</p></blockquote></div>
	</div>
</div>
</body></html>`, page, page, page)
}

// fakeSession serves canned pages from memory.
type fakeSession struct {
	pages   map[int]string
	current int
	failDoc map[int]bool
	navLog  []int
}

func newFakeSession(pageCount int) *fakeSession {
	pages := make(map[int]string, pageCount)
	for p := 1; p <= pageCount; p++ {
		pages[p] = pageHTML(p)
	}
	return &fakeSession{pages: pages, current: 1, failDoc: map[int]bool{}}
}

func (s *fakeSession) CurrentPage(context.Context) (int, error) { return s.current, nil }

func (s *fakeSession) UserName(context.Context) (string, error) { return "tester", nil }

func (s *fakeSession) TotalPages(context.Context) (int, error) { return len(s.pages), nil }

func (s *fakeSession) Document(context.Context) (*goquery.Document, error) {
	if s.failDoc[s.current] {
		return nil, errs.New(errs.ErrorTypeMissingElement, "page failed to load")
	}
	return goquery.NewDocumentFromReader(strings.NewReader(s.pages[s.current]))
}

func (s *fakeSession) Navigate(_ context.Context, page int) error {
	s.navLog = append(s.navLog, page)
	s.current = page
	return nil
}

func (s *fakeSession) RevealComments(context.Context, string) (*goquery.Document, error) {
	return nil, errs.New(errs.ErrorTypeNavigationRequired, "no reveal in tests")
}

func (s *fakeSession) Close() error { return nil }

func testBackupConfig() config.BackupConfig {
	return config.BackupConfig{
		ItemTimeout:    time.Second,
		PageTimeout:    5 * time.Second,
		SettleDelay:    time.Millisecond,
		SaveGraceDelay: 0,
		PacingMin:      time.Millisecond,
		PacingMax:      2 * time.Millisecond,
		FetchComments:  false,
	}
}

func newTestRunner(t *testing.T, session *fakeSession, store state.Store, dir string, zip bool) *Runner {
	t.Helper()
	manager, err := storage.NewManager(config.OutputConfig{
		BaseDirectory:   dir,
		FileNamePattern: config.DefaultFileNamePattern,
	})
	require.NoError(t, err)

	normalizer := extract.NewNormalizer(nil, time.Second, false)
	return NewRunner(
		session,
		extract.NewDriver(normalizer),
		state.NewMachine(store, nil),
		manager,
		ui.NewReporterTo(io.Discard, true),
		testBackupConfig(),
		zip,
		nil,
	)
}

func TestRunCoversRangeAndClearsState(t *testing.T) {
	session := newFakeSession(3)
	store := state.NewMemoryStore()
	dir := t.TempDir()

	runner := newTestRunner(t, session, store, dir, false)
	summary, err := runner.Run(context.Background(), 1, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 3, summary.Statuses)
	assert.Empty(t, summary.Skipped)
	assert.False(t, summary.Cancelled)

	// The cursor must be gone and the session back where it started.
	st, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.Equal(t, 1, session.current)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRunSkipsFailedPage(t *testing.T) {
	session := newFakeSession(5)
	session.failDoc[4] = true
	store := state.NewMemoryStore()

	runner := newTestRunner(t, session, store, t.TempDir(), false)
	summary, err := runner.Run(context.Background(), 3, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Pages)
	assert.Equal(t, []int{4}, summary.Skipped)

	// A failed page still counts as processed, so the run terminates
	// and leaves no cursor behind.
	st, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	session := newFakeSession(3)
	store := &droppingStore{inner: state.NewMemoryStore(), dropAfterSets: 2}

	runner := newTestRunner(t, session, store, t.TempDir(), false)
	summary, err := runner.Run(context.Background(), 1, 3)
	require.NoError(t, err)

	assert.True(t, summary.Cancelled)
	assert.Equal(t, 1, summary.Pages, "the cancel lands during pacing, after one page")
}

func TestRunPackagesZip(t *testing.T) {
	session := newFakeSession(2)
	store := state.NewMemoryStore()
	dir := t.TempDir()

	runner := newTestRunner(t, session, store, dir, true)
	summary, err := runner.Run(context.Background(), 1, 2)
	require.NoError(t, err)

	require.NotEmpty(t, summary.BundlePath)
	info, err := os.Stat(summary.BundlePath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.Equal(t, ".zip", filepath.Ext(summary.BundlePath))
}

func TestBackupPageRendersDocument(t *testing.T) {
	session := newFakeSession(1)
	store := state.NewMemoryStore()
	dir := t.TempDir()

	runner := newTestRunner(t, session, store, dir, false)
	outcome, err := runner.BackupPage(context.Background(), 1, "tester")
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Statuses)
	content, err := os.ReadFile(outcome.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# 豆瓣用户 tester 的广播备份")
	assert.Contains(t, string(content), "## 广播 101")
	assert.Contains(t, string(content), "第 1 页的广播")
}

// droppingStore simulates a cancel landing mid-run: after a number of
// saves the record reads as absent.
type droppingStore struct {
	inner         *state.MemoryStore
	dropAfterSets int
	sets          int
}

func (s *droppingStore) Get() (*models.BackupState, error) {
	if s.sets >= s.dropAfterSets {
		return nil, nil
	}
	return s.inner.Get()
}

func (s *droppingStore) Set(st *models.BackupState) error {
	s.sets++
	return s.inner.Set(st)
}

func (s *droppingStore) Remove() error {
	return s.inner.Remove()
}
