package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "statusbak/pkg/errors"
	"statusbak/pkg/logger"
)

// SnapshotSession reads timeline pages saved as page_<n>.html files.
// It cannot run page scripts, so in-place comment reveal is reported
// as requiring navigation and the pipeline degrades to placeholders.
type SnapshotSession struct {
	dir     string
	current int
	pages   []int
	log     logger.Logger
}

// NewSnapshotSession opens a directory of saved pages. The session
// starts on the lowest page present.
func NewSnapshotSession(dir string) (*SnapshotSession, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot directory: %w", err)
	}

	var pages []int
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "page_") || !strings.HasSuffix(name, ".html") {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, "page_"), ".html")
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			pages = append(pages, n)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page_<n>.html files in %s", dir)
	}
	sort.Ints(pages)

	return &SnapshotSession{
		dir:     dir,
		current: pages[0],
		pages:   pages,
		log:     logger.GetLogger(),
	}, nil
}

// CurrentPage implements Session.
func (s *SnapshotSession) CurrentPage(_ context.Context) (int, error) {
	return s.current, nil
}

// UserName implements Session.
func (s *SnapshotSession) UserName(ctx context.Context) (string, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return "", err
	}
	return userNameFromDoc(doc), nil
}

// TotalPages implements Session. The highest saved page wins over the
// paginator estimate: the snapshot is the whole universe here.
func (s *SnapshotSession) TotalPages(_ context.Context) (int, error) {
	return s.pages[len(s.pages)-1], nil
}

// Document implements Session.
func (s *SnapshotSession) Document(_ context.Context) (*goquery.Document, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("page_%d.html", s.current))
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNavigation,
			fmt.Sprintf("snapshot for page %d is missing", s.current), err)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNavigation,
			fmt.Sprintf("snapshot for page %d is not parseable", s.current), err)
	}
	return doc, nil
}

// Navigate implements Session. Moving to a page with no saved file is
// a navigation error; the run loop treats the page as skipped.
func (s *SnapshotSession) Navigate(_ context.Context, page int) error {
	path := filepath.Join(s.dir, fmt.Sprintf("page_%d.html", page))
	if _, err := os.Stat(path); err != nil {
		return errs.Wrap(errs.ErrorTypeNavigation,
			fmt.Sprintf("no snapshot for page %d", page), err)
	}
	s.current = page
	s.log.DebugWithFields("snapshot page selected", map[string]interface{}{
		"page": page,
	})
	return nil
}

// RevealComments implements Session. Snapshots cannot run the reveal
// script.
func (s *SnapshotSession) RevealComments(_ context.Context, statusID string) (*goquery.Document, error) {
	return nil, errs.New(errs.ErrorTypeNavigationRequired,
		fmt.Sprintf("snapshot session cannot reveal comments for status %s", statusID))
}

// Close implements Session.
func (s *SnapshotSession) Close() error {
	return nil
}
