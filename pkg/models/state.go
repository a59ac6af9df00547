package models

import "time"

// Backup run status values.
const (
	RunStatusRunning = "running"
)

// StateTTL is how long a persisted backup run stays valid. A state
// record older than this is treated as absent and cleared.
const StateTTL = 12 * time.Hour

// BackupState is the durable cursor of a multi-page backup run. It is
// the only thing that survives a page navigation: every cycle reloads
// it, acts, and persists the advanced copy.
type BackupState struct {
	StartPage    int    `json:"startPage"`
	EndPage      int    `json:"endPage"`
	CurrentPage  int    `json:"currentPage"`
	UserName     string `json:"userName"`
	OriginalPage int    `json:"originalPage"`
	Status       string `json:"status"`
	Timestamp    int64  `json:"timestamp"` // unix milliseconds
	Processed    []int  `json:"processed"`
}

// NewBackupState creates a fresh running state for the given page
// range. Callers are expected to have normalized the range so that
// startPage <= endPage.
func NewBackupState(startPage, endPage, originalPage int, userName string, now time.Time) *BackupState {
	return &BackupState{
		StartPage:    startPage,
		EndPage:      endPage,
		CurrentPage:  startPage,
		UserName:     userName,
		OriginalPage: originalPage,
		Status:       RunStatusRunning,
		Timestamp:    now.UnixMilli(),
		Processed:    []int{},
	}
}

// IsExpired reports whether the state is older than StateTTL.
func (s *BackupState) IsExpired(now time.Time) bool {
	return now.UnixMilli()-s.Timestamp > StateTTL.Milliseconds()
}

// MarkProcessed records a page as handled (extracted or skipped).
// Recording the same page twice is a no-op.
func (s *BackupState) MarkProcessed(page int) {
	if s.HasProcessed(page) {
		return
	}
	s.Processed = append(s.Processed, page)
}

// HasProcessed reports whether a page was already handled.
func (s *BackupState) HasProcessed(page int) bool {
	for _, p := range s.Processed {
		if p == page {
			return true
		}
	}
	return false
}

// TotalPages is the number of pages the run covers.
func (s *BackupState) TotalPages() int {
	return s.EndPage - s.StartPage + 1
}

// IsTerminal reports whether the run has covered its range: either
// every page is in Processed or the cursor reached the end page.
func (s *BackupState) IsTerminal() bool {
	return len(s.Processed) >= s.TotalPages() || s.CurrentPage >= s.EndPage
}

// Progress returns the completed fraction in [0, 1].
func (s *BackupState) Progress() float64 {
	total := s.TotalPages()
	if total <= 0 {
		return 1
	}
	return float64(len(s.Processed)) / float64(total)
}
