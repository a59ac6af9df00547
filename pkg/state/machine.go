package state

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	errs "statusbak/pkg/errors"
	"statusbak/pkg/logger"
	"statusbak/pkg/models"
)

// Action is what the run loop should do next for the loaded cursor.
type Action int

const (
	// ActionNavigate means the browser is not on the cursor's page yet.
	ActionNavigate Action = iota
	// ActionExtract means the current page is the cursor's page and
	// should be backed up.
	ActionExtract
	// ActionFinish means the range is covered and the run should clean
	// up and return to the original page.
	ActionFinish
)

func (a Action) String() string {
	switch a {
	case ActionNavigate:
		return "navigate"
	case ActionExtract:
		return "extract"
	case ActionFinish:
		return "finish"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Machine drives the backup cursor: resume-or-start, the per-cycle
// decision, advancing, and cancellation. It owns no navigation or
// extraction; it only decides and persists.
type Machine struct {
	store Store
	clock clockwork.Clock
	log   logger.Logger
}

// NewMachine creates a Machine over the given store. A nil clock
// falls back to the real one.
func NewMachine(store Store, clock clockwork.Clock) *Machine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Machine{
		store: store,
		clock: clock,
		log:   logger.GetLogger(),
	}
}

// Resume loads a usable in-flight cursor. Expired records are cleared
// and reported as absent. Corrupt records are cleared too, so one bad
// write can never wedge every later run.
func (m *Machine) Resume() (*models.BackupState, error) {
	st, err := m.store.Get()
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeStateCorrupt {
			m.log.WarnWithFields("clearing corrupt state record", map[string]interface{}{
				"error": err.Error(),
			})
			if rmErr := m.store.Remove(); rmErr != nil {
				return nil, rmErr
			}
			return nil, nil
		}
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	if st.IsExpired(m.clock.Now()) {
		m.log.InfoWithFields("clearing expired state record", map[string]interface{}{
			"age_hours": float64(m.clock.Now().UnixMilli()-st.Timestamp) / float64(3600*1000),
		})
		if err := m.store.Remove(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return st, nil
}

// Start creates and persists a fresh cursor for the page range.
func (m *Machine) Start(startPage, endPage, originalPage int, userName string) (*models.BackupState, error) {
	if startPage > endPage {
		startPage, endPage = endPage, startPage
	}
	st := models.NewBackupState(startPage, endPage, originalPage, userName, m.clock.Now())
	if err := m.store.Set(st); err != nil {
		return nil, err
	}
	m.log.InfoWithFields("backup run started", map[string]interface{}{
		"start_page": startPage,
		"end_page":   endPage,
		"user":       userName,
	})
	return st, nil
}

// Decide maps the cursor and the browser's current page to the next
// action for this cycle.
func (m *Machine) Decide(st *models.BackupState, browserPage int) Action {
	if st.IsTerminal() && st.HasProcessed(st.CurrentPage) {
		return ActionFinish
	}
	if browserPage != st.CurrentPage {
		return ActionNavigate
	}
	return ActionExtract
}

// Advance marks the cursor's page as processed and moves to the next
// page, refreshing the timestamp so a slow run does not expire
// mid-flight. It persists the updated cursor and reports whether the
// run is now complete.
func (m *Machine) Advance(st *models.BackupState) (done bool, err error) {
	st.MarkProcessed(st.CurrentPage)
	atEnd := st.CurrentPage >= st.EndPage
	if !atEnd {
		st.CurrentPage++
	}
	st.Timestamp = m.clock.Now().UnixMilli()

	done = atEnd || len(st.Processed) >= st.TotalPages()
	return done, m.store.Set(st)
}

// Finish clears the cursor at the end of a completed run.
func (m *Machine) Finish(st *models.BackupState) error {
	m.log.InfoWithFields("backup run finished", map[string]interface{}{
		"pages": len(st.Processed),
		"user":  st.UserName,
	})
	return m.store.Remove()
}

// Cancel clears any persisted cursor. Cancelling when no run is in
// flight is a no-op.
func (m *Machine) Cancel() error {
	return m.store.Remove()
}

// Cancelled reports whether the cursor disappeared from the store, as
// happens when a cancel ran while this cycle was paced or extracting.
func (m *Machine) Cancelled() (bool, error) {
	st, err := m.store.Get()
	if err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeStateCorrupt {
			return true, nil
		}
		return false, err
	}
	return st == nil, nil
}
