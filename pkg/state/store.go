// Package state persists and drives the multi-page backup cursor.
// The cursor is the only memory that survives a page navigation, so
// every write is atomic and every read tolerates a missing record.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	errs "statusbak/pkg/errors"
	"statusbak/pkg/logger"
	"statusbak/pkg/models"
)

// StateKey names the persisted cursor record.
const StateKey = "doubanBackupState"

// Store persists the backup cursor. Get returns (nil, nil) when no
// record exists; a record that cannot be decoded surfaces as a
// state-corrupt error so the caller can clear it.
type Store interface {
	Get() (*models.BackupState, error)
	Set(state *models.BackupState) error
	Remove() error
}

// FileStore keeps the cursor as a JSON file in the per-user data
// directory, written with the write-temp-then-rename pattern.
type FileStore struct {
	path string
	log  logger.Logger
}

// NewFileStore creates a FileStore under the platform data directory.
func NewFileStore() (*FileStore, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return &FileStore{
		path: filepath.Join(dataDir, StateKey+".json"),
		log:  logger.GetLogger(),
	}, nil
}

// NewFileStoreAt creates a FileStore rooted at an explicit directory.
func NewFileStoreAt(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{
		path: filepath.Join(dir, StateKey+".json"),
		log:  logger.GetLogger(),
	}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Get loads the persisted cursor.
func (s *FileStore) Get() (*models.BackupState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state models.BackupState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStateCorrupt, "state record is not valid JSON", err)
	}
	if state.Status == "" || state.StartPage <= 0 || state.EndPage < state.StartPage {
		return nil, errs.New(errs.ErrorTypeStateCorrupt,
			fmt.Sprintf("state record has an invalid page range %d..%d", state.StartPage, state.EndPage))
	}
	return &state, nil
}

// Set persists the cursor atomically.
func (s *FileStore) Set(state *models.BackupState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	s.log.DebugWithFields("state saved", map[string]interface{}{
		"current_page": state.CurrentPage,
		"processed":    len(state.Processed),
	})
	return nil
}

// Remove deletes the cursor. Removing an absent record is a no-op.
func (s *FileStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

// MemoryStore keeps the cursor in process memory. It backs tests and
// single-page runs that never navigate.
type MemoryStore struct {
	state *models.BackupState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (s *MemoryStore) Get() (*models.BackupState, error) {
	if s.state == nil {
		return nil, nil
	}
	clone := *s.state
	clone.Processed = append([]int(nil), s.state.Processed...)
	return &clone, nil
}

// Set implements Store.
func (s *MemoryStore) Set(state *models.BackupState) error {
	clone := *state
	clone.Processed = append([]int(nil), state.Processed...)
	s.state = &clone
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove() error {
	s.state = nil
	return nil
}

// getDataDirectory returns the per-user data directory for this OS.
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "statusbak")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "statusbak")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "statusbak")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "statusbak")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
