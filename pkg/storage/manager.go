// Package storage delivers rendered backup documents to disk and
// remembers what was delivered so a run can be packaged afterwards.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"statusbak/pkg/config"
	"statusbak/pkg/logger"
)

// DeliveredFile records one document written during a run.
type DeliveredFile struct {
	Name string
	Path string
	Page int
}

// Manager writes backup documents under the output directory using
// the configured file name pattern.
type Manager struct {
	baseDir   string
	pattern   string
	delivered []DeliveredFile
	log       logger.Logger
}

// NewManager creates a storage manager for the output settings.
func NewManager(cfg config.OutputConfig) (*Manager, error) {
	if err := os.MkdirAll(cfg.BaseDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	pattern := cfg.FileNamePattern
	if pattern == "" {
		pattern = config.DefaultFileNamePattern
	}
	return &Manager{
		baseDir: cfg.BaseDirectory,
		pattern: pattern,
		log:     logger.GetLogger(),
	}, nil
}

// FileName resolves the document name for a user, page and date.
// Spaces in the user name are flattened so the name stays portable.
func (m *Manager) FileName(userName string, page int, date time.Time) string {
	name := m.pattern
	name = strings.ReplaceAll(name, "{user}", sanitizeName(userName))
	name = strings.ReplaceAll(name, "{page}", strconv.Itoa(page))
	name = strings.ReplaceAll(name, "{date}", date.Format("2006-01-02"))
	return name
}

// SavePage writes one page's document atomically and records the
// delivery. It returns the final path.
func (m *Manager) SavePage(content, userName string, page int, date time.Time) (string, error) {
	name := m.FileName(userName, page, date)
	path := filepath.Join(m.baseDir, name)

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to finalize document: %w", err)
	}

	m.delivered = append(m.delivered, DeliveredFile{Name: name, Path: path, Page: page})
	m.log.InfoWithFields("page document saved", map[string]interface{}{
		"page": page,
		"path": path,
		"size": len(content),
	})
	return path, nil
}

// Delivered lists the documents written so far, in delivery order.
func (m *Manager) Delivered() []DeliveredFile {
	return append([]DeliveredFile(nil), m.delivered...)
}

// BaseDirectory returns the output root.
func (m *Manager) BaseDirectory() string {
	return m.baseDir
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
	)
	name = replacer.Replace(name)
	if name == "" {
		return "unknown"
	}
	return name
}
