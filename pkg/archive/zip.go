// Package archive bundles a run's backup documents into one zip.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	errs "statusbak/pkg/errors"
	"statusbak/pkg/logger"
)

// File is one named document going into the bundle.
type File struct {
	Name    string
	Content []byte
}

// ZipName resolves the bundle name for a user and date.
func ZipName(userName string, date time.Time) string {
	return fmt.Sprintf("douban_status_%s_%s.zip", userName, date.Format("2006-01-02"))
}

// Build assembles the zip bytes for the given files, preserving their
// order. An empty file list yields an error rather than an empty zip.
func Build(files []File) ([]byte, error) {
	if len(files) == 0 {
		return nil, errs.New(errs.ErrorTypePackaging, "no documents to package")
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		entry, err := w.Create(f.Name)
		if err != nil {
			w.Close()
			return nil, errs.Wrap(errs.ErrorTypePackaging,
				fmt.Sprintf("failed to add %s to archive", f.Name), err)
		}
		if _, err := entry.Write(f.Content); err != nil {
			w.Close()
			return nil, errs.Wrap(errs.ErrorTypePackaging,
				fmt.Sprintf("failed to write %s into archive", f.Name), err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypePackaging, "failed to finalize archive", err)
	}
	return buf.Bytes(), nil
}

// WriteBundle packages documents read from disk into a zip under dir.
// It returns the bundle path.
func WriteBundle(dir, userName string, paths []string, date time.Time) (string, error) {
	log := logger.GetLogger()

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return "", errs.Wrap(errs.ErrorTypePackaging,
				fmt.Sprintf("failed to read %s", p), err)
		}
		files = append(files, File{Name: filepath.Base(p), Content: content})
	}

	data, err := Build(files)
	if err != nil {
		return "", err
	}

	bundlePath := filepath.Join(dir, ZipName(userName, date))
	if err := os.WriteFile(bundlePath, data, 0644); err != nil {
		return "", errs.Wrap(errs.ErrorTypePackaging, "failed to write archive", err)
	}

	log.InfoWithFields("archive written", map[string]interface{}{
		"path":  bundlePath,
		"files": len(files),
		"bytes": len(data),
	})
	return bundlePath, nil
}
