// Package storage manages the on-disk upload and output folders.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Store owns the uploads/ and outputs/ directories.
type Store struct {
	UploadDir string
	OutputDir string
}

func New(uploadDir, outputDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create %s: %w", dir, err)
		}
	}
	return &Store{UploadDir: uploadDir, OutputDir: outputDir}, nil
}

// SaveUpload writes an uploaded file under a run-unique name and returns
// the stored path.
func (s *Store) SaveUpload(runID string, header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open upload: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s_%s", runID, SanitizeFilename(header.Filename))
	dst := filepath.Join(s.UploadDir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", dst, err)
	}
	return dst, nil
}

// ReadCSV parses a stored CSV into a header row plus data rows. Ragged
// rows are tolerated; the schema layer handles short rows.
func ReadCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("storage: parse csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("storage: empty csv")
	}
	return all[0], all[1:], nil
}

// OutputPath resolves a filename inside the output dir, rejecting any
// path that would escape it.
func (s *Store) OutputPath(filename string) (string, error) {
	clean := filepath.Base(filepath.Clean(filename))
	if clean != filename || clean == "." || clean == ".." {
		return "", fmt.Errorf("storage: invalid output filename %q", filename)
	}
	return filepath.Join(s.OutputDir, clean), nil
}

// NewRunID returns a unique id for one analysis run.
func NewRunID() string {
	return uuid.New().String()
}

// SanitizeFilename strips path components and unsafe characters from a
// client-supplied filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "upload.csv"
	}
	return name
}
