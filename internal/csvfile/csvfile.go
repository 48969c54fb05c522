// Package csvfile reads and writes tagged row structs as CSV files.
package csvfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// ReadFile parses the CSV file at path into rows of T.
func ReadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer f.Close()
	return Read[T](f)
}

// Read parses CSV from r into rows of T. An input with only a header
// yields an empty slice.
func Read[T any](r io.Reader) ([]T, error) {
	var rows []T
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		if err == gocsv.ErrEmptyCSVFile {
			return []T{}, nil
		}
		return nil, fmt.Errorf("error parsing CSV: %w", err)
	}
	return rows, nil
}

// Write marshals rows with a header line to w.
func Write[T any](w io.Writer, rows []T) error {
	if rows == nil {
		rows = []T{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}

// WriteFile creates path (and its directory) and writes rows to it.
func WriteFile[T any](path string, rows []T) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	if err := Write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
