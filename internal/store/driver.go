// Package store is the single source of truth for what has already been
// collected. It merges fresh records against the persisted tables and
// writes them back as a group.
package store

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github-repo-analyzer/internal/errors"
)

// Driver is the storage backend contract. Table names are logical
// ("repositories", "users", "pulls/<owner>-<name>"); how they map onto
// bytes is the driver's business.
type Driver interface {
	// ReadTable returns every record of the named table, header included.
	// A missing table is not an error: it yields (nil, nil).
	ReadTable(name string) ([][]string, error)

	// WriteTables persists the given tables as a group. Records include
	// the header row. If any table cannot be written the driver must
	// leave the previously persisted state intact.
	WriteTables(tables map[string][][]string) error

	// Tables lists the names of all existing tables.
	Tables() ([]string, error)
}

// FileDriver stores each table as a CSV file under a data directory,
// using a write-to-temp-then-rename discipline so a failed write never
// clobbers the previous contents.
type FileDriver struct {
	dir string
}

// NewFileDriver returns a driver rooted at dir. The directory is created
// on first write.
func NewFileDriver(dir string) *FileDriver {
	return &FileDriver{dir: dir}
}

func (d *FileDriver) path(table string) string {
	return filepath.Join(d.dir, filepath.FromSlash(table)+".csv")
}

// ReadTable implements Driver.
func (d *FileDriver) ReadTable(table string) ([][]string, error) {
	f, err := os.Open(d.path(table))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table %q: %w", table, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // row width is validated at decode time
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read table %q: %w", table, err)
	}
	return records, nil
}

// WriteTables implements Driver. Every table is first written to a
// temporary file next to its target; only when all writes succeeded are
// the temporaries renamed into place.
func (d *FileDriver) WriteTables(tables map[string][][]string) error {
	type pending struct {
		tmp, final string
	}
	var staged []pending

	cleanup := func() {
		for _, p := range staged {
			os.Remove(p.tmp)
		}
	}

	for table, records := range tables {
		final := d.path(table)
		if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
			cleanup()
			return &apperrors.PersistError{Table: table, Cause: err}
		}

		tmp, err := d.writeTemp(final, records)
		if err != nil {
			cleanup()
			return &apperrors.PersistError{Table: table, Cause: err}
		}
		staged = append(staged, pending{tmp: tmp, final: final})
	}

	for _, p := range staged {
		if err := os.Rename(p.tmp, p.final); err != nil {
			// Renames are near-infallible on a local filesystem once the
			// temp file exists; if one does fail, drop the remaining
			// temporaries rather than leave strays behind.
			cleanup()
			return &apperrors.PersistError{Table: filepath.Base(p.final), Cause: err}
		}
	}
	return nil
}

func (d *FileDriver) writeTemp(final string, records [][]string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(final), filepath.Base(final)+".tmp-*")
	if err != nil {
		return "", err
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Tables implements Driver.
func (d *FileDriver) Tables() ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			return nil
		}
		rel, err := filepath.Rel(d.dir, path)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), ".csv"))
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}
