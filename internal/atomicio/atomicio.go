// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package atomicio replaces files atomically, keeping a bounded set of
// timestamped backups of previous versions.
package atomicio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const backupTimeFormat = "20060102150405.000000000"

// DefaultBackups is the number of backups WriteFile keeps.
const DefaultBackups = 10

// Writer replaces files atomically.
type Writer struct {
	// Backups is how many previous versions are kept next to the file as
	// <name>.<timestamp>.bak. Zero disables backups.
	Backups int

	now func() time.Time
}

// WriteFile writes data to name atomically with [DefaultBackups] backups.
func WriteFile(name string, data []byte, perm fs.FileMode) error {
	w := &Writer{Backups: DefaultBackups}
	return w.WriteFile(name, data, perm)
}

// WriteFile writes data to a temporary file next to name and renames it over
// name, so readers never observe a partially written file.
func (w *Writer) WriteFile(name string, data []byte, perm fs.FileMode) (err error) {
	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Chmod(perm); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if w.Backups > 0 {
		if err := w.backup(name); err != nil {
			return err
		}
	}
	if err := os.Rename(f.Name(), name); err != nil {
		return err
	}
	if w.Backups > 0 {
		return w.prune(name)
	}
	return nil
}

func (w *Writer) backup(name string) error {
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	old, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(name+"."+now().UTC().Format(backupTimeFormat)+".bak", old, 0o600)
}

// Backups returns the backups of name, oldest first.
func Backups(name string) ([]string, error) {
	matches, err := filepath.Glob(name + ".*.bak")
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}

func (w *Writer) prune(name string) error {
	backups, err := Backups(name)
	if err != nil {
		return err
	}
	if len(backups) <= w.Backups {
		return nil
	}
	var errs []error
	for _, b := range backups[:len(backups)-w.Backups] {
		if err := os.Remove(b); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
