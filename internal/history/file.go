// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.astrophena.name/postbot/internal/atomicio"
)

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

// appendFile appends data to path, creating it if needed, and makes sure data
// starts on a new line.
func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if size := fi.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			f.Close()
			return err
		}
		if last[0] != '\n' {
			data = append([]byte{'\n'}, data...)
		}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// textStore keeps one link per line.
type textStore struct {
	path string
}

func (s *textStore) lines() ([]string, error) {
	b, err := readFile(s.path)
	if err != nil {
		return nil, err
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func (s *textStore) Load(context.Context) (Set, error) {
	lines, err := s.lines()
	if err != nil {
		return nil, err
	}
	set := make(Set, len(lines))
	for _, l := range lines {
		set.Add(l)
	}
	return set, nil
}

func (s *textStore) Append(_ context.Context, r Record) error {
	return appendFile(s.path, []byte(r.Link+"\n"))
}

func (s *textStore) Prune(_ context.Context, keep int) error {
	lines, err := s.lines()
	if err != nil {
		return err
	}
	if len(lines) <= keep {
		return nil
	}
	lines = lines[len(lines)-keep:]
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l + "\n")
	}
	return atomicio.WriteFile(s.path, buf.Bytes(), 0o644)
}

func (s *textStore) Close() error { return nil }

// csvHeader is the header of CSV history files.
var csvHeader = []string{"Date", "Company", "Role", "Batch", "Link", "Source"}

const (
	csvDateFormat = "2006-01-02"
	csvLinkColumn = 4
)

// csvStore keeps records in a CSV file with csvHeader.
type csvStore struct {
	path string
}

func (s *csvStore) rows() ([][]string, error) {
	b, err := readFile(s.path)
	if err != nil || len(b) == 0 {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("history: reading %s: %w", s.path, err)
	}
	if len(rows) > 0 && len(rows[0]) > csvLinkColumn && rows[0][csvLinkColumn] == csvHeader[csvLinkColumn] {
		rows = rows[1:]
	}
	return rows, nil
}

func (s *csvStore) Load(context.Context) (Set, error) {
	rows, err := s.rows()
	if err != nil {
		return nil, err
	}
	set := make(Set, len(rows))
	for _, row := range rows {
		if len(row) <= csvLinkColumn {
			continue
		}
		if link := strings.TrimSpace(row[csvLinkColumn]); link != "" {
			set.Add(link)
		}
	}
	return set, nil
}

func csvRow(r Record) []string {
	var date string
	if !r.Date.IsZero() {
		date = r.Date.Format(csvDateFormat)
	}
	return []string{date, r.Company, r.Role, r.Batch, r.Link, r.Source}
}

func encodeCSV(rows ...[]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *csvStore) Append(_ context.Context, r Record) error {
	rows := [][]string{csvRow(r)}
	fi, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && fi.Size() == 0) {
		rows = append([][]string{csvHeader}, rows...)
	} else if err != nil {
		return err
	}
	b, err := encodeCSV(rows...)
	if err != nil {
		return err
	}
	return appendFile(s.path, b)
}

func (s *csvStore) Prune(_ context.Context, keep int) error {
	rows, err := s.rows()
	if err != nil {
		return err
	}
	if len(rows) <= keep {
		return nil
	}
	b, err := encodeCSV(append([][]string{csvHeader}, rows[len(rows)-keep:]...)...)
	if err != nil {
		return err
	}
	return atomicio.WriteFile(s.path, b, 0o644)
}

func (s *csvStore) Close() error { return nil }

// jsonStore keeps a JSON array of records and rewrites it atomically.
type jsonStore struct {
	path string
}

func (s *jsonStore) records() ([]Record, error) {
	b, err := readFile(s.path)
	if err != nil || len(bytes.TrimSpace(b)) == 0 {
		return nil, err
	}
	var recs []Record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("history: reading %s: %w", s.path, err)
	}
	return recs, nil
}

func (s *jsonStore) write(recs []Record) error {
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return atomicio.WriteFile(s.path, append(b, '\n'), 0o644)
}

func (s *jsonStore) Load(context.Context) (Set, error) {
	recs, err := s.records()
	if err != nil {
		return nil, err
	}
	set := make(Set, len(recs))
	for _, r := range recs {
		set.Add(r.Link)
	}
	return set, nil
}

func (s *jsonStore) Append(_ context.Context, r Record) error {
	recs, err := s.records()
	if err != nil {
		return err
	}
	for _, existing := range recs {
		if existing.Link == r.Link {
			return nil
		}
	}
	if r.Date.IsZero() {
		r.Date = time.Now().UTC()
	}
	return s.write(append(recs, r))
}

func (s *jsonStore) Prune(_ context.Context, keep int) error {
	recs, err := s.records()
	if err != nil {
		return err
	}
	if len(recs) <= keep {
		return nil
	}
	return s.write(recs[len(recs)-keep:])
}

func (s *jsonStore) Close() error { return nil }

var (
	_ Pruner = (*textStore)(nil)
	_ Pruner = (*csvStore)(nil)
	_ Pruner = (*jsonStore)(nil)
)
