package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a fully materialized header + rows input file.
type Table struct {
	Header []string
	Rows   [][]string
}

// TableOptions configures ReadTableWith.
type TableOptions struct {
	// Charset decodes CSV input from a legacy encoding. Ignored for .xlsx.
	Charset string
}

// ReadTable reads a UTF-8 .csv or an .xlsx file into memory. The first row is the header.
// The returned error wraps os.ErrNotExist when the file is absent.
func ReadTable(ctx context.Context, path string) (*Table, error) {
	return ReadTableWith(ctx, path, TableOptions{})
}

// ReadTableWith is ReadTable with options.
func ReadTableWith(ctx context.Context, path string, opts TableOptions) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSXTable(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, f, CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
		TrimSpace:  true,
		Charset:    opts.Charset,
	})

	t := &Table{}
	for row := range rowCh {
		t.Rows = append(t.Rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "table: read %s", path)
	}

	select {
	case t.Header = <-headerCh:
	default:
	}

	return t, nil
}

func readXLSXTable(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	rows, err := ReadXLSX(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: read %s", path)
	}
	t := &Table{}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = trimAll(rows[0])
	for _, r := range rows[1:] {
		t.Rows = append(t.Rows, trimAll(r))
	}
	return t, nil
}

// Index returns the position of the header column equal (case-sensitive) to name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns row[idx], or "" when idx is out of range.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
