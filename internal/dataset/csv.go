package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

// Parse reads a delimited table with a header row. Columns whose non-empty
// cells all parse as numbers become Numeric (empty cells are NaN); every
// other column is kept as Text. Errors are *LoadError with Source "input";
// Loader fills in the real source path.
func Parse(r io.Reader) (*Table, error) {
	const source = "input"

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, loadErrorf(source, nil, "no header row")
	}
	if err != nil {
		return nil, loadErrorf(source, err, "malformed header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if i == 0 {
			header[i] = strings.TrimPrefix(header[i], "\ufeff")
		}
		if header[i] == "" {
			return nil, loadErrorf(source, nil, "column %d has an empty name", i+1)
		}
	}

	cells := make([][]string, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, loadErrorf(source, err, "malformed row")
		}
		for j, v := range rec {
			cells[j] = append(cells[j], strings.TrimSpace(v))
		}
	}
	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, loadErrorf(source, nil, "dataset is empty")
	}

	cols := make([]*Column, len(header))
	for j, name := range header {
		cols[j] = buildColumn(name, cells[j])
	}
	t, err := NewTable(cols...)
	if err != nil {
		return nil, loadErrorf(source, err, "malformed header")
	}
	return t, nil
}

func buildColumn(name string, raw []string) *Column {
	values := make([]float64, len(raw))
	seen := false
	for i, s := range raw {
		if s == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return NewTextColumn(name, raw)
		}
		values[i] = v
		seen = true
	}
	if !seen {
		return NewTextColumn(name, raw)
	}
	return NewNumericColumn(name, values)
}

// WriteCSV writes t with a header row, formatting cells as Row does.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
