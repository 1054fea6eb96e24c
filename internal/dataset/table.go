package dataset

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the storage type of a column.
type Kind int

const (
	// Numeric columns hold float64 values; missing cells are NaN.
	Numeric Kind = iota
	// Text columns hold the raw cell strings.
	Text
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column is one named column of a Table. Exactly one of Values or Strings
// is populated, depending on Kind.
type Column struct {
	Name    string
	Kind    Kind
	Values  []float64
	Strings []string
}

// NewNumericColumn builds a numeric column.
func NewNumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Values: values}
}

// NewTextColumn builds a text column.
func NewTextColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: Text, Strings: values}
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Values)
	}
	return len(c.Strings)
}

// Format renders cell i for display.
func (c *Column) Format(i int) string {
	if c.Kind == Text {
		return c.Strings[i]
	}
	v := c.Values[i]
	switch {
	case math.IsNaN(v):
		return ""
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return strconv.FormatInt(int64(v), 10)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// Table is an ordered, column-oriented set of rows. A Table is immutable
// once built: WithIntColumn returns a new Table that shares the existing
// columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable assembles columns into a table. All columns must have the same
// length and distinct names.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Columns returns the column names in source order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Numeric returns the values of a numeric column. The returned slice is
// shared with the table and must not be modified.
func (t *Table) Numeric(name string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrColumnNotFound)
	}
	if c.Kind != Numeric {
		return nil, fmt.Errorf("%q: %w", name, ErrNotNumeric)
	}
	return c.Values, nil
}

// WithIntColumn returns a copy of t with an integer column appended, or
// replaced when a column of that name already exists. t is not modified.
func (t *Table) WithIntColumn(name string, values []int) (*Table, error) {
	if len(values) != t.rows {
		return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(values), t.rows)
	}
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = float64(v)
	}
	added := NewNumericColumn(name, floats)

	cols := make([]*Column, 0, len(t.columns)+1)
	replaced := false
	for _, c := range t.columns {
		if c.Name == name {
			cols = append(cols, added)
			replaced = true
			continue
		}
		cols = append(cols, c)
	}
	if !replaced {
		cols = append(cols, added)
	}
	return NewTable(cols...)
}

// Row renders row i as display strings in column order.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.columns))
	for j, c := range t.columns {
		out[j] = c.Format(i)
	}
	return out
}
