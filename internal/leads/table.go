package leads

// Dataset is the read-only view of a lead table used by the metrics and
// filter engines. Implementations must not change between calls.
type Dataset interface {
	// Columns returns the column names in source order.
	Columns() []string

	// Len returns the number of rows.
	Len() int

	// Value returns the cell at row for column. ok is false when the column
	// does not exist or the cell is empty.
	Value(row int, column string) (value string, ok bool)
}

// Table is an immutable, ordered set of rows sharing one column set.
// A nil *Table is a valid empty table with no columns.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// HasColumn reports whether column is part of the column set.
func (t *Table) HasColumn(column string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[column]
	return ok
}

// Value implements Dataset.
func (t *Table) Value(row int, column string) (string, bool) {
	if t == nil || row < 0 || row >= len(t.rows) {
		return "", false
	}
	i, ok := t.index[column]
	if !ok {
		return "", false
	}
	v := t.rows[row][i]
	return v, v != ""
}

// Row returns a copy of the cells of row in column order.
func (t *Table) Row(row int) []string {
	if t == nil || row < 0 || row >= len(t.rows) {
		return nil
	}
	out := make([]string, len(t.rows[row]))
	copy(out, t.rows[row])
	return out
}

// Builder accumulates rows for a new Table. The zero value is not usable;
// call NewBuilder.
type Builder struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewBuilder returns a Builder for the given column set. Duplicate names are
// kept as given; lookups by name resolve to the first occurrence.
func NewBuilder(columns []string) *Builder {
	cols := make([]string, len(columns))
	copy(cols, columns)
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	return &Builder{columns: cols, index: idx}
}

// Append adds one row. Missing trailing cells are stored as empty; cells
// beyond the column count are dropped.
func (b *Builder) Append(cells ...string) {
	row := make([]string, len(b.columns))
	copy(row, cells)
	b.rows = append(b.rows, row)
}

// AppendMap adds one row from a column-name keyed map. Unknown keys are ignored.
func (b *Builder) AppendMap(cells map[string]string) {
	row := make([]string, len(b.columns))
	for k, v := range cells {
		if i, ok := b.index[k]; ok {
			row[i] = v
		}
	}
	b.rows = append(b.rows, row)
}

// Table returns the built Table. The Builder must not be used afterwards.
func (b *Builder) Table() *Table {
	t := &Table{columns: b.columns, index: b.index, rows: b.rows}
	b.rows = nil
	return t
}

// Select returns a new Table holding rows of ds at the given indices, in the
// given order, with every column of ds. Out-of-range indices are skipped.
func Select(ds Dataset, rows []int) *Table {
	if t, ok := ds.(*Table); ok {
		if t == nil {
			return &Table{index: map[string]int{}}
		}
		out := &Table{columns: t.columns, index: t.index, rows: make([][]string, 0, len(rows))}
		for _, r := range rows {
			if r >= 0 && r < len(t.rows) {
				// Rows are never mutated after construction, so sharing is safe.
				out.rows = append(out.rows, t.rows[r])
			}
		}
		return out
	}

	if ds == nil {
		return &Table{index: map[string]int{}}
	}
	cols := ds.Columns()
	b := NewBuilder(cols)
	n := ds.Len()
	for _, r := range rows {
		if r < 0 || r >= n {
			continue
		}
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i], _ = ds.Value(r, c)
		}
		b.Append(cells...)
	}
	return b.Table()
}

// Project returns a new Table with only the given columns, renamed through
// labels. Columns not present in ds are skipped. An empty label keeps the
// original column name.
func Project(ds Dataset, columns []string, labels map[string]string) *Table {
	if ds == nil {
		return &Table{index: map[string]int{}}
	}
	present := make(map[string]bool)
	for _, c := range ds.Columns() {
		present[c] = true
	}

	var keep, names []string
	for _, c := range columns {
		if !present[c] {
			continue
		}
		keep = append(keep, c)
		name := c
		if l := labels[c]; l != "" {
			name = l
		}
		names = append(names, name)
	}

	b := NewBuilder(names)
	for r := 0; r < ds.Len(); r++ {
		cells := make([]string, len(keep))
		for i, c := range keep {
			cells[i], _ = ds.Value(r, c)
		}
		b.Append(cells...)
	}
	return b.Table()
}
