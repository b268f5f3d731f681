package leads

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformed is returned (wrapped) when the CSV input cannot be turned
// into a table: no header, unparseable quoting, or a row wider than the
// header.
var ErrMalformed = errors.New("malformed csv")

const utf8BOM = "\ufeff"

// Load reads a CSV document with a header row from r. Rows shorter than the
// header are padded with empty cells. Any required column of schema that the
// header lacks is appended and filled with Placeholder for every row.
func Load(r io.Reader, schema Schema) (*Table, error) {
	schema = schema.WithDefaults()

	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("leads: %w: missing header row", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("leads: %w: %v", ErrMalformed, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	columns := dedupeHeader(header)

	var missing []string
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	for _, c := range schema.Required() {
		if !have[c] {
			missing = append(missing, c)
			have[c] = true
		}
	}

	b := NewBuilder(append(columns, missing...))
	width := len(columns)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("leads: %w: %v", ErrMalformed, err)
		}
		if len(rec) > width {
			return nil, fmt.Errorf("leads: %w: line %d has %d fields, header has %d",
				ErrMalformed, line, len(rec), width)
		}
		row := make([]string, width+len(missing))
		copy(row, rec)
		for i := range missing {
			row[width+i] = Placeholder
		}
		b.Append(row...)
	}
	return b.Table(), nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string, schema Schema) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("leads: open %q: %w", path, err)
	}
	defer f.Close()
	return Load(f, schema)
}

// WriteCSV writes ds as CSV: one header row, then every row in order.
// Fields are quoted only when needed and rows end with "\n". A record made of
// a single empty field is written as "" so readers do not skip it as a blank
// line.
func WriteCSV(w io.Writer, ds Dataset) error {
	bw := bufio.NewWriter(w)
	// csv.NewWriter reuses bw as its buffer, so raw writes stay in order.
	cw := csv.NewWriter(bw)
	write := func(rec []string) error {
		if len(rec) == 1 && rec[0] == "" {
			_, err := bw.WriteString("\"\"\n")
			return err
		}
		return cw.Write(rec)
	}

	var cols []string
	if ds != nil {
		cols = ds.Columns()
	}
	if err := write(cols); err != nil {
		return fmt.Errorf("leads: write header: %w", err)
	}
	if ds != nil {
		t, isTable := ds.(*Table)
		rec := make([]string, len(cols))
		for r := 0; r < ds.Len(); r++ {
			if isTable {
				// Positional read keeps duplicate column names intact.
				copy(rec, t.rows[r])
			} else {
				for i, c := range cols {
					rec[i], _ = ds.Value(r, c)
				}
			}
			if err := write(rec); err != nil {
				return fmt.Errorf("leads: write row %d: %w", r, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("leads: flush csv: %w", err)
	}
	return nil
}

// dedupeHeader renames repeated column names to name.1, name.2, ... so every
// column stays addressable.
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[h] = true
	}
	for i, h := range header {
		n, dup := seen[h]
		seen[h] = n + 1
		if !dup {
			out[i] = h
			continue
		}
		name := h + "." + strconv.Itoa(n)
		for taken[name] {
			n++
			name = h + "." + strconv.Itoa(n)
		}
		seen[h] = n + 1
		taken[name] = true
		out[i] = name
	}
	return out
}
