package compute

import (
	"fmt"
	"sort"
	"strings"

	"github.com/surstitch/leadboard/internal/leads"
)

// All is the select-box value that disables a status or source filter.
const All = "All"

// Conversion selects rows by the truthiness of the converted flag.
type Conversion string

// Conversion values. The string forms are what the dashboard shows.
const (
	ConversionAll          Conversion = ""
	ConversionConverted    Conversion = "Converted"
	ConversionNotConverted Conversion = "Not Converted"
)

// ConversionOptions lists the conversion choices in display order.
var ConversionOptions = []string{All, string(ConversionConverted), string(ConversionNotConverted)}

// ParseConversion accepts the display forms and common spellings of a
// conversion filter. Empty and "All" map to ConversionAll.
func ParseConversion(s string) (Conversion, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(norm)
	switch norm {
	case "", "all":
		return ConversionAll, nil
	case "converted":
		return ConversionConverted, nil
	case "notconverted":
		return ConversionNotConverted, nil
	default:
		return ConversionAll, fmt.Errorf("unknown conversion filter %q: want Converted|Not Converted|All", s)
	}
}

// String implements pflag.Value.
func (c *Conversion) String() string {
	if *c == ConversionAll {
		return All
	}
	return string(*c)
}

// Set implements pflag.Value.
func (c *Conversion) Set(s string) error {
	v, err := ParseConversion(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Type implements pflag.Value.
func (c *Conversion) Type() string { return "conversion" }

// Filters is one set of user selections. The zero value matches every row.
type Filters struct {
	Status    string     `json:"status,omitempty"`
	Source    string     `json:"source,omitempty"`
	Converted Conversion `json:"converted,omitempty"`
	Search    string     `json:"search,omitempty"`
}

// IsZero reports whether f lets every row through.
func (f Filters) IsZero() bool {
	return inactive(f.Status) && inactive(f.Source) &&
		f.Converted == ConversionAll && f.Search == ""
}

func inactive(v string) bool { return v == "" || v == All }

// Apply returns the rows of ds that satisfy every active filter, in their
// original order and with the full column set. A filter whose column ds
// does not have is skipped. ds itself is never modified.
func Apply(ds leads.Dataset, schema leads.Schema, f Filters) *leads.Table {
	if ds == nil {
		return leads.Select(nil, nil)
	}
	schema = schema.WithDefaults()

	has := make(map[string]bool)
	cols := ds.Columns()
	for _, c := range cols {
		has[c] = true
	}

	var preds []func(row int) bool
	if !inactive(f.Status) && has[schema.Status] {
		preds = append(preds, equals(ds, schema.Status, f.Status))
	}
	if !inactive(f.Source) && has[schema.Source] {
		preds = append(preds, equals(ds, schema.Source, f.Source))
	}
	if f.Converted != ConversionAll && has[schema.Converted] {
		want := f.Converted == ConversionConverted
		col := schema.Converted
		preds = append(preds, func(row int) bool {
			return leads.TruthyAt(ds, row, col) == want
		})
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		preds = append(preds, func(row int) bool {
			for _, c := range cols {
				v, _ := ds.Value(row, c)
				if strings.Contains(strings.ToLower(v), needle) {
					return true
				}
			}
			return false
		})
	}

	n := ds.Len()
	keep := make([]int, 0, n)
rows:
	for r := 0; r < n; r++ {
		for _, p := range preds {
			if !p(r) {
				continue rows
			}
		}
		keep = append(keep, r)
	}
	return leads.Select(ds, keep)
}

// equals matches rows whose column cell is exactly want.
func equals(ds leads.Dataset, column, want string) func(int) bool {
	return func(row int) bool {
		v, ok := ds.Value(row, column)
		return ok && v == want
	}
}

// Options returns the sorted distinct non-empty values of column.
func Options(ds leads.Dataset, column string) []string {
	if ds == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for r := 0; r < ds.Len(); r++ {
		if v, ok := ds.Value(r, column); ok {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
