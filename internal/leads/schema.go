package leads

import "strings"

// Default column names used by the lead exports.
const (
	DefaultIDColumn        = "Person_UUID"
	DefaultStatusColumn    = "Lead_Status"
	DefaultSourceColumn    = "Lead_Source"
	DefaultConvertedColumn = "Is_Converted_Bool"
	DefaultL2QRColumn      = "Has_L2QR"
	DefaultSpeedColumn     = "Speed_to_Lead"
	DefaultActivityColumn  = "Activity_Count"
)

// Placeholder fills required columns that are missing from a loaded file.
const Placeholder = "Unknown"

// Schema names the columns the engines read. Field values map 1:1 to the
// schema section of the config file.
type Schema struct {
	ID        string `yaml:"id" toml:"id" json:"id"`
	Status    string `yaml:"status" toml:"status" json:"status"`
	Source    string `yaml:"source" toml:"source" json:"source"`
	Converted string `yaml:"converted" toml:"converted" json:"converted"`
	L2QR      string `yaml:"l2qr" toml:"l2qr" json:"l2qr"`
	Speed     string `yaml:"speed_to_lead" toml:"speed_to_lead" json:"speed_to_lead"`
	Activity  string `yaml:"activity_count" toml:"activity_count" json:"activity_count"`
}

// DefaultSchema returns the schema of the person master exports.
func DefaultSchema() Schema {
	return Schema{
		ID:        DefaultIDColumn,
		Status:    DefaultStatusColumn,
		Source:    DefaultSourceColumn,
		Converted: DefaultConvertedColumn,
		L2QR:      DefaultL2QRColumn,
		Speed:     DefaultSpeedColumn,
		Activity:  DefaultActivityColumn,
	}
}

// WithDefaults returns s with every empty field replaced by its default.
func (s Schema) WithDefaults() Schema {
	d := DefaultSchema()
	if s.ID == "" {
		s.ID = d.ID
	}
	if s.Status == "" {
		s.Status = d.Status
	}
	if s.Source == "" {
		s.Source = d.Source
	}
	if s.Converted == "" {
		s.Converted = d.Converted
	}
	if s.L2QR == "" {
		s.L2QR = d.L2QR
	}
	if s.Speed == "" {
		s.Speed = d.Speed
	}
	if s.Activity == "" {
		s.Activity = d.Activity
	}
	return s
}

// Required returns the columns every loaded table must carry.
func (s Schema) Required() []string {
	return []string{s.ID, s.Status, s.Source}
}

// Truthy reports whether a boolean-like cell counts as true: its lowercase
// form is exactly "true", "yes" or "1". Anything else, including an empty
// string, is false.
func Truthy(v string) bool {
	switch strings.ToLower(v) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

// TruthyAt reports whether the cell at row for column is truthy. Absent
// cells and missing columns are false.
func TruthyAt(ds Dataset, row int, column string) bool {
	v, ok := ds.Value(row, column)
	return ok && Truthy(v)
}
