package view

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/surstitch/leadboard/internal/config"
	"github.com/surstitch/leadboard/internal/leads"
)

// ErrNoColumns is returned by Project when no column of the table is visible.
var ErrNoColumns = errors.New("view: no columns selected")

// DefaultColumns is the visible column set of a fresh view. Names that the
// loaded table does not have are ignored.
var DefaultColumns = []string{
	"Person_UUID", "lead_first_name", "lead_status", "lead_status_detail",
	"Has_L2QR", "Activity_Count", "Speed_to_Lead",
	"Activity_Inbound_Calls", "Activity_Outbound_Calls", "Activity_Text_Messages",
	"Activity_Emails", "Activity_Voicemails", "Activity_Form_Fills",
	"Is_Converted_Bool", "lead_record_id",
}

// Column is the view state of one table column.
type Column struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
}

// View holds column visibility and display labels. It is owned by the
// rendering side and never changes the underlying table. Safe for concurrent
// use.
type View struct {
	defaults      map[string]bool
	defaultLabels map[string]string

	mu      sync.RWMutex
	visible map[string]bool // explicit choices; other columns fall back to defaults
	labels  map[string]string
}

// New returns a View seeded from cfg. An empty cfg.Columns uses DefaultColumns.
func New(cfg config.ViewConfig) *View {
	cols := cfg.Columns
	if len(cols) == 0 {
		cols = DefaultColumns
	}
	v := &View{
		defaults:      make(map[string]bool, len(cols)),
		defaultLabels: make(map[string]string, len(cfg.Labels)),
	}
	for _, c := range cols {
		v.defaults[c] = true
	}
	for c, l := range cfg.Labels {
		if l != "" {
			v.defaultLabels[c] = l
		}
	}
	v.reset()
	return v
}

func (v *View) reset() {
	v.visible = make(map[string]bool)
	v.labels = maps.Clone(v.defaultLabels)
}

func (v *View) isVisible(column string) bool {
	if vis, ok := v.visible[column]; ok {
		return vis
	}
	return v.defaults[column]
}

// Visible returns the visible columns of ds in table order.
func (v *View) Visible(ds leads.Dataset) []string {
	if ds == nil {
		return nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []string
	for _, c := range ds.Columns() {
		if v.isVisible(c) {
			out = append(out, c)
		}
	}
	return out
}

// Columns describes every column of ds: its label and whether it is visible.
func (v *View) Columns(ds leads.Dataset) []Column {
	if ds == nil {
		return nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	cols := ds.Columns()
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		out = append(out, Column{Name: c, Label: v.label(c), Visible: v.isVisible(c)})
	}
	return out
}

// Labels returns a copy of the custom labels.
func (v *View) Labels() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return maps.Clone(v.labels)
}

// Label returns the display name of column.
func (v *View) Label(column string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.label(column)
}

func (v *View) label(column string) string {
	if l := v.labels[column]; l != "" {
		return l
	}
	return column
}

// SetVisible shows or hides one column.
func (v *View) SetVisible(column string, visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible[column] = visible
}

// Toggle flips the visibility of column and returns the new state.
func (v *View) Toggle(column string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	vis := !v.isVisible(column)
	v.visible[column] = vis
	return vis
}

// SetLabel renames column for display. An empty label restores the original
// name.
func (v *View) SetLabel(column, label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if label == "" {
		delete(v.labels, column)
		return
	}
	v.labels[column] = label
}

// ShowAll makes every column of ds visible.
func (v *View) ShowAll(ds leads.Dataset) { v.setAll(ds, true) }

// HideAll hides every column of ds.
func (v *View) HideAll(ds leads.Dataset) { v.setAll(ds, false) }

func (v *View) setAll(ds leads.Dataset, visible bool) {
	if ds == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range ds.Columns() {
		v.visible[c] = visible
	}
}

// Replace sets the visible columns of ds to exactly columns and replaces the
// labels. Names not in ds are kept so they apply once a table carrying them
// is loaded. A nil labels map leaves the labels untouched.
func (v *View) Replace(ds leads.Dataset, columns []string, labels map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	want := make(map[string]bool, len(columns))
	for _, c := range columns {
		want[c] = true
	}
	if ds != nil {
		for _, c := range ds.Columns() {
			v.visible[c] = want[c]
		}
	}
	for c := range want {
		v.visible[c] = true
	}
	if labels != nil {
		v.labels = make(map[string]string, len(labels))
		for c, l := range labels {
			if l != "" {
				v.labels[c] = l
			}
		}
	}
}

// Reset restores the default visible columns and labels.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reset()
}

// Project returns the visible columns of ds renamed through the labels,
// ready for display or the view export.
func (v *View) Project(ds leads.Dataset) (*leads.Table, error) {
	cols := v.Visible(ds)
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	return leads.Project(ds, cols, v.Labels()), nil
}

// Export file name prefixes.
const (
	viewExportPrefix = "surstitch_export_"
	fullExportPrefix = "surstitch_full_export_"
	stampLayout      = "20060102_150405"
)

// ExportName returns the download file name of an export taken at t. full
// selects the all-columns export.
func ExportName(t time.Time, full bool) string {
	prefix := viewExportPrefix
	if full {
		prefix = fullExportPrefix
	}
	return fmt.Sprintf("%s%s.csv", prefix, t.Format(stampLayout))
}

// Defaults returns the default visible column names, sorted.
func (v *View) Defaults() []string {
	var names []string
	for name := range v.defaults {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
