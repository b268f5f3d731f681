// Package leads holds the tabular lead data the dashboard works on.
//
// Dataset is the read-only capability the engines depend on: list columns,
// count rows, read one cell by row index and column name. Table is the
// concrete immutable implementation produced by Load and by the filter
// engine; Builder and Select construct new Tables without touching the
// source.
//
// Cells are plain strings. An empty cell, or a column the table does not
// have, is reported as absent. Truthy implements the boolean-like coercion
// used by the converted and L2QR flags: case-insensitive membership in
// {"true", "yes", "1"}.
//
// csv.go reads and writes the CSV format the lead exports use. Load pads
// short rows, rejects rows wider than the header, and synthesizes the id,
// status and source columns (filled with "Unknown") when a file lacks them.
package leads
