// Package report renders the dashboard in a terminal: KPI cards for the
// full and the filtered table, the health score breakdown, the insights and
// an optional preview of the lead rows. Colour goes through fatih/color and
// is switched off globally with color.NoColor.
package report
