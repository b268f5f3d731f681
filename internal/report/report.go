package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/leads"
)

// DefaultPreviewRows is how many lead rows Render prints when asked for a
// preview without an explicit limit.
const DefaultPreviewRows = 20

// Input is everything one terminal report shows.
type Input struct {
	Dataset   string
	Result    *compute.Result
	LoadError string

	// Preview, when set, is printed as a table of at most PreviewRows rows.
	// It is normally the filtered table projected through the view.
	Preview     leads.Dataset
	PreviewRows int
}

// Render writes the KPI cards, the health breakdown and the insights of in
// to w, followed by the optional lead preview.
func Render(w io.Writer, in Input) error {
	res := in.Result
	if res == nil {
		res = compute.NewEngine(leads.Schema{}).Process(nil, compute.Filters{}, time.Time{})
	}

	if err := renderHeader(w, in, res); err != nil {
		return err
	}
	if err := renderKPIs(w, res); err != nil {
		return err
	}
	if err := renderHealth(w, res); err != nil {
		return err
	}
	if err := renderInsights(w, res.Insights); err != nil {
		return err
	}
	if in.Preview != nil {
		return renderPreview(w, in.Preview, in.PreviewRows)
	}
	return nil
}

func renderHeader(w io.Writer, in Input, res *compute.Result) error {
	name := in.Dataset
	if name == "" {
		name = "dataset"
	}
	line := fmt.Sprintf("%s: %d leads", name, res.Full.LeadCount)
	if res.FilteredActive {
		line += fmt.Sprintf(", %d matching %s", res.Snapshot.LeadCount, DescribeFilters(res.Filters))
	}
	if _, err := fmt.Fprintln(w, SectionTitle(line)); err != nil {
		return err
	}
	if in.LoadError != "" {
		if _, err := fmt.Fprintf(w, "%s %s\n", colorRed.Sprint("load error:"), in.LoadError); err != nil {
			return err
		}
	}
	return nil
}

func renderKPIs(w io.Writer, res *compute.Result) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", SectionTitle("KPIs")); err != nil {
		return err
	}
	tbl := NewTable(
		Column{Header: "Metric"},
		Column{Header: "All leads", Align: AlignRight},
		Column{Header: "Filtered", Align: AlignRight},
	)
	full, filt := res.Full, res.Snapshot
	tbl.AddRow("Leads", count(full.LeadCount), count(filt.LeadCount))
	tbl.AddRow("L2QR leads", count(full.L2QRCount), count(filt.L2QRCount))
	tbl.AddRow("Converted", count(full.ConvertedCount), count(filt.ConvertedCount))
	tbl.AddRow("Lead to convert", percent(full.LeadToConvertPct), percent(filt.LeadToConvertPct))
	tbl.AddRow("Lead to L2QR", percent(full.LeadToL2QRPct), percent(filt.LeadToL2QRPct))
	tbl.AddRow("L2QR to convert", percent(full.L2QRToConvertPct), percent(filt.L2QRToConvertPct))
	tbl.AddRow("Speed to lead", full.MedianSpeedToLead, filt.MedianSpeedToLead)
	tbl.AddRow("Avg activities", decimal(full.ActivityCountAvg), decimal(filt.ActivityCountAvg))
	return tbl.Render(w)
}

func renderHealth(w io.Writer, res *compute.Result) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", SectionTitle("Pipeline health")); err != nil {
		return err
	}
	tbl := NewTable(
		Column{Header: "Term"},
		Column{Header: "All leads", Align: AlignRight},
		Column{Header: "Filtered", Align: AlignRight},
	)
	full, filt := res.FullHealth, res.Health
	tbl.AddRow("L2QR rate (30)", decimal(full.L2QRTerm), decimal(filt.L2QRTerm))
	tbl.AddRow("Conversion (40)", decimal(full.ConversionTerm), decimal(filt.ConversionTerm))
	tbl.AddRow("Activity (30)", decimal(full.ActivityTerm), decimal(filt.ActivityTerm))
	tbl.AddRow("Score", decimal(full.Score), decimal(filt.Score))
	if err := tbl.Render(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "  state: %s (filtered: %s)\n", ColorState(full.State), ColorState(filt.State))
	return err
}

func renderInsights(w io.Writer, insights []compute.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%s\n", SectionTitle("Insights")); err != nil {
		return err
	}
	tbl := NewTable(
		Column{Header: "Level", Color: ColorState},
		Column{Header: "Insight"},
		Column{Header: "Detail"},
	)
	for _, in := range insights {
		tbl.AddRow(in.Level, in.Title, in.Detail)
	}
	return tbl.Render(w)
}

func renderPreview(w io.Writer, ds leads.Dataset, limit int) error {
	if limit <= 0 {
		limit = DefaultPreviewRows
	}
	n := min(ds.Len(), limit)
	title := fmt.Sprintf("Leads (%d of %d)", n, ds.Len())
	if _, err := fmt.Fprintf(w, "\n%s\n", SectionTitle(title)); err != nil {
		return err
	}
	cols := ds.Columns()
	if len(cols) == 0 {
		_, err := fmt.Fprintln(w, "  no columns selected")
		return err
	}
	defs := make([]Column, len(cols))
	for i, c := range cols {
		defs[i] = Column{Header: c}
	}
	tbl := NewTable(defs...)
	for r := 0; r < n; r++ {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i], _ = ds.Value(r, c)
		}
		tbl.AddRow(row...)
	}
	return tbl.Render(w)
}

// DescribeFilters renders the active filters as "status=Won, q=acme".
func DescribeFilters(f compute.Filters) string {
	var parts []string
	if f.Status != "" && f.Status != compute.All {
		parts = append(parts, "status="+f.Status)
	}
	if f.Source != "" && f.Source != compute.All {
		parts = append(parts, "source="+f.Source)
	}
	if f.Converted != compute.ConversionAll {
		parts = append(parts, "converted="+string(f.Converted))
	}
	if f.Search != "" {
		parts = append(parts, "q="+strconv.Quote(f.Search))
	}
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, ", ")
}

func count(n int) string { return strconv.Itoa(n) }

func percent(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "%" }

func decimal(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
