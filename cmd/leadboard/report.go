package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/surstitch/leadboard/internal/api"
	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/leads"
	"github.com/surstitch/leadboard/internal/report"
	"github.com/surstitch/leadboard/internal/view"
)

// Report-specific flag values.
var (
	reportFilters compute.Filters
	reportPreview int
	reportJSON    bool
)

// reportCmd prints the dashboard for one dataset.
var reportCmd = &cobra.Command{
	Use:   "report [path-or-url]",
	Short: "Print KPI cards, health and insights for a dataset",
	Long: `Load a lead CSV (a local file, optionally .gz or .zst, or an http(s) URL),
apply the filters and print the KPIs of the full and the filtered table, the
pipeline health breakdown and the insights.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	addFilterFlags(reportCmd.Flags(), &reportFilters)
	reportCmd.Flags().IntVar(&reportPreview, "preview", 0, "also print up to N filtered rows through the view")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the metrics as JSON instead of text")
}

func runReport(cmd *cobra.Command, args []string) error {
	var location string
	if len(args) > 0 {
		location = args[0]
	}
	cfg, err := loadConfig(location)
	if err != nil {
		return err
	}

	st, _, loadErr := openStore(cmd.Context(), cfg)
	if st == nil {
		return loadErr
	}
	out := cmd.OutOrStdout()

	if reportJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(api.BuildMetrics(st, reportFilters)); err != nil {
			return fmt.Errorf("leadboard: encode metrics: %w", err)
		}
	} else {
		res := st.Process(reportFilters)
		in := report.Input{
			Dataset:   cfg.Dataset.Name,
			Result:    res,
			LoadError: st.Current().LoadError,
		}
		if reportPreview > 0 {
			projected, err := view.New(cfg.View).Project(res.Filtered)
			if errors.Is(err, view.ErrNoColumns) {
				projected = leads.Select(nil, nil)
			}
			in.Preview = projected
			in.PreviewRows = reportPreview
		}
		if err := report.Render(out, in); err != nil {
			return err
		}
	}

	if loadErr != nil {
		return loadFailed(loadErr)
	}
	return nil
}
