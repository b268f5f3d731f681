package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/source"
	"github.com/surstitch/leadboard/internal/view"
)

// Export-specific flag values.
var (
	exportFilters  compute.Filters
	exportFull     bool
	exportOut      string
	exportCompress string
	exportColumns  []string
	exportLabels   map[string]string
)

// exportNow is the clock used for generated file names.
var exportNow = time.Now

// exportCmd writes the view export or the full export of the filtered rows.
var exportCmd = &cobra.Command{
	Use:   "export [path-or-url]",
	Short: "Write the filtered rows to a CSV file",
	Long: `Load a lead CSV, apply the filters and write the result as CSV.

The view export keeps the visible columns under their display labels (from
the config view section, or --columns and --label). --full keeps every column.
Without --out the file is named surstitch_export_YYYYMMDD_HHMMSS.csv (or
surstitch_full_export_...) in the current directory; "-" writes to stdout.
Output is compressed when --compress is set or --out ends in .gz or .zst.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	addFilterFlags(exportCmd.Flags(), &exportFilters)
	exportCmd.Flags().BoolVar(&exportFull, "full", false, "export every column instead of the view")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", `output file ("-" for stdout)`)
	exportCmd.Flags().StringVar(&exportCompress, "compress", "", "none, gzip or zstd (default: from the --out extension)")
	exportCmd.Flags().StringSliceVar(&exportColumns, "columns", nil, "visible columns for the view export")
	exportCmd.Flags().StringToStringVar(&exportLabels, "label", nil, "column=label display names for the view export")
}

func runExport(cmd *cobra.Command, args []string) error {
	var location string
	if len(args) > 0 {
		location = args[0]
	}
	cfg, err := loadConfig(location)
	if err != nil {
		return err
	}
	if len(exportColumns) > 0 {
		cfg.View.Columns = exportColumns
	}
	if len(exportLabels) > 0 && cfg.View.Labels == nil {
		cfg.View.Labels = make(map[string]string, len(exportLabels))
	}
	for c, l := range exportLabels {
		cfg.View.Labels[c] = l
	}

	st, _, loadErr := openStore(cmd.Context(), cfg)
	if st == nil {
		return loadErr
	}
	if loadErr != nil {
		return loadFailed(loadErr)
	}

	filtered := st.Process(exportFilters).Filtered
	tbl := filtered
	if !exportFull {
		if tbl, err = view.New(cfg.View).Project(filtered); err != nil {
			return fmt.Errorf("leadboard: %w", err)
		}
	}

	codec, err := exportCodec()
	if err != nil {
		return err
	}

	if exportOut == "-" {
		return source.Write(cmd.OutOrStdout(), tbl, codec)
	}
	path := exportOut
	if path == "" {
		path = view.ExportName(exportNow(), exportFull) + codec.Extension()
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("leadboard: %w", err)
	}
	if err := source.Write(f, tbl, codec); err != nil {
		f.Close()
		return fmt.Errorf("leadboard: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("leadboard: write %s: %w", path, err)
	}
	slog.Info("export: written", "file", path, "rows", tbl.Len(), "columns", len(tbl.Columns()), "compression", string(codec))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// exportCodec resolves --compress, falling back to the --out extension.
func exportCodec() (source.Compression, error) {
	if exportCompress != "" {
		return source.ParseCompression(exportCompress)
	}
	if exportOut != "" && exportOut != "-" {
		return source.CompressionFor(exportOut), nil
	}
	return source.CompressNone, nil
}
