package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/config"
	"github.com/surstitch/leadboard/internal/source"
	"github.com/surstitch/leadboard/internal/store"
)

// loadConfig reads --config, or the defaults when it is unset. location,
// when non-empty, replaces the configured dataset path or URL.
func loadConfig(location string) (*config.Config, error) {
	var cfg *config.Config
	if configPath == "" {
		cfg = config.Default()
	} else {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}

	if location != "" {
		if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
			cfg.Dataset.URL, cfg.Dataset.Path = location, ""
			cfg.Dataset.Watch = false
		} else {
			cfg.Dataset.Path, cfg.Dataset.URL = location, ""
		}
	}
	if cfg.Dataset.Location() == "" {
		return nil, fmt.Errorf("leadboard: no dataset: pass a CSV path or URL, or set dataset.path in the config")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore builds the source loader and the store for cfg and performs the
// first load. A load failure leaves the store on an empty table and is
// returned alongside it.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, *source.Loader, error) {
	loader, err := source.New(cfg.Dataset, cfg.Schema)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(loader, compute.NewEngine(cfg.Schema))
	return st, loader, st.Reload(ctx)
}

// addFilterFlags registers the filter flags shared by report and export.
func addFilterFlags(fs *pflag.FlagSet, f *compute.Filters) {
	fs.StringVar(&f.Status, "status", "", `keep rows with this lead status ("All" disables)`)
	fs.StringVar(&f.Source, "source", "", `keep rows with this lead source ("All" disables)`)
	fs.Var(&f.Converted, "converted", "Converted, Not Converted or All")
	fs.StringVarP(&f.Search, "search", "s", "", "case-insensitive substring match across every column")
}

// loadFailed wraps a dataset load error in the load-failed exit code.
func loadFailed(err error) error {
	return &exitCodeError{code: ExitLoadFailed, msg: fmt.Sprintf("leadboard: %v", err)}
}
