package main

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dropset/cubench/bench"
	"github.com/dropset/cubench/config"
	"github.com/dropset/cubench/report"
	"github.com/dropset/cubench/runtime"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		cfgPath   string
		imagesDir string
		programs  []string
		jsonOut   bool
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:           "cubench",
		Short:         "Measure compute-unit costs of order-book program instructions",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath, imagesDir, programs, jsonOut, verbose)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().StringVar(&imagesDir, "images", "", "directory holding <program>.so images")
	cmd.Flags().StringSliceVar(&programs, "programs", nil, "programs to benchmark (default manifest,phoenix)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the report as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each case as it is measured")
	return cmd
}

func run(cfgPath, imagesDir string, programs []string, jsonOut, verbose bool) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fileCfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(fileCfg, imagesDir, programs, jsonOut)
	if err != nil {
		return err
	}

	loader, err := runtime.NewImageLoader(cfg.ImagesDir)
	if err != nil {
		return err
	}
	adapters, err := selectAdapters(cfg.Programs)
	if err != nil {
		return err
	}

	engine := &bench.Engine{Loader: loader, Adapters: adapters, Log: log}
	outcomes := engine.Run()

	if cfg.JSON {
		err = report.RenderJSON(os.Stdout, outcomes)
	} else {
		err = report.Render(os.Stdout, outcomes)
	}
	if err != nil {
		return err
	}

	var failed int
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d cases failed", failed, len(outcomes))
	}
	return nil
}

func selectAdapters(names []string) ([]bench.Adapter, error) {
	adapters := make([]bench.Adapter, 0, len(names))
	for _, name := range names {
		switch name {
		case "manifest":
			adapters = append(adapters, bench.NewManifestAdapter())
		case "phoenix":
			adapters = append(adapters, bench.NewPhoenixAdapter())
		default:
			return nil, errors.Errorf("unknown program %q", name)
		}
	}
	return adapters, nil
}
