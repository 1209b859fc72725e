package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"salescli/internal/config"
	"salescli/internal/dataset"
	"salescli/internal/exporter"
	"salescli/internal/infrastructure"
	"salescli/internal/pipeline"
)

func main() {
	salesFile := flag.String("sales", "", "sales fact table CSV (defaults to <data_dir>/sales.csv)")
	productFile := flag.String("product", "", "product dimension CSV (defaults to <data_dir>/product.csv)")
	brandFile := flag.String("brand", "", "brand dimension CSV (defaults to <data_dir>/brand.csv)")
	storeFile := flag.String("store", "", "store dimension CSV (defaults to <data_dir>/store.csv)")
	minDate := flag.String("min-date", "", "start date in YYYY-MM-DD format (inclusive)")
	maxDate := flag.String("max-date", "", "end date in YYYY-MM-DD format (inclusive)")
	top := flag.Int("top", 0, "number of rows in the WMAPE output")
	outDir := flag.String("out", "", "output directory for CSV files (defaults to reports dir)")
	xlsxReport := flag.Bool("xlsx", false, "also write a combined report.xlsx workbook")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	// Flags override config; config carries the reference-run defaults.
	paths := dataset.Paths{
		Sales:   cfg.SalesPath(),
		Product: cfg.ProductPath(),
		Brand:   cfg.BrandPath(),
		Store:   cfg.StorePath(),
	}
	if *salesFile != "" {
		paths.Sales = *salesFile
	}
	if *productFile != "" {
		paths.Product = *productFile
	}
	if *brandFile != "" {
		paths.Brand = *brandFile
	}
	if *storeFile != "" {
		paths.Store = *storeFile
	}
	if *minDate == "" {
		*minDate = cfg.Pipeline.MinDate
	}
	if *maxDate == "" {
		*maxDate = cfg.Pipeline.MaxDate
	}
	if *top == 0 {
		*top = cfg.Pipeline.Top
	}
	if *outDir == "" {
		*outDir = cfg.Paths.ReportsDir
	}

	opts, err := parseOptions(*minDate, *maxDate, *top)
	if err != nil {
		logger.Error("Invalid arguments", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	logger.Info("Starting sales feature pipeline",
		slog.String("sales", paths.Sales),
		slog.String("min_date", *minDate),
		slog.String("max_date", *maxDate),
		slog.Int("top", *top),
		slog.String("output_dir", *outDir))

	tables, err := dataset.LoadTables(ctx, paths)
	if err != nil {
		logger.Error("Failed to load input tables", slog.String("error", err.Error()))
		os.Exit(1)
	}

	result, err := pipeline.Run(ctx, tables, opts)
	if err != nil {
		logger.Error("Pipeline run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	writer := exporter.NewWriter(*outDir)

	featuresPath, err := writer.WriteFeatures(ctx, "features.csv", result.Features)
	if err != nil {
		logger.Error("Failed to write feature table", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Printf("First output written to: %s\n", featuresPath)

	scoresPath, err := writer.WriteScores(ctx, "mapes.csv", result.Scores)
	if err != nil {
		logger.Error("Failed to write WMAPE table", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Printf("Second output written to: %s\n", scoresPath)

	if *xlsxReport {
		reportPath, err := writer.WriteReport(ctx, "report.xlsx", result.Features, result.Scores)
		if err != nil {
			logger.Error("Failed to write Excel report", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Printf("Report written to: %s\n", reportPath)
	}

	if len(result.Skipped) > 0 {
		logger.Warn("Some groups were excluded from the WMAPE table",
			slog.Int("skipped_groups", len(result.Skipped)))
	}

	logger.Info("Pipeline finished",
		slog.String("run_id", result.RunID),
		slog.Int("feature_rows", len(result.Features)),
		slog.Int("reported_groups", len(result.Scores)))
}

// parseOptions converts the CLI date strings into validated pipeline options.
func parseOptions(minDate, maxDate string, top int) (pipeline.Options, error) {
	min, err := time.Parse(config.DateFormat, minDate)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("invalid min date %q: %w", minDate, err)
	}
	max, err := time.Parse(config.DateFormat, maxDate)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("invalid max date %q: %w", maxDate, err)
	}
	return pipeline.Options{MinDate: min, MaxDate: max, Top: top}, nil
}
