package exporter

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"salescli/internal/accuracy"
	"salescli/internal/config"
	apperrors "salescli/internal/errors"
	"salescli/internal/features"
)

// FeatureHeaders is the column order of the feature table output.
var FeatureHeaders = []string{
	"product_id", "store_id", "brand_id", "date",
	"sales_product", "MA7_P", "LAG7_P",
	"sales_brand", "MA7_B", "LAG7_B",
	"sales_store", "MA7_S", "LAG7_S",
}

// ScoreHeaders is the column order of the scored table output.
var ScoreHeaders = []string{"product_id", "store_id", "brand_id", "WMAPE"}

// Writer writes the pipeline's output tables under one output directory.
type Writer struct {
	outDir string
}

// NewWriter creates a writer rooted at the given output directory.
func NewWriter(outDir string) *Writer {
	return &Writer{outDir: outDir}
}

// WriteFeatures writes the feature table to a CSV file and returns its path.
// Missing lag values become empty cells.
func (w *Writer) WriteFeatures(ctx context.Context, filename string, recs []features.FeatureRecord) (string, error) {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			strconv.Itoa(r.ProductID),
			strconv.Itoa(r.StoreID),
			strconv.Itoa(r.BrandID),
			r.Date.Format(config.DateFormat),
			formatFloat(r.SalesProduct),
			formatFloat(r.MA7P),
			formatOptFloat(r.Lag7P),
			formatFloat(r.SalesBrand),
			formatFloat(r.MA7B),
			formatOptFloat(r.Lag7B),
			formatFloat(r.SalesStore),
			formatFloat(r.MA7S),
			formatOptFloat(r.Lag7S),
		})
	}

	return w.writeCSV(ctx, filename, FeatureHeaders, rows)
}

// WriteScores writes the scored table to a CSV file and returns its path.
func (w *Writer) WriteScores(ctx context.Context, filename string, scores []accuracy.GroupScore) (string, error) {
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, []string{
			strconv.Itoa(s.ProductID),
			strconv.Itoa(s.StoreID),
			strconv.Itoa(s.BrandID),
			formatFloat(s.WMAPE),
		})
	}

	return w.writeCSV(ctx, filename, ScoreHeaders, rows)
}

// writeCSV writes one CSV file with a header row under the output directory.
func (w *Writer) writeCSV(ctx context.Context, filename string, headers []string, rows [][]string) (string, error) {
	path := filepath.Join(w.outDir, filename)

	slog.Default().InfoContext(ctx, "writing CSV file",
		slog.String("path", path),
		slog.Int("rows", len(rows)),
	)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create output directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", apperrors.NewStorageError("failed to create CSV file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(headers); err != nil {
		return "", apperrors.NewStorageError("failed to write CSV header row", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return "", apperrors.NewStorageError("failed to write CSV data row", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", apperrors.NewStorageError("failed to flush CSV file", err)
	}

	return path, nil
}

// formatFloat renders a float with the fewest digits that round-trip.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatOptFloat renders an absent value as an empty cell.
func formatOptFloat(v features.OptFloat) string {
	if !v.Valid {
		return ""
	}
	return formatFloat(v.Value)
}
