package exporter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"salescli/internal/accuracy"
	"salescli/internal/config"
	apperrors "salescli/internal/errors"
	"salescli/internal/features"
)

const (
	featuresSheet = "Features"
	wmapeSheet    = "WMAPE"
)

// WriteReport writes both output tables into one Excel workbook: a Features
// sheet and a WMAPE sheet. Returns the workbook path.
func (w *Writer) WriteReport(ctx context.Context, filename string, recs []features.FeatureRecord, scores []accuracy.GroupScore) (string, error) {
	path := filepath.Join(w.outDir, filename)

	slog.Default().InfoContext(ctx, "writing Excel report",
		slog.String("path", path),
		slog.Int("feature_rows", len(recs)),
		slog.Int("score_rows", len(scores)),
	)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create output directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(featuresSheet); err != nil {
		return "", apperrors.NewStorageError("failed to create features sheet", err)
	}
	if err := writeSheetRow(f, featuresSheet, 1, headerCells(FeatureHeaders)); err != nil {
		return "", err
	}
	for i, r := range recs {
		cells := []interface{}{
			r.ProductID, r.StoreID, r.BrandID, r.Date.Format(config.DateFormat),
			r.SalesProduct, r.MA7P, optCell(r.Lag7P),
			r.SalesBrand, r.MA7B, optCell(r.Lag7B),
			r.SalesStore, r.MA7S, optCell(r.Lag7S),
		}
		if err := writeSheetRow(f, featuresSheet, i+2, cells); err != nil {
			return "", err
		}
	}

	if _, err := f.NewSheet(wmapeSheet); err != nil {
		return "", apperrors.NewStorageError("failed to create WMAPE sheet", err)
	}
	if err := writeSheetRow(f, wmapeSheet, 1, headerCells(ScoreHeaders)); err != nil {
		return "", err
	}
	for i, s := range scores {
		cells := []interface{}{s.ProductID, s.StoreID, s.BrandID, s.WMAPE}
		if err := writeSheetRow(f, wmapeSheet, i+2, cells); err != nil {
			return "", err
		}
	}

	// Drop the default sheet and land on the features sheet when opened.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", apperrors.NewStorageError("failed to delete default sheet", err)
	}
	idx, err := f.GetSheetIndex(featuresSheet)
	if err != nil {
		return "", apperrors.NewStorageError("failed to look up features sheet", err)
	}
	f.SetActiveSheet(idx)

	if err := f.SaveAs(path); err != nil {
		return "", apperrors.NewStorageError("failed to save Excel report", err)
	}

	return path, nil
}

// writeSheetRow writes one row of cells starting at column A.
func writeSheetRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	for col, value := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return apperrors.NewStorageError("failed to resolve cell name", err)
		}
		if err := f.SetCellValue(sheet, name, value); err != nil {
			return apperrors.NewStorageError("failed to set cell "+name+" on sheet "+sheet, err)
		}
	}
	return nil
}

// headerCells converts string headers to the cell value type.
func headerCells(headers []string) []interface{} {
	cells := make([]interface{}, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	return cells
}

// optCell renders an absent value as an empty cell, mirroring the CSV output.
func optCell(v features.OptFloat) interface{} {
	if !v.Valid {
		return ""
	}
	return v.Value
}
