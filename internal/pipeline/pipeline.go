package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"salescli/internal/accuracy"
	"salescli/internal/dataset"
	"salescli/internal/features"
)

// DefaultTop is the default number of worst-performing groups to report.
const DefaultTop = 5

// Options controls one pipeline run.
type Options struct {
	// MinDate and MaxDate bound the inclusive date filter applied to the
	// merged table before feature computation.
	MinDate time.Time `validate:"required"`
	MaxDate time.Time `validate:"required,gtefield=MinDate"`
	// Top is the number of worst-performing groups kept in the scored table.
	Top int `validate:"gte=1"`
}

// Result is the output of one run: the sorted feature table, the sorted and
// truncated scored table, and the groups the scorer had to skip.
type Result struct {
	RunID    string
	Features []features.FeatureRecord
	Scores   []accuracy.GroupScore
	Skipped  []accuracy.GroupKey
}

var validate = validator.New()

// Run executes the full pipeline over the loaded tables: merge, date filter,
// feature derivation, accuracy scoring, and the final orderings. Each step
// consumes an immutable table and produces a new one.
func Run(ctx context.Context, tables *dataset.Tables, opts Options) (*Result, error) {
	if opts.Top == 0 {
		opts.Top = DefaultTop
	}
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid pipeline options: %w", err)
	}

	runID := uuid.NewString()
	logger := slog.Default().With(slog.String("run_id", runID))

	logger.InfoContext(ctx, "starting pipeline run",
		slog.String("min_date", opts.MinDate.Format("2006-01-02")),
		slog.String("max_date", opts.MaxDate.Format("2006-01-02")),
		slog.Int("top", opts.Top),
	)

	merged := dataset.Merge(ctx, tables)

	filtered := dataset.FilterByDateRange(merged, opts.MinDate, opts.MaxDate)
	logger.InfoContext(ctx, "applied date filter",
		slog.Int("rows_before", len(merged)),
		slog.Int("rows_after", len(filtered)),
	)

	featureRecs := features.Compute(ctx, filtered)
	sortFeatures(featureRecs)

	scored := accuracy.Score(ctx, featureRecs)
	sortScores(scored.Scores)
	if len(scored.Scores) > opts.Top {
		scored.Scores = scored.Scores[:opts.Top]
	}

	logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("feature_rows", len(featureRecs)),
		slog.Int("reported_groups", len(scored.Scores)),
		slog.Int("skipped_groups", len(scored.Skipped)),
	)

	return &Result{
		RunID:    runID,
		Features: featureRecs,
		Scores:   scored.Scores,
		Skipped:  scored.Skipped,
	}, nil
}

// sortFeatures orders the feature table by (product, brand, store, date)
// ascending. The sort is stable so ties keep their insertion order.
func sortFeatures(recs []features.FeatureRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.BrandID != b.BrandID {
			return a.BrandID < b.BrandID
		}
		if a.StoreID != b.StoreID {
			return a.StoreID < b.StoreID
		}
		return a.Date.Before(b.Date)
	})
}

// sortScores orders the scored table by WMAPE descending. The sort is stable
// so equal scores keep the scorer's key order.
func sortScores(scores []accuracy.GroupScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].WMAPE > scores[j].WMAPE
	})
}
