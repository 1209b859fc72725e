package accuracy

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"salescli/internal/features"
)

// GroupKey identifies one scored (product, store, brand) group.
type GroupKey struct {
	ProductID int
	StoreID   int
	BrandID   int
}

// GroupScore is the WMAPE of one group: the sum of absolute errors between
// realized quantity and its trailing moving average, divided by the group's
// total realized quantity.
type GroupScore struct {
	ProductID int
	StoreID   int
	BrandID   int
	WMAPE     float64
}

// Result carries the scored groups plus the groups that could not be scored
// because their total realized quantity was zero. Skipped groups are an
// explicit condition, never a NaN or Inf in Scores.
type Result struct {
	Scores  []GroupScore
	Skipped []GroupKey
}

// Score computes one WMAPE per (product, store, brand) group from the feature
// record set. Rows with any missing feature value are dropped first; this
// removes at least the first seven rows of every product-store group, plus
// rows whose brand or store aggregates have insufficient history.
//
// Groups are emitted in ascending (product, store, brand) key order; the
// orchestrator re-sorts by WMAPE.
func Score(ctx context.Context, recs []features.FeatureRecord) Result {
	logger := slog.Default()

	type accumulator struct {
		absError float64
		actual   float64
	}

	groups := make(map[GroupKey]*accumulator)
	var scoredRows, droppedRows int

	for _, r := range recs {
		if !r.Complete() {
			droppedRows++
			continue
		}
		scoredRows++

		k := GroupKey{ProductID: r.ProductID, StoreID: r.StoreID, BrandID: r.BrandID}
		acc := groups[k]
		if acc == nil {
			acc = &accumulator{}
			groups[k] = acc
		}
		acc.absError += math.Abs(r.SalesProduct - r.MA7P)
		acc.actual += r.SalesProduct
	}

	keys := make([]GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.StoreID != b.StoreID {
			return a.StoreID < b.StoreID
		}
		return a.BrandID < b.BrandID
	})

	result := Result{Scores: make([]GroupScore, 0, len(keys))}
	for _, k := range keys {
		acc := groups[k]
		if acc.actual == 0 {
			// A zero denominator would make the metric undefined. The group
			// is excluded from the table and reported instead.
			logger.WarnContext(ctx, "skipping group with zero total realized quantity",
				slog.Int("product_id", k.ProductID),
				slog.Int("store_id", k.StoreID),
				slog.Int("brand_id", k.BrandID),
			)
			result.Skipped = append(result.Skipped, k)
			continue
		}
		result.Scores = append(result.Scores, GroupScore{
			ProductID: k.ProductID,
			StoreID:   k.StoreID,
			BrandID:   k.BrandID,
			WMAPE:     acc.absError / acc.actual,
		})
	}

	logger.InfoContext(ctx, "scored forecast accuracy",
		slog.Int("scored_rows", scoredRows),
		slog.Int("dropped_rows", droppedRows),
		slog.Int("groups", len(result.Scores)),
		slog.Int("skipped_groups", len(result.Skipped)),
	)

	return result
}
