package features

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"salescli/internal/dataset"
)

// Compute derives the full feature set from the merged, date-filtered record
// set. The input is never mutated; the result is a new record per input row.
// Output row order is unspecified (it follows the input); the orchestrator
// fixes the final ordering.
func Compute(ctx context.Context, records []dataset.SalesRecord) []FeatureRecord {
	logger := slog.Default()

	recs := make([]FeatureRecord, len(records))
	for i, r := range records {
		recs[i] = FeatureRecord{
			ProductID:    r.ProductID,
			StoreID:      r.StoreID,
			BrandID:      r.BrandID,
			Date:         r.Date,
			SalesProduct: r.Quantity,
		}
	}

	attachBrandTotals(recs)
	attachStoreTotals(recs)

	// Product level: rolling mean and lag of the raw quantity per (product, store).
	transformGroups(recs,
		func(r *FeatureRecord) groupKey { return groupKey{r.ProductID, r.StoreID} },
		func(r *FeatureRecord) float64 { return r.SalesProduct },
		func(r *FeatureRecord, ma float64, lag OptFloat) {
			r.MA7P = ma
			r.Lag7P = lag
		})

	// Brand level: same treatment applied to the brand daily total per (brand, store).
	transformGroups(recs,
		func(r *FeatureRecord) groupKey { return groupKey{r.BrandID, r.StoreID} },
		func(r *FeatureRecord) float64 { return r.SalesBrand },
		func(r *FeatureRecord, ma float64, lag OptFloat) {
			r.MA7B = ma
			r.Lag7B = lag
		})

	// Store level: same treatment applied to the store daily total per store.
	transformGroups(recs,
		func(r *FeatureRecord) groupKey { return groupKey{r.StoreID, 0} },
		func(r *FeatureRecord) float64 { return r.SalesStore },
		func(r *FeatureRecord, ma float64, lag OptFloat) {
			r.MA7S = ma
			r.Lag7S = lag
		})

	logger.InfoContext(ctx, "computed feature records",
		slog.Int("rows", len(recs)),
		slog.Int("window", Window),
		slog.Int("lag_offset", LagOffset),
	)

	return recs
}

// groupKey scopes a rolling or lag computation. The second component is zero
// for the store grouping level.
type groupKey struct {
	a, b int
}

// dailyKey identifies one calendar day within a grouping level.
type dailyKey struct {
	a, b int
	date time.Time
}

// attachBrandTotals sets SalesBrand on every record: the sum of SalesProduct
// across all products sharing (brand, store, date).
func attachBrandTotals(recs []FeatureRecord) {
	totals := make(map[dailyKey]float64)
	for i := range recs {
		k := dailyKey{recs[i].BrandID, recs[i].StoreID, recs[i].Date}
		totals[k] += recs[i].SalesProduct
	}
	for i := range recs {
		recs[i].SalesBrand = totals[dailyKey{recs[i].BrandID, recs[i].StoreID, recs[i].Date}]
	}
}

// attachStoreTotals sets SalesStore on every record: the sum of SalesProduct
// across all products at (store, date).
func attachStoreTotals(recs []FeatureRecord) {
	totals := make(map[dailyKey]float64)
	for i := range recs {
		k := dailyKey{recs[i].StoreID, 0, recs[i].Date}
		totals[k] += recs[i].SalesProduct
	}
	for i := range recs {
		recs[i].SalesStore = totals[dailyKey{recs[i].StoreID, 0, recs[i].Date}]
	}
}

// transformGroups partitions the records by key, orders each partition by
// date, and assigns the trailing rolling mean and positional lag of the
// selected value to every row. Rows outside a partition never influence its
// windows.
func transformGroups(
	recs []FeatureRecord,
	key func(*FeatureRecord) groupKey,
	value func(*FeatureRecord) float64,
	assign func(*FeatureRecord, float64, OptFloat),
) {
	for _, idx := range groupRows(recs, key) {
		sortIndicesByDate(recs, idx)

		values := make([]float64, len(idx))
		for i, j := range idx {
			values[i] = value(&recs[j])
		}

		means := rollingMean(values, Window)
		lags := lagValues(values, LagOffset)

		for i, j := range idx {
			assign(&recs[j], means[i], lags[i])
		}
	}
}

// groupRows collects row indices per group key, groups in first-seen order
// and rows in input order within each group.
func groupRows(recs []FeatureRecord, key func(*FeatureRecord) groupKey) [][]int {
	byKey := make(map[groupKey]int)
	var groups [][]int

	for i := range recs {
		k := key(&recs[i])
		g, ok := byKey[k]
		if !ok {
			g = len(groups)
			byKey[k] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}

	return groups
}

// sortIndicesByDate establishes per-group chronological order before any
// windowed computation. Rows sharing a date (several products of one brand on
// the same day, for instance) are tie-broken by identity so window positions
// do not depend on input order.
func sortIndicesByDate(recs []FeatureRecord, idx []int) {
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := &recs[idx[i]], &recs[idx[j]]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.BrandID != b.BrandID {
			return a.BrandID < b.BrandID
		}
		return a.StoreID < b.StoreID
	})
}

// rollingMean computes the trailing rolling mean with a minimum period of 1:
// a row with fewer than window prior observations gets the mean of what
// exists, so there is a value for every row.
func rollingMean(values []float64, window int) []float64 {
	means := make([]float64, len(values))
	var sum float64

	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		means[i] = sum / float64(n)
	}

	return means
}

// lagValues computes the positional lag: the value offset rows earlier in the
// same sequence. The first offset rows have no lag.
func lagValues(values []float64, offset int) []OptFloat {
	lags := make([]OptFloat, len(values))
	for i := range values {
		if i >= offset {
			lags[i] = Some(values[i-offset])
		}
	}
	return lags
}
