package dataset

import (
	"context"
	"log/slog"
	"time"
)

// Merge joins the sales fact table with the product, brand, and store
// dimensions into one denormalized record set. All three joins are inner: a
// fact row whose product, brand, or store has no dimension match produces no
// output row. That exclusion is expected behavior, not an error; dropped rows
// are counted and logged at debug level.
//
// Output row order is unspecified; callers re-sort downstream.
func Merge(ctx context.Context, tables *Tables) []SalesRecord {
	logger := slog.Default()

	productByID := make(map[int]Product, len(tables.Products))
	for _, p := range tables.Products {
		productByID[p.ID] = p
	}

	brandByName := make(map[string]Brand, len(tables.Brands))
	for _, b := range tables.Brands {
		brandByName[b.Name] = b
	}

	storeByID := make(map[int]Store, len(tables.Stores))
	for _, s := range tables.Stores {
		storeByID[s.ID] = s
	}

	merged := make([]SalesRecord, 0, len(tables.Sales))
	var dropped int

	for _, fact := range tables.Sales {
		product, ok := productByID[fact.ProductID]
		if !ok {
			dropped++
			logger.DebugContext(ctx, "dropping fact with unmatched product",
				slog.Int("product_id", fact.ProductID))
			continue
		}

		brand, ok := brandByName[product.Brand]
		if !ok {
			dropped++
			logger.DebugContext(ctx, "dropping fact with unmatched brand",
				slog.Int("product_id", fact.ProductID),
				slog.String("brand", product.Brand))
			continue
		}

		store, ok := storeByID[fact.StoreID]
		if !ok {
			dropped++
			logger.DebugContext(ctx, "dropping fact with unmatched store",
				slog.Int("store_id", fact.StoreID))
			continue
		}

		merged = append(merged, SalesRecord{
			Date:        fact.Date,
			ProductID:   fact.ProductID,
			StoreID:     fact.StoreID,
			BrandID:     brand.ID,
			Quantity:    fact.Quantity,
			ProductName: product.Name,
			BrandName:   brand.Name,
			StoreName:   store.Name,
		})
	}

	logger.InfoContext(ctx, "merged input tables",
		slog.Int("fact_rows", len(tables.Sales)),
		slog.Int("merged_rows", len(merged)),
		slog.Int("dropped_rows", dropped),
	)

	return merged
}

// FilterByDateRange returns the records whose date lies inside the inclusive
// [minDate, maxDate] window, preserving input order.
func FilterByDateRange(records []SalesRecord, minDate, maxDate time.Time) []SalesRecord {
	filtered := make([]SalesRecord, 0, len(records))
	for _, r := range records {
		if r.Date.Before(minDate) || r.Date.After(maxDate) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
