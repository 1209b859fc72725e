package features

import (
	"time"
)

// Window is the number of trailing observations in the rolling means.
const Window = 7

// LagOffset is the positional lag offset. The lag is row-based within a
// group's chronological ordering, not calendar-based: a group with calendar
// gaps still lags by seven rows.
const LagOffset = 7

// OptFloat is a float that may be absent. Lags are absent for the first
// LagOffset rows of a group; absence is explicit rather than NaN so it can
// never leak into arithmetic or output.
type OptFloat struct {
	Value float64
	Valid bool
}

// Some returns a present OptFloat.
func Some(v float64) OptFloat {
	return OptFloat{Value: v, Valid: true}
}

// FeatureRecord is one derived row per (product, store, brand, date) carrying
// the raw quantity and the rolling/lag features at all three grouping levels.
type FeatureRecord struct {
	ProductID int
	StoreID   int
	BrandID   int
	Date      time.Time

	// Product level, grouped by (product, store)
	SalesProduct float64
	MA7P         float64
	Lag7P        OptFloat

	// Brand level, grouped by (brand, store); SalesBrand is the daily total
	// across all products sharing the brand and store
	SalesBrand float64
	MA7B       float64
	Lag7B      OptFloat

	// Store level, grouped by store; SalesStore is the daily total across
	// all products at the store
	SalesStore float64
	MA7S       float64
	Lag7S      OptFloat
}

// Complete reports whether every feature value is present. Rows with missing
// lags are excluded by the accuracy scorer, not by the feature engine.
func (r FeatureRecord) Complete() bool {
	return r.Lag7P.Valid && r.Lag7B.Valid && r.Lag7S.Valid
}
