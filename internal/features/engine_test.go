package features

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salescli/internal/dataset"
)

func day(d int) time.Time {
	return time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC)
}

// productSeries builds one record per consecutive day for a single product.
func productSeries(productID, storeID, brandID int, quantities []float64) []dataset.SalesRecord {
	records := make([]dataset.SalesRecord, len(quantities))
	for i, q := range quantities {
		records[i] = dataset.SalesRecord{
			Date:      day(i + 1),
			ProductID: productID,
			StoreID:   storeID,
			BrandID:   brandID,
			Quantity:  q,
		}
	}
	return records
}

func findRecord(t *testing.T, recs []FeatureRecord, productID int, date time.Time) FeatureRecord {
	t.Helper()
	for _, r := range recs {
		if r.ProductID == productID && r.Date.Equal(date) {
			return r
		}
	}
	t.Fatalf("no feature record for product %d on %s", productID, date.Format("2006-01-02"))
	return FeatureRecord{}
}

func TestRollingMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		window   int
		expected []float64
	}{
		{
			name:     "fewer observations than window",
			values:   []float64{2, 4, 6},
			window:   7,
			expected: []float64{2, 3, 4},
		},
		{
			name:     "window slides after filling",
			values:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			window:   7,
			expected: []float64{1, 1.5, 2, 2.5, 3, 3.5, 4, 5, 6, 7},
		},
		{
			name:     "window of one tracks the series",
			values:   []float64{5, 1, 9},
			window:   1,
			expected: []float64{5, 1, 9},
		},
		{
			name:     "empty input",
			values:   nil,
			window:   7,
			expected: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rollingMean(tt.values, tt.window)
			require.Len(t, got, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], got[i], 1e-9, "position %d", i)
			}
		})
	}
}

func TestLagValues(t *testing.T) {
	got := lagValues([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 7)
	require.Len(t, got, 10)

	for i := 0; i < 7; i++ {
		assert.False(t, got[i].Valid, "position %d should have no lag", i)
	}
	assert.Equal(t, Some(1.0), got[7])
	assert.Equal(t, Some(2.0), got[8])
	assert.Equal(t, Some(3.0), got[9])
}

func TestComputeTenDayScenario(t *testing.T) {
	// Two products, one store, one brand, ten consecutive days.
	records := append(
		productSeries(1, 100, 10, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}),
		productSeries(2, 100, 10, []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10})...,
	)

	recs := Compute(context.Background(), records)
	require.Len(t, recs, 20)

	day7 := findRecord(t, recs, 1, day(7))
	assert.InDelta(t, 4.0, day7.MA7P, 1e-9, "day 7 mean covers days 1-7")
	assert.False(t, day7.Lag7P.Valid, "lag is absent for the first seven rows")

	day8 := findRecord(t, recs, 1, day(8))
	assert.InDelta(t, 5.0, day8.MA7P, 1e-9, "day 8 window slides to days 2-8")
	require.True(t, day8.Lag7P.Valid)
	assert.Equal(t, 1.0, day8.Lag7P.Value, "lag 7 of the 8th row is the 1st row's quantity")
}

func TestComputeNoLookAhead(t *testing.T) {
	base := productSeries(1, 100, 10, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	changed := productSeries(1, 100, 10, []float64{1, 2, 99, 4, 5, 6, 7, 8, 9, 10})

	baseRecs := Compute(context.Background(), base)
	changedRecs := Compute(context.Background(), changed)

	// Changing day 3 must not affect features computed for days 1 and 2.
	for d := 1; d <= 2; d++ {
		before := findRecord(t, baseRecs, 1, day(d))
		after := findRecord(t, changedRecs, 1, day(d))
		assert.Equal(t, before.MA7P, after.MA7P, "day %d", d)
		assert.Equal(t, before.Lag7P, after.Lag7P, "day %d", d)
	}

	// But it does affect day 3 onward.
	assert.NotEqual(t,
		findRecord(t, baseRecs, 1, day(3)).MA7P,
		findRecord(t, changedRecs, 1, day(3)).MA7P)
}

func TestComputeGroupIsolation(t *testing.T) {
	// Same product sold at two stores: windows must never cross the store
	// boundary even though the product matches.
	storeA := productSeries(1, 100, 10, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	storeB := productSeries(1, 200, 10, []float64{1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000})

	recs := Compute(context.Background(), append(storeA, storeB...))

	for _, r := range recs {
		if r.StoreID == 100 {
			assert.InDelta(t, 1.0, r.MA7P, 1e-9)
			if r.Lag7P.Valid {
				assert.Equal(t, 1.0, r.Lag7P.Value)
			}
		}
	}
}

func TestComputePositionalLagWithCalendarGaps(t *testing.T) {
	// Nine observations with a large calendar hole: the lag is still by
	// seven rows, not seven days.
	quantities := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	records := make([]dataset.SalesRecord, len(quantities))
	for i, q := range quantities {
		d := day(i + 1)
		if i >= 5 {
			d = day(i + 20) // gap in the calendar
		}
		records[i] = dataset.SalesRecord{
			Date: d, ProductID: 1, StoreID: 100, BrandID: 10, Quantity: q,
		}
	}

	recs := Compute(context.Background(), records)

	eighth := findRecord(t, recs, 1, day(27))
	require.True(t, eighth.Lag7P.Valid)
	assert.Equal(t, 1.0, eighth.Lag7P.Value)
}

func TestComputeBrandAndStoreTotals(t *testing.T) {
	// Two brands at one store, two days.
	records := []dataset.SalesRecord{
		{Date: day(1), ProductID: 1, StoreID: 100, BrandID: 10, Quantity: 1},
		{Date: day(1), ProductID: 2, StoreID: 100, BrandID: 10, Quantity: 3},
		{Date: day(1), ProductID: 3, StoreID: 100, BrandID: 20, Quantity: 5},
		{Date: day(2), ProductID: 1, StoreID: 100, BrandID: 10, Quantity: 2},
		{Date: day(2), ProductID: 2, StoreID: 100, BrandID: 10, Quantity: 4},
		{Date: day(2), ProductID: 3, StoreID: 100, BrandID: 20, Quantity: 6},
	}

	recs := Compute(context.Background(), records)

	for _, r := range recs {
		switch {
		case r.BrandID == 10 && r.Date.Equal(day(1)):
			assert.Equal(t, 4.0, r.SalesBrand)
		case r.BrandID == 10 && r.Date.Equal(day(2)):
			assert.Equal(t, 6.0, r.SalesBrand)
		case r.BrandID == 20 && r.Date.Equal(day(1)):
			assert.Equal(t, 5.0, r.SalesBrand)
		case r.BrandID == 20 && r.Date.Equal(day(2)):
			assert.Equal(t, 6.0, r.SalesBrand)
		}
	}

	// Aggregation consistency: per (store, date), the distinct brand totals
	// sum to the store total.
	for _, d := range []time.Time{day(1), day(2)} {
		brandTotals := map[int]float64{}
		var storeTotal float64
		for _, r := range recs {
			if !r.Date.Equal(d) {
				continue
			}
			brandTotals[r.BrandID] = r.SalesBrand
			storeTotal = r.SalesStore
		}
		var sum float64
		for _, v := range brandTotals {
			sum += v
		}
		assert.InDelta(t, storeTotal, sum, 1e-9, "date %s", d.Format("2006-01-02"))
	}
}

func TestComputeBrandWindowIsRowBased(t *testing.T) {
	// Two products of one brand over two days. The brand group holds four
	// rows (two per day), so the rolling mean at the last row averages all
	// four brand totals: (4+4+12+12)/4 = 8.
	records := []dataset.SalesRecord{
		{Date: day(1), ProductID: 1, StoreID: 100, BrandID: 10, Quantity: 1},
		{Date: day(1), ProductID: 2, StoreID: 100, BrandID: 10, Quantity: 3},
		{Date: day(2), ProductID: 1, StoreID: 100, BrandID: 10, Quantity: 5},
		{Date: day(2), ProductID: 2, StoreID: 100, BrandID: 10, Quantity: 7},
	}

	recs := Compute(context.Background(), records)

	last := findRecord(t, recs, 2, day(2))
	assert.Equal(t, 12.0, last.SalesBrand)
	assert.InDelta(t, 8.0, last.MA7B, 1e-9)
}

func TestComputeShuffleInvariantValues(t *testing.T) {
	records := append(
		productSeries(1, 100, 10, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}),
		productSeries(2, 100, 10, []float64{9, 7, 5, 3, 1, 2, 4, 6, 8, 10})...,
	)

	shuffled := make([]dataset.SalesRecord, len(records))
	copy(shuffled, records)
	rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	baseline := Compute(context.Background(), records)
	reshuffled := Compute(context.Background(), shuffled)

	for _, want := range baseline {
		got := findRecord(t, reshuffled, want.ProductID, want.Date)
		assert.Equal(t, want, got)
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	records := productSeries(1, 100, 10, []float64{1, 2, 3})
	snapshot := make([]dataset.SalesRecord, len(records))
	copy(snapshot, records)

	_ = Compute(context.Background(), records)

	assert.Equal(t, snapshot, records)
}
