package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC)
}

func testTables() *Tables {
	return &Tables{
		Sales: []SalesFact{
			{Date: day(1), ProductID: 1, StoreID: 100, Quantity: 5},
			{Date: day(2), ProductID: 1, StoreID: 100, Quantity: 7},
			{Date: day(1), ProductID: 2, StoreID: 100, Quantity: 3},
		},
		Products: []Product{
			{ID: 1, Name: "Cola 330ml", Brand: "Acme"},
			{ID: 2, Name: "Cola 1l", Brand: "Acme"},
		},
		Brands: []Brand{{ID: 10, Name: "Acme"}},
		Stores: []Store{{ID: 100, Name: "Downtown"}},
	}
}

func TestMergeAllMatched(t *testing.T) {
	tables := testTables()

	merged := Merge(context.Background(), tables)

	// Every fact row has matching dimensions, so the row count is preserved.
	require.Len(t, merged, len(tables.Sales))

	first := merged[0]
	assert.Equal(t, 1, first.ProductID)
	assert.Equal(t, 100, first.StoreID)
	assert.Equal(t, 10, first.BrandID)
	assert.Equal(t, 5.0, first.Quantity)
	assert.Equal(t, "Cola 330ml", first.ProductName)
	assert.Equal(t, "Acme", first.BrandName)
	assert.Equal(t, "Downtown", first.StoreName)
}

func TestMergeDropsUnmatchedRows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tables)
		want   int
	}{
		{
			name: "nonexistent store id",
			mutate: func(tb *Tables) {
				tb.Sales = append(tb.Sales, SalesFact{Date: day(3), ProductID: 1, StoreID: 999, Quantity: 2})
			},
			want: 3,
		},
		{
			name: "nonexistent product id",
			mutate: func(tb *Tables) {
				tb.Sales = append(tb.Sales, SalesFact{Date: day(3), ProductID: 999, StoreID: 100, Quantity: 2})
			},
			want: 3,
		},
		{
			name: "product referencing unknown brand",
			mutate: func(tb *Tables) {
				tb.Products = append(tb.Products, Product{ID: 3, Name: "Mystery", Brand: "Nobody"})
				tb.Sales = append(tb.Sales, SalesFact{Date: day(3), ProductID: 3, StoreID: 100, Quantity: 2})
			},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := testTables()
			tt.mutate(tables)

			merged := Merge(context.Background(), tables)

			// Unmatched rows silently drop; output never exceeds fact count.
			assert.Len(t, merged, tt.want)
			assert.LessOrEqual(t, len(merged), len(tables.Sales))
			for _, r := range merged {
				assert.NotEqual(t, 999, r.StoreID)
				assert.NotEqual(t, 999, r.ProductID)
			}
		})
	}
}

func TestFilterByDateRange(t *testing.T) {
	records := []SalesRecord{
		{Date: day(1), ProductID: 1},
		{Date: day(5), ProductID: 2},
		{Date: day(9), ProductID: 3},
	}

	t.Run("inclusive bounds", func(t *testing.T) {
		got := FilterByDateRange(records, day(1), day(5))
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].ProductID)
		assert.Equal(t, 2, got[1].ProductID)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		got := FilterByDateRange(records, day(20), day(25))
		assert.Empty(t, got)
	})

	t.Run("preserves input order", func(t *testing.T) {
		got := FilterByDateRange(records, day(1), day(9))
		require.Len(t, got, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{got[0].ProductID, got[1].ProductID, got[2].ProductID})
	})
}
