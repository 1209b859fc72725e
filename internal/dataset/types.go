package dataset

import (
	"time"
)

// SalesFact is one row of the sales fact table: the quantity of one product
// sold at one store on one date.
type SalesFact struct {
	Date      time.Time
	ProductID int
	StoreID   int
	Quantity  float64
}

// Product is one row of the product dimension. Brand references the brand
// dimension by name.
type Product struct {
	ID    int
	Name  string
	Brand string
}

// Brand is one row of the brand dimension.
type Brand struct {
	ID   int
	Name string
}

// Store is one row of the store dimension.
type Store struct {
	ID   int
	Name string
}

// SalesRecord is the denormalized post-merge row: a sales fact augmented with
// its product, brand, and store dimension attributes. Colliding dimension
// columns keep their source role in the field name (ProductName vs BrandName
// vs StoreName).
type SalesRecord struct {
	Date        time.Time
	ProductID   int
	StoreID     int
	BrandID     int
	Quantity    float64
	ProductName string
	BrandName   string
	StoreName   string
}

// Tables bundles the four loaded input tables prior to the merge.
type Tables struct {
	Sales    []SalesFact
	Products []Product
	Brands   []Brand
	Stores   []Store
}
