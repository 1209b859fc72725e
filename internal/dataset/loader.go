package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"salescli/internal/config"
	apperrors "salescli/internal/errors"
)

// Paths locates the four input tables on disk.
type Paths struct {
	Sales   string
	Product string
	Brand   string
	Store   string
}

// LoadTables reads the four input tables. The files are independent, so they
// load concurrently; everything downstream of loading is synchronous.
// Any shape error (missing column, unparseable date or quantity) is fatal and
// surfaces before any feature is computed.
func LoadTables(ctx context.Context, paths Paths) (*Tables, error) {
	logger := slog.Default()
	logger.InfoContext(ctx, "loading input tables",
		slog.String("sales", paths.Sales),
		slog.String("product", paths.Product),
		slog.String("brand", paths.Brand),
		slog.String("store", paths.Store),
	)

	var tables Tables

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tables.Sales, err = LoadSalesFacts(ctx, paths.Sales)
		return err
	})
	g.Go(func() error {
		var err error
		tables.Products, err = LoadProducts(ctx, paths.Product)
		return err
	})
	g.Go(func() error {
		var err error
		tables.Brands, err = LoadBrands(ctx, paths.Brand)
		return err
	})
	g.Go(func() error {
		var err error
		tables.Stores, err = LoadStores(ctx, paths.Store)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "input tables loaded",
		slog.Int("sales_rows", len(tables.Sales)),
		slog.Int("products", len(tables.Products)),
		slog.Int("brands", len(tables.Brands)),
		slog.Int("stores", len(tables.Stores)),
	)

	return &tables, nil
}

// LoadSalesFacts reads the sales fact table.
// Expected columns: date, product, store, quantity.
func LoadSalesFacts(ctx context.Context, path string) ([]SalesFact, error) {
	rows, cols, err := readTable(path, []string{"date", "product", "store", "quantity"})
	if err != nil {
		return nil, err
	}

	facts := make([]SalesFact, 0, len(rows))
	for i, row := range rows {
		date, err := parseDate(row[cols["date"]], path, i+2)
		if err != nil {
			return nil, err
		}
		productID, err := parseInt(row[cols["product"]], "product", path, i+2)
		if err != nil {
			return nil, err
		}
		storeID, err := parseInt(row[cols["store"]], "store", path, i+2)
		if err != nil {
			return nil, err
		}
		quantity, err := parseFloat(row[cols["quantity"]], "quantity", path, i+2)
		if err != nil {
			return nil, err
		}

		facts = append(facts, SalesFact{
			Date:      date,
			ProductID: productID,
			StoreID:   storeID,
			Quantity:  quantity,
		})
	}

	return facts, nil
}

// LoadProducts reads the product dimension.
// Expected columns: id, name, brand.
func LoadProducts(ctx context.Context, path string) ([]Product, error) {
	rows, cols, err := readTable(path, []string{"id", "name", "brand"})
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(rows))
	for i, row := range rows {
		id, err := parseInt(row[cols["id"]], "id", path, i+2)
		if err != nil {
			return nil, err
		}
		products = append(products, Product{
			ID:    id,
			Name:  strings.TrimSpace(row[cols["name"]]),
			Brand: strings.TrimSpace(row[cols["brand"]]),
		})
	}

	return products, nil
}

// LoadBrands reads the brand dimension.
// Expected columns: id, name.
func LoadBrands(ctx context.Context, path string) ([]Brand, error) {
	rows, cols, err := readTable(path, []string{"id", "name"})
	if err != nil {
		return nil, err
	}

	brands := make([]Brand, 0, len(rows))
	for i, row := range rows {
		id, err := parseInt(row[cols["id"]], "id", path, i+2)
		if err != nil {
			return nil, err
		}
		brands = append(brands, Brand{
			ID:   id,
			Name: strings.TrimSpace(row[cols["name"]]),
		})
	}

	return brands, nil
}

// LoadStores reads the store dimension.
// Expected columns: id, name.
func LoadStores(ctx context.Context, path string) ([]Store, error) {
	rows, cols, err := readTable(path, []string{"id", "name"})
	if err != nil {
		return nil, err
	}

	stores := make([]Store, 0, len(rows))
	for i, row := range rows {
		id, err := parseInt(row[cols["id"]], "id", path, i+2)
		if err != nil {
			return nil, err
		}
		stores = append(stores, Store{
			ID:   id,
			Name: strings.TrimSpace(row[cols["name"]]),
		})
	}

	return stores, nil
}

// readTable reads a CSV file and resolves the required column positions from
// its header row. A missing required column is a fatal shape error.
func readTable(path string, required []string) ([][]string, map[string]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, apperrors.NewStorageError(fmt.Sprintf("open input table %s", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, apperrors.NewParsingError(fmt.Sprintf("read CSV records from %s", path), err)
	}

	if len(records) == 0 {
		return nil, nil, apperrors.NewParsingError(fmt.Sprintf("empty input table %s", path), nil)
	}

	cols := make(map[string]int, len(records[0]))
	for idx, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}

	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, apperrors.NewParsingError(
				fmt.Sprintf("input table %s is missing required column %q", path, name), nil)
		}
	}

	return records[1:], cols, nil
}

// parseDate parses a calendar date cell.
func parseDate(value, path string, line int) (time.Time, error) {
	date, err := time.Parse(config.DateFormat, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperrors.NewParsingError(
			fmt.Sprintf("parse date (%s line %d)", path, line), err)
	}
	return date, nil
}

// parseInt parses an integer identifier cell.
func parseInt(value, field, path string, line int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, apperrors.NewParsingError(
			fmt.Sprintf("parse %s (%s line %d)", field, path, line), err)
	}
	return n, nil
}

// parseFloat parses a numeric quantity cell.
func parseFloat(value, field, path string, line int) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, apperrors.NewParsingError(
			fmt.Sprintf("parse %s (%s line %d)", field, path, line), err)
	}
	return f, nil
}
