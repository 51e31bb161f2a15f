package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// LoadAssets reads asset records from a CSV file with a header row.
// Expected columns: Id, SiteId, Name, Type, SerialNumber, MaintenanceStatus.
func LoadAssets(path string) ([]Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening assets file: %w", err)
	}
	defer f.Close()

	rows, err := readRecords(f)
	if err != nil {
		return nil, fmt.Errorf("reading assets file %s: %w", path, err)
	}

	assets := make([]Asset, 0, len(rows))
	for i, row := range rows {
		siteID, err := strconv.Atoi(row["SiteId"])
		if err != nil {
			return nil, fmt.Errorf("assets row %d: invalid SiteId %q", i+1, row["SiteId"])
		}
		a := Asset{
			ID:                row["Id"],
			SiteID:            siteID,
			Name:              row["Name"],
			Type:              row["Type"],
			SerialNumber:      row["SerialNumber"],
			MaintenanceStatus: row["MaintenanceStatus"],
		}
		if a.ID == "" {
			return nil, fmt.Errorf("assets row %d: missing Id", i+1)
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// LoadProducts reads product records from a CSV file with a header row.
// Expected columns: Id, Name, Category, Price, UnitCost.
func LoadProducts(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening products file: %w", err)
	}
	defer f.Close()

	rows, err := readRecords(f)
	if err != nil {
		return nil, fmt.Errorf("reading products file %s: %w", path, err)
	}

	products := make([]Product, 0, len(rows))
	for i, row := range rows {
		price, err := decimal.NewFromString(row["Price"])
		if err != nil {
			return nil, fmt.Errorf("products row %d: invalid Price %q", i+1, row["Price"])
		}
		cost, err := decimal.NewFromString(row["UnitCost"])
		if err != nil {
			return nil, fmt.Errorf("products row %d: invalid UnitCost %q", i+1, row["UnitCost"])
		}
		p := Product{
			ID:       row["Id"],
			Name:     row["Name"],
			Category: row["Category"],
			Price:    price,
			UnitCost: cost,
		}
		if p.ID == "" {
			return nil, fmt.Errorf("products row %d: missing Id", i+1)
		}
		products = append(products, p)
	}
	return products, nil
}

// readRecords parses CSV rows into header-keyed maps, preserving order.
func readRecords(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
