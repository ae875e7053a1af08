// Package report writes product and recall exports as spreadsheets.
package report

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/safescan/recall-cli/internal/model"
)

var productHeader = []string{"ID", "Brand", "Lot Number", "Country", "Status", "Recall Reference", "Scanned At", "Updated At"}

var recallHeader = []string{"ID", "Country", "Brand", "Title", "Lot Numbers", "Published At"}

// WriteProductsXLSX writes products to an xlsx file with one sheet.
func WriteProductsXLSX(path string, products []model.Product) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Products")
	if err != nil {
		return eris.Wrap(err, "report: add products sheet")
	}

	addRow(sheet, productHeader...)
	for _, p := range products {
		addRow(sheet,
			p.ID,
			p.Brand,
			p.LotNumber,
			p.Country,
			string(p.RecallStatus),
			p.RecallReference,
			formatTime(p.ScannedAt),
			formatTime(p.UpdatedAt),
		)
	}

	return eris.Wrapf(f.Save(path), "report: save %s", path)
}

// WriteRecallsXLSX writes the recall corpus to an xlsx file.
func WriteRecallsXLSX(path string, recalls []model.Recall) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Recalls")
	if err != nil {
		return eris.Wrap(err, "report: add recalls sheet")
	}

	addRow(sheet, recallHeader...)
	for _, r := range recalls {
		lots := ""
		for i, lot := range r.LotNumbers {
			if i > 0 {
				lots += ", "
			}
			lots += lot
		}
		addRow(sheet, r.ID, r.Country, r.Brand, r.Title, lots, formatTime(r.PublishedAt))
	}

	return eris.Wrapf(f.Save(path), "report: save %s", path)
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
