package inventory

import (
	"fmt"
	"strings"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
	"github.com/VASILIYKAS/seller-apis/internal/platform/textutil"
)

type columnIndex struct {
	code, quantity, price, name int
}

// buildRows maps the table below headerRow onto inventory rows using the header captions.
func buildRows(table [][]string, headerRow int, columns Columns) ([]domain.InventoryRow, error) {
	if headerRow >= len(table) {
		return nil, fmt.Errorf("%w: header row %d beyond last row %d", ErrFormat, headerRow, len(table)-1)
	}
	idx, err := locateColumns(table[headerRow], columns)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.InventoryRow, 0, len(table)-headerRow-1)
	for _, record := range table[headerRow+1:] {
		row := domain.InventoryRow{
			Code:     integralText(cell(record, idx.code)),
			Quantity: integralText(cell(record, idx.quantity)),
			Price:    cell(record, idx.price),
			Name:     cell(record, idx.name),
		}
		if row.Code == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func locateColumns(header []string, columns Columns) (columnIndex, error) {
	idx := columnIndex{code: -1, quantity: -1, price: -1, name: -1}
	code := textutil.FoldCaption(columns.Code)
	quantity := textutil.FoldCaption(columns.Quantity)
	price := textutil.FoldCaption(columns.Price)
	name := textutil.FoldCaption(columns.Name)
	for i, caption := range header {
		caption = textutil.FoldCaption(caption)
		switch {
		case idx.code < 0 && caption == code:
			idx.code = i
		case idx.quantity < 0 && caption == quantity:
			idx.quantity = i
		case idx.price < 0 && caption == price:
			idx.price = i
		case idx.name < 0 && name != "" && caption == name:
			idx.name = i
		}
	}

	var missing []string
	if idx.code < 0 {
		missing = append(missing, columns.Code)
	}
	if idx.quantity < 0 {
		missing = append(missing, columns.Quantity)
	}
	if idx.price < 0 {
		missing = append(missing, columns.Price)
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: header is missing columns %s", ErrFormat, strings.Join(missing, ", "))
	}
	return idx, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// integralText drops an all-zero fractional part, e.g. "63433.0" becomes "63433".
// Sentinels such as ">10" and non-numeric text pass through unchanged.
func integralText(value string) string {
	whole, frac, ok := strings.Cut(value, ".")
	if !ok || whole == "" || frac == "" {
		return value
	}
	digits := strings.TrimPrefix(whole, "-")
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return value
	}
	if strings.Trim(frac, "0") != "" {
		return value
	}
	return whole
}
