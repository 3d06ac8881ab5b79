package inventory

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// parseTable dispatches on the file extension and returns the first sheet as text cells.
func parseTable(name string, data []byte, charset string) ([][]string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".xls":
		return parseXLS(data, charset)
	case ".xlsx", ".xlsm":
		return parseXLSX(data)
	case ".csv", ".txt":
		return parseCSV(data, charset)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrFormat, name)
	}
}

func parseXLS(data []byte, charset string) ([][]string, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), charset)
	if err != nil {
		return nil, fmt.Errorf("%w: open xls: %v", ErrFormat, err)
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%w: xls workbook has no sheets", ErrFormat)
	}

	table := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			table = append(table, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		table = append(table, cells)
	}
	return table, nil
}

func parseXLSX(data []byte) ([][]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %v", ErrFormat, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: xlsx workbook has no sheets", ErrFormat)
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", ErrFormat, sheets[0], err)
	}
	return rows, nil
}

func parseCSV(data []byte, charset string) ([][]string, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown charset %q", ErrFormat, charset)
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrFormat, charset, err)
	}
	decoded = bytes.TrimPrefix(decoded, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = guessDelimiter(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var table [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse csv: %v", ErrFormat, err)
		}
		table = append(table, record)
	}
	return table, nil
}

func guessDelimiter(data []byte) rune {
	if bytes.Count(data, []byte(";")) > bytes.Count(data, []byte(",")) {
		return ';'
	}
	return ','
}
