package fileloader

import (
	"bytes"
	"fmt"

	"gridquery/app/interfaces"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX parses one sheet of XLSX data into a header and rows. The sheet
// named in options.Sheet is used, or the first sheet when it is empty.
func ParseXLSX(data []byte, options FileOptions) ([]string, []interfaces.Row, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("data is empty")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheetName, err := resolveSheet(f, options.Sheet)
	if err != nil {
		return nil, nil, err
	}

	records, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	header, body := splitHeader(records, options)
	if header == nil {
		return nil, nil, fmt.Errorf("no rows found in sheet %q", sheetName)
	}
	return header, recordsToRows(header, body, options.InferNumbers), nil
}

func resolveSheet(f *excelize.File, want string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("no sheets found in XLSX file")
	}
	if want == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == want {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found, available sheets: %v", want, sheets)
}

// XLSXSheets lists the sheet names of XLSX data
func XLSXSheets(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
