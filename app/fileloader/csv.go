package fileloader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"gridquery/app/interfaces"
)

// readCSVRecords reads every record of CSV data. A malformed record stops
// the read; the records before it are kept and the error is returned as a
// warning.
func readCSVRecords(data []byte, delimiter rune) ([][]string, string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	// Allow variable number of fields per record to handle corrupted CSV files
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, "", nil
		}
		if err != nil {
			if len(records) == 0 {
				return nil, "", fmt.Errorf("failed to parse CSV: %w", err)
			}
			return records, fmt.Sprintf("CSV parsing stopped early: %v", err), nil
		}
		records = append(records, rec)
	}
}

// ParseCSV parses CSV data into a header and rows
func ParseCSV(data []byte, delimiter rune, options FileOptions) ([]string, []interfaces.Row, string, error) {
	if len(data) == 0 {
		return nil, nil, "", fmt.Errorf("data is empty")
	}
	records, warning, err := readCSVRecords(data, delimiter)
	if err != nil {
		return nil, nil, "", err
	}
	header, body := splitHeader(records, options)
	if header == nil {
		return nil, nil, "", fmt.Errorf("no rows found in CSV data")
	}
	return header, recordsToRows(header, body, options.InferNumbers), warning, nil
}
