package fileloader

import (
	"math"
	"strconv"
	"strings"

	"gridquery/app/interfaces"
)

// excelColumnName converts a 0-based index to an Excel-style column name.
// Examples: 0 -> A, 25 -> Z, 26 -> AA, 701 -> ZZ, 702 -> AAA
func excelColumnName(index int) string {
	result := ""
	index++
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
}

// NormalizeHeaders makes a header row usable as row keys. Empty or
// whitespace-only names become Unnamed_A, Unnamed_B, ... and repeated names
// get a numeric suffix (name, name_2, name_3) so no column shadows another.
//
//	Input:  ["name", "", "age", "name", "  "]
//	Output: ["name", "Unnamed_A", "age", "name_2", "Unnamed_B"]
func NormalizeHeaders(header []string) []string {
	normalized := make([]string, len(header))
	seen := make(map[string]int, len(header))
	emptyCount := 0

	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed_" + excelColumnName(emptyCount)
			emptyCount++
		}
		name := h
		for seen[name] > 0 {
			seen[h]++
			name = h + "_" + strconv.Itoa(seen[h])
		}
		seen[name]++
		normalized[i] = name
	}
	return normalized
}

// syntheticHeader names n columns for files without a header row
func syntheticHeader(n int) []string {
	return NormalizeHeaders(make([]string, n))
}

// InferCell converts a text cell into a row value. With infer set, plain
// decimal numbers become float64; text with leading zeros ("007"), hex,
// NaN and infinities stays a string.
func InferCell(s string, infer bool) any {
	if !infer {
		return s
	}
	t := strings.TrimSpace(s)
	if t == "" || !looksNumeric(t) {
		return s
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	return f
}

func looksNumeric(t string) bool {
	digits := strings.TrimLeft(t, "+-")
	if digits == "" {
		return false
	}
	// Identifiers such as zip codes keep their leading zeros
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return false
	}
	for _, r := range digits {
		switch {
		case r >= '0' && r <= '9', r == '.', r == 'e', r == 'E', r == '+', r == '-':
		default:
			return false
		}
	}
	return true
}

// recordsToRows converts text records into rows keyed by header. Short
// records leave the missing fields out; extra cells are dropped.
func recordsToRows(header []string, records [][]string, infer bool) []interfaces.Row {
	rows := make([]interfaces.Row, 0, len(records))
	for _, rec := range records {
		row := make(interfaces.Row, len(header))
		for i, cell := range rec {
			if i >= len(header) {
				break
			}
			row[header[i]] = InferCell(cell, infer)
		}
		rows = append(rows, row)
	}
	return rows
}

// splitHeader separates the header from the data records of a table
func splitHeader(records [][]string, options FileOptions) ([]string, [][]string) {
	if len(records) == 0 {
		return nil, nil
	}
	if options.NoHeaderRow {
		width := 0
		for _, rec := range records {
			width = max(width, len(rec))
		}
		return syntheticHeader(width), records
	}
	return NormalizeHeaders(records[0]), records[1:]
}
