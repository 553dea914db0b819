// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export turns converted CSV content into an Excel workbook for
// download.
package export

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the media type of the workbook returned by CSVToXLSX.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CSVToXLSX writes each blank-line-separated CSV table in content to its own
// sheet ("Table 1", "Table 2", ...). Plain decimal cells are stored as
// numbers; everything else, including zero-padded codes and "+"-prefixed
// phone numbers, stays text.
func CSVToXLSX(content string) ([]byte, error) {
	tables, err := ParseTables(content)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no CSV rows to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, rows := range tables {
		sheet := fmt.Sprintf("Table %d", i+1)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return nil, fmt.Errorf("naming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("creating sheet %s: %w", sheet, err)
		}

		for r, row := range rows {
			for c, value := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(sheet, cell, cellValue(value)); err != nil {
					return nil, fmt.Errorf("writing %s!%s: %w", sheet, cell, err)
				}
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseTables splits content on blank lines and parses each block as CSV.
// Rows may have differing field counts.
func ParseTables(content string) ([][][]string, error) {
	var tables [][][]string
	for i, block := range splitBlocks(content) {
		r := csv.NewReader(strings.NewReader(block))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		rows, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parsing table %d: %w", i+1, err)
		}
		if len(rows) > 0 {
			tables = append(tables, rows)
		}
	}
	return tables, nil
}

func splitBlocks(content string) []string {
	var (
		blocks  []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

// plainDecimal matches an optionally negative decimal without a leading zero
// in the integer part (except a lone "0"), exponent or sign prefix.
var plainDecimal = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

func cellValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if !plainDecimal.MatchString(trimmed) {
		return s
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return s
	}
	return n
}
