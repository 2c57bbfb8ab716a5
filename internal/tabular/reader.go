package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// FileType identifies a supported statement file format.
type FileType string

const (
	FileCSV  FileType = "csv"
	FileXLSX FileType = "xlsx"
	FileXLS  FileType = "xls"
	FilePDF  FileType = "pdf"
)

// maxXLSRows bounds how many rows are read from a legacy .xls sheet.
const maxXLSRows = 65536

// DetectFileType maps a filename extension to a FileType.
// The second return is false for unsupported extensions.
func DetectFileType(filename string) (FileType, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "csv", "txt":
		// Pasted or exported plain text goes down the CSV path.
		return FileCSV, true
	case "xlsx":
		return FileXLSX, true
	case "xls":
		return FileXLS, true
	case "pdf":
		return FilePDF, true
	default:
		return "", false
	}
}

// ReadCSV reads CSV content into a row matrix. Ragged rows are allowed;
// bank exports frequently pad header banners with fewer cells.
func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: %w", err)
	}
	return rows, nil
}

// ReadXLSX reads the first sheet of an .xlsx workbook into a row matrix.
func ReadXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ReadXLSX: open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("ReadXLSX: workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ReadXLSX: read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// ReadXLS reads the first sheet of a legacy .xls workbook into a row matrix.
func ReadXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("ReadXLS: open workbook: %w", err)
	}

	rows := wb.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("ReadXLS: workbook has no rows")
	}
	return rows, nil
}

// MatrixCSV renders a row matrix back into CSV text, skipping fully blank
// rows. Used to hand a spreadsheet to the remote extractor when local
// parsing is unavailable.
func MatrixCSV(rows [][]string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	for _, row := range rows {
		blank := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}
		_ = w.Write(row)
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
