package profiler

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/LeeChanHyuk/lightning/internal/errors"
)

const exportSheet = "Sheet1"

var exportHeader = []string{"Action", "Call", "Duration (ns)", "Duration (ms)"}

// Export writes one row per recorded call to path. The format follows the
// extension: .csv or .xlsx. Actions are written in name order.
func Export(path string, records map[string][]time.Duration) error {
	rows := exportRows(records)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return exportCSV(path, rows)
	case ".xlsx":
		return exportXLSX(path, rows)
	default:
		return errors.InvalidInput(fmt.Sprintf("unsupported export format: %s", path))
	}
}

type exportRow struct {
	action string
	call   int
	nanos  int64
	millis float64
}

func exportRows(records map[string][]time.Duration) []exportRow {
	actions := make([]string, 0, len(records))
	for action := range records {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	var rows []exportRow
	for _, action := range actions {
		for i, d := range records[action] {
			rows = append(rows, exportRow{
				action: action,
				call:   i + 1,
				nanos:  d.Nanoseconds(),
				millis: float64(d.Nanoseconds()) / 1e6,
			})
		}
	}
	return rows
}

func exportCSV(path string, rows []exportRow) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.IOError("failed to create export file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(exportHeader); err != nil {
		return errors.IOError("failed to write export header", err)
	}
	for _, row := range rows {
		record := []string{
			row.action,
			strconv.Itoa(row.call),
			strconv.FormatInt(row.nanos, 10),
			fmt.Sprintf("%.3f", row.millis),
		}
		if err := writer.Write(record); err != nil {
			return errors.IOError("failed to write export row", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.IOError("failed to flush export file", err)
	}
	return nil
}

func exportXLSX(path string, rows []exportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return errors.IOError("failed to write export header", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "failed to address export row")
		}
		values := []interface{}{row.action, row.call, row.nanos, row.millis}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return errors.IOError("failed to write export row", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.IOError("failed to save export workbook", err)
	}
	return nil
}
