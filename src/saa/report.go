package saa

import (
	"errors"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

var resultHeader = []any{
	"method", "IS", "NS", "MS", "SS", "objective", "elapsed_s", "cluster_count", "gap_percent",
}

func (r *Result) summaryRow() []any {
	return []any{
		r.Method, r.IS, r.NS, r.MS, r.SS,
		r.Objective(), r.Elapsed.Seconds(), r.ClusterCount, r.Gap,
	}
}

// SaveResult appends r to the workbook at path, creating it when missing.
// Sheet results_IS_<IS>_NS_<NS> gets one summary row per run; sheet
// details_IS_<IS>_NS_<NS> gets the same row followed, to its right, by the
// IS×LS facility block and the AS×IS inventory block.
func SaveResult(path string, r *Result) error {
	f, fresh, err := openWorkbook(path)
	if err != nil {
		return err
	}
	defer f.Close()

	results := fmt.Sprintf("results_IS_%d_NS_%d", r.IS, r.NS)
	row, err := nextRow(f, results, resultHeader)
	if err != nil {
		return err
	}
	if err := setRow(f, results, 1, row, r.summaryRow()); err != nil {
		return err
	}

	details := fmt.Sprintf("details_IS_%d_NS_%d", r.IS, r.NS)
	if err := writeDetails(f, details, r); err != nil {
		return err
	}

	if fresh {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("removing default sheet: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func openWorkbook(path string) (*excelize.File, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, false, nil
}

// nextRow returns the first empty row of sheet, creating the sheet with
// header when it does not exist.
func nextRow(f *excelize.File, sheet string, header []any) (int, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return 0, err
	}
	if idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return 0, fmt.Errorf("creating sheet %s: %w", sheet, err)
		}
		if header == nil {
			return 1, nil
		}
		if err := setRow(f, sheet, 1, 1, header); err != nil {
			return 0, err
		}
		return 2, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	return len(rows) + 1, nil
}

func setRow(f *excelize.File, sheet string, col, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func writeDetails(f *excelize.File, sheet string, r *Result) error {
	start, err := nextRow(f, sheet, nil)
	if err != nil {
		return err
	}
	if start > 1 {
		start++
	}
	summary := r.summaryRow()
	if err := setRow(f, sheet, 1, start, summary); err != nil {
		return err
	}

	x, y := r.Best.X, r.Best.Y
	is, ls := x.Dims()
	as, _ := y.Dims()
	xCol := len(summary) + 2
	yCol := xCol + ls + 1
	for i := range is {
		facilities := make([]any, ls)
		for l := range ls {
			facilities[l] = x.At(i, l)
		}
		if err := setRow(f, sheet, xCol, start+i, facilities); err != nil {
			return err
		}
	}
	for a := range as {
		inventory := make([]any, is)
		for i := range is {
			inventory[i] = y.At(a, i)
		}
		if err := setRow(f, sheet, yCol, start+a, inventory); err != nil {
			return err
		}
	}
	return nil
}
