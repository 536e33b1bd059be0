package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/bmvandoren/vol2bird/internal/fsutil"
	"github.com/bmvandoren/vol2bird/internal/profile"
)

// Sheet names used in exported workbooks.
const (
	ProfileSheet  = "profile"
	MetadataSheet = "metadata"
)

// WorkbookColumns is the header row of the profile sheet.
var WorkbookColumns = []string{
	"height_bottom", "height_top", "height",
	"u", "v", "w", "speed", "direction", "direction_all",
	"gap", "stddev", "eta", "dbz", "density", "n_points",
	"density_all", "dbz_all", "n_points_all",
}

// NewWorkbook builds a workbook with one row per height bin and a
// metadata sheet.
func NewWorkbook(vp *profile.VerticalProfile) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ProfileSheet); err != nil {
		f.Close()
		return nil, err
	}

	header := make([]interface{}, len(WorkbookColumns))
	for i, c := range WorkbookColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(ProfileSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}

	for i, l := range vp.Layers() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{
			sheetValue(l.HeightBottom), sheetValue(l.HeightTop), sheetValue(l.Height),
			sheetValue(l.U), sheetValue(l.V), sheetValue(l.W),
			sheetValue(l.Speed), sheetValue(l.Direction), sheetValue(l.DirectionAll),
			l.Gap, sheetValue(l.StdDev), sheetValue(l.Eta), sheetValue(l.Dbz),
			sheetValue(l.Density), sheetValue(l.NPoints),
			sheetValue(l.DensityAll), sheetValue(l.DbzAll), sheetValue(l.NPointsAll),
		}
		if err := f.SetSheetRow(ProfileSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if _, err := f.NewSheet(MetadataSheet); err != nil {
		f.Close()
		return nil, err
	}
	summary := vp.Summary()
	meta := [][]interface{}{
		{"source", vp.Metadata.Source},
		{"date", vp.Metadata.Date},
		{"time", vp.Metadata.Time},
		{"n_gates_cell_min", vp.Settings.NGatesCellMin},
		{"cell_dbz_min", vp.Settings.CellDbzMin},
		{"layer_thickness", vp.Settings.LayerThickness},
		{"vid", summary.VID},
		{"mtr", summary.MTR},
	}
	for i, row := range meta {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(MetadataSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteWorkbookTo writes the profile workbook as XLSX into w.
func WriteWorkbookTo(w io.Writer, vp *profile.VerticalProfile) error {
	f, err := NewWorkbook(vp)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()
	return f.Write(w)
}

// WriteWorkbook writes the profile workbook to an XLSX file.
func WriteWorkbook(fsys fsutil.FileSystem, path string, vp *profile.VerticalProfile) error {
	return fsutil.WriteFile(fsys, path, func(w io.Writer) error {
		return WriteWorkbookTo(w, vp)
	})
}

// sheetValue leaves missing values as empty cells.
func sheetValue(v float64) interface{} {
	if profile.Cell(v).Missing() {
		return nil
	}
	return v
}
