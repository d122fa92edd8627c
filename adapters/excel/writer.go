package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"funnelab/domain/experiment"
)

// FunnelRow is the funnel shape the workbook renders.
type FunnelRow struct {
	Step              string
	Users             int
	ConversionRatePct float64
}

// ResultWriter renders experiment results and the funnel as an Excel
// workbook for stakeholders who live in spreadsheets.
type ResultWriter struct{}

// NewResultWriter creates a new workbook writer
func NewResultWriter() *ResultWriter {
	return &ResultWriter{}
}

var experimentHeader = []string{
	"Experiment", "Control Users", "Control Conversions", "Control Rate",
	"Treatment Users", "Treatment Conversions", "Treatment Rate",
	"Absolute Uplift", "Relative Uplift", "p-value", "CI Lower", "CI Upper",
	"Significant", "Decision", "Reason",
}

// Write saves results and funnel to the given path.
func (w *ResultWriter) Write(path string, results []experiment.Result, funnel []FunnelRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Experiments"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	for col, name := range experimentHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}

	for i, r := range results {
		row := []interface{}{
			r.ExperimentID,
			r.Control.Users, r.Control.Conversions, r.Control.ConversionRate(),
			r.Treatment.Users, r.Treatment.Conversions, r.Treatment.ConversionRate(),
			r.AbsoluteUplift, r.RelativeUplift, r.PValue, r.CILower, r.CIUpper,
			r.IsSignificant, string(r.Decision), r.Reason,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(funnel) > 0 {
		if err := w.writeFunnelSheet(f, funnel); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func (w *ResultWriter) writeFunnelSheet(f *excelize.File, funnel []FunnelRow) error {
	const sheet = "Funnel"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []interface{}{"Step", "Users", "Conversion %"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range funnel {
		values := []interface{}{row.Step, row.Users, row.ConversionRatePct}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
