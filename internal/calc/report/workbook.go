package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"Civcalc/internal/calc/boq"
)

const (
	boqSheet        = "BOQ"
	dimensionsSheet = "Dimensions"
)

// BOQWorkbook builds a workbook with the bill on one sheet and the
// dimension breakdown of every item on a second.
func BOQWorkbook(resp boq.Response) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", boqSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(dimensionsSheet); err != nil {
		f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	qty, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, err
	}

	w := &sheetWriter{f: f, sheet: boqSheet}
	w.row(bold, "Bill of Quantities", resp.Project.Name)
	w.row(0)
	w.row(bold, "Code", "Description", "Unit", "Quantity")
	for _, group := range byCategory(resp.Items) {
		w.row(bold, title.String(group[0].Category.String()))
		for _, it := range group {
			w.row(0, it.Code, it.Description, it.Unit, it.Quantity)
			w.style("D", qty)
		}
	}
	w.width("A", 16)
	w.width("B", 70)
	w.width("C", 8)
	w.width("D", 14)

	dw := &sheetWriter{f: f, sheet: dimensionsSheet}
	dw.row(bold, "Code", "Source", "Component", "Note", "Times", "Dimensions", "Value")
	for _, it := range resp.Items {
		for _, d := range it.Dimensions {
			dw.row(0, it.Code, d.Source, d.Component, d.Note, d.Times, formatDims(d.Dims), d.Value)
			dw.style("G", qty)
		}
	}
	dw.width("B", 14)
	dw.width("F", 24)

	if err := errors.Join(w.err, dw.err); err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteBOQ writes the BOQ workbook as XLSX.
func WriteBOQ(out io.Writer, resp boq.Response) error {
	f, err := BOQWorkbook(resp)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(out)
}

func formatDims(dims []float64) string {
	parts := make([]string, len(dims))
	for i, v := range dims {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, " x ")
}

// sheetWriter appends rows to one sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	n     int
	err   error
}

func (w *sheetWriter) row(style int, values ...any) {
	w.n++
	if w.err != nil || len(values) == 0 {
		return
	}
	cell := fmt.Sprintf("A%d", w.n)
	if w.err = w.f.SetSheetRow(w.sheet, cell, &values); w.err != nil {
		return
	}
	if style != 0 {
		end, _ := excelize.CoordinatesToCellName(len(values), w.n)
		w.err = w.f.SetCellStyle(w.sheet, cell, end, style)
	}
}

func (w *sheetWriter) style(col string, style int) {
	if w.err != nil {
		return
	}
	cell := fmt.Sprintf("%s%d", col, w.n)
	w.err = w.f.SetCellStyle(w.sheet, cell, cell, style)
}

func (w *sheetWriter) width(col string, v float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(w.sheet, col, col, v)
}
