// Package importer reads takeoff components from an XLSX workbook.
//
// Each component kind has its own sheet ("manholes", "pipes", "tanks",
// "external", "superstructure"). The first row of a sheet holds the JSON
// field names of the component and every following non-blank row is one
// component. An optional "project" sheet lists project fields as
// name/value pairs in columns A and B. Other sheets are ignored.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/takeoff"
	"Civcalc/internal/calc/validate"
	"Civcalc/internal/calcerr"
)

const projectSheet = "project"

var kinds = map[string]reflect.Type{
	takeoff.KindManhole:        reflect.TypeOf(takeoff.Manhole{}),
	takeoff.KindPipe:           reflect.TypeOf(takeoff.Pipe{}),
	takeoff.KindTank:           reflect.TypeOf(takeoff.Tank{}),
	takeoff.KindExternal:       reflect.TypeOf(takeoff.ExternalWorksItem{}),
	takeoff.KindSuperstructure: reflect.TypeOf(takeoff.SuperstructureElement{}),
}

// Workbook is an imported takeoff request. Rows[i] is the cell range the
// i-th component was read from, e.g. "pipes!A3".
type Workbook struct {
	Input takeoff.Input
	Rows  []string
}

// Read parses a workbook. Cells that do not fit their column fail the
// import with the cell reference as the error field.
func Read(r io.Reader) (Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Workbook{}, calcerr.Validation("file", nil, "file is not a readable XLSX workbook")
	}
	defer f.Close()

	var wb Workbook
	for _, sheet := range f.GetSheetList() {
		name := strings.TrimSuffix(validate.Tag(sheet), "s")
		if name == "" {
			continue
		}
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return Workbook{}, calcerr.Wrap(calcerr.CodeInvalidInput, err, "sheet %q cannot be read", sheet)
		}
		if name == projectSheet {
			if wb.Input.Project, err = readProject(sheet, rows); err != nil {
				return Workbook{}, err
			}
			continue
		}
		t, ok := kinds[name]
		if !ok {
			continue
		}
		if err := wb.readComponents(sheet, name, fields(t), rows); err != nil {
			return Workbook{}, err
		}
	}
	if len(wb.Input.Components) == 0 {
		return Workbook{}, calcerr.Validation("file", nil, "workbook contains no components")
	}
	return wb, nil
}

func (wb *Workbook) readComponents(sheet, kind string, types map[string]reflect.Kind, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for j, h := range rows[0] {
		header[j] = validate.Tag(h)
		if _, ok := types[header[j]]; header[j] != "" && !ok {
			return calcerr.Validation(ref(sheet, j, 0), h, fmt.Sprintf("%q is not a %s field", h, kind))
		}
	}
	for i, row := range rows[1:] {
		obj := map[string]any{"type": kind}
		for j, cell := range row {
			cell = strings.TrimSpace(cell)
			if j >= len(header) || header[j] == "" || cell == "" {
				continue
			}
			v, err := parse(types[header[j]], cell)
			if err != nil {
				return calcerr.Validation(ref(sheet, j, i+1), cell, err.Error())
			}
			obj[header[j]] = v
		}
		if len(obj) == 1 {
			continue
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		wb.Input.Components = append(wb.Input.Components, raw)
		wb.Rows = append(wb.Rows, ref(sheet, 0, i+1))
	}
	return nil
}

func readProject(sheet string, rows [][]string) (boq.Project, error) {
	types := fields(reflect.TypeOf(boq.Project{}))
	obj := map[string]any{}
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := validate.Tag(row[0])
		k, ok := types[key]
		if !ok {
			continue
		}
		v, err := parse(k, strings.TrimSpace(row[1]))
		if err != nil {
			return boq.Project{}, calcerr.Validation(ref(sheet, 1, i), row[1], err.Error())
		}
		obj[key] = v
	}
	var p boq.Project
	raw, err := json.Marshal(obj)
	if err != nil {
		return p, err
	}
	return p, json.Unmarshal(raw, &p)
}

// fields maps the JSON names of a struct's fields to their kinds.
func fields(t reflect.Type) map[string]reflect.Kind {
	out := map[string]reflect.Kind{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name != "" && name != "-" {
			out[name] = f.Type.Kind()
		}
	}
	return out
}

func parse(k reflect.Kind, s string) (any, error) {
	switch k {
	case reflect.Float64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.New("value must be a number")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("value must be a finite number")
		}
		return v, nil
	case reflect.Int:
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.New("value must be a whole number")
		}
		return v, nil
	case reflect.Bool:
		switch validate.Tag(s) {
		case "yes", "y", "x":
			return true, nil
		case "no", "n":
			return false, nil
		}
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, errors.New("value must be yes or no")
		}
		return v, nil
	default:
		return s, nil
	}
}

func ref(sheet string, col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col+1, row+1)
	return sheet + "!" + cell
}

// Locate rewrites a "components[i]" error field to the cell range the
// component was read from.
func (wb Workbook) Locate(err error) error {
	ce, ok := err.(*calcerr.Error)
	if !ok {
		return err
	}
	var i int
	if _, scanErr := fmt.Sscanf(ce.Field, "components[%d]", &i); scanErr != nil || i < 0 || i >= len(wb.Rows) {
		return err
	}
	prefix := fmt.Sprintf("components[%d]", i)
	ce.Field = wb.Rows[i] + strings.TrimPrefix(ce.Field, prefix)
	return ce
}
