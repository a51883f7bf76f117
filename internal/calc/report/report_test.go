package report

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"Civcalc/internal/calc/arrange"
	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/design"
	"Civcalc/internal/calc/material"
	"Civcalc/internal/calc/takeoff"
)

func sampleBOQ() boq.Response {
	return boq.Response{
		Project: boq.Project{Name: "Estate drainage", Rock: true, RockStartDepth: 1.5},
		Items: []boq.LineItem{
			{Code: "E10", Category: boq.Earthworks, Description: "Excavate pit in soil for manholes and tanks", Unit: "m3", Quantity: 10.75,
				Dimensions: []boq.Dimension{boq.Dim("MH1", "manhole", "pit", 1, 2.5, 2.0, 2.15)}},
			{Code: "C10.CONCRETE", Category: boq.Concrete, Description: "Plain concrete (1:2:4) in manhole bed", Unit: "m3", Quantity: 0.399,
				Dimensions: []boq.Dimension{boq.Dim("MH1", "manhole", "bed", 1, 1.9, 1.4, 0.15)}},
			{Code: "X30.150.UPVC", Category: boq.Fittings, Description: "150 mm uPVC pipe laid in trench", Unit: "m", Quantity: 20,
				Dimensions: []boq.Dimension{boq.Dim("P1", "pipe", "laying", 1, 20)}},
		},
	}
}

func TestBOQWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBOQ(&buf, sampleBOQ()); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != boqSheet || got[1] != dimensionsSheet {
		t.Fatalf("sheets = %v", got)
	}
	rows, err := f.GetRows(boqSheet)
	if err != nil {
		t.Fatal(err)
	}
	var headings, codes []string
	body := false
	for _, row := range rows {
		switch {
		case len(row) == 0:
		case row[0] == "Code":
			body = true
		case !body:
		case len(row) == 1:
			headings = append(headings, row[0])
		default:
			codes = append(codes, row[0])
		}
	}
	if strings.Join(headings, ",") != "Earthworks,Concrete,Fittings" {
		t.Errorf("headings = %v", headings)
	}
	if strings.Join(codes, ",") != "E10,C10.CONCRETE,X30.150.UPVC" {
		t.Errorf("codes = %v", codes)
	}

	dims, err := f.GetRows(dimensionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(dims) != 4 {
		t.Fatalf("dimension rows = %d, want header + 3", len(dims))
	}
	if dims[1][5] != "2.5 x 2 x 2.15" {
		t.Errorf("dimensions = %q", dims[1][5])
	}
}

func TestBOQPDF(t *testing.T) {
	var buf bytes.Buffer
	m := Meta{Author: "QS", Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	if err := BOQPDF(&buf, m, sampleBOQ()); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}

func TestByCategory(t *testing.T) {
	groups := byCategory(sampleBOQ().Items)
	if len(groups) != 3 || groups[2][0].Code != "X30.150.UPVC" {
		t.Errorf("groups = %+v", groups)
	}
	if byCategory(nil) != nil {
		t.Error("empty bill produced groups")
	}
}

func newHandler(t *testing.T) *Handler {
	t.Helper()
	tbl, err := material.Default()
	if err != nil {
		t.Fatal(err)
	}
	return &Handler{
		Design:  design.NewEngine(tbl, arrange.New(tbl, arrange.DefaultConfig())),
		Takeoff: takeoff.NewEngine(tbl, boq.DefaultCatalogue()),
	}
}

func TestHandler(t *testing.T) {
	h := newHandler(t)
	beam := `{"report":{"project":"House","author":"Eng"},
		"analysis":{"moments_knm":[0,112.5,0],"shears_kn":[75,-75],"spans":[{"length_m":6}]},
		"parameters":{"element":"beam","support":"simple","width_mm":300,"depth_mm":500,
			"concrete_grade":"C30","steel_grade":"460","cover_mm":35}}`
	manhole := `{"project":{"name":"P"},"components":[{"type":"manhole","id":"MH1",
		"length_m":1.5,"width_m":1,"invert_level":-2,"ground_level":0,"benching":true}]}`

	tests := []struct {
		name        string
		handle      http.HandlerFunc
		body        string
		status      int
		contentType string
	}{
		{"design pdf", h.DesignPDF, beam, http.StatusOK, "application/pdf"},
		{"boq pdf", h.TakeoffPDF, manhole, http.StatusOK, "application/pdf"},
		{"boq xlsx", h.TakeoffXLSX, manhole, http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"bad design", h.DesignPDF, `{"parameters":{"element":"beam"}}`, http.StatusBadRequest, "application/json"},
		{"malformed", h.TakeoffXLSX, `[`, http.StatusBadRequest, "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handle(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
		})
	}
}
