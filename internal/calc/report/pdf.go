// Package report renders design results and bills of quantities as PDF
// documents and XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/design"
)

// Meta is the title block printed at the head of every report.
type Meta struct {
	Project string    `json:"project"`
	Author  string    `json:"author"`
	Title   string    `json:"title"`
	Notes   string    `json:"notes"`
	Date    time.Time `json:"date"`
}

var title = cases.Title(language.English)

// document wraps a gofpdf page set up with the title block.
type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newDocument(m Meta, defaultTitle string) *document {
	if m.Title == "" {
		m.Title = defaultTitle
	}
	if m.Date.IsZero() {
		m.Date = time.Now()
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(m.Title, false)
	pdf.SetAuthor(m.Author, false)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, d.tr(m.Title))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, d.tr("Project: "+m.Project))
	pdf.Ln(6)
	pdf.Cell(0, 6, d.tr("Author: "+m.Author))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+m.Date.Format("2006-01-02"))
	pdf.Ln(10)
	if m.Notes != "" {
		pdf.MultiCell(0, 6, d.tr(m.Notes), "", "L", false)
		pdf.Ln(4)
	}
	return d
}

func (d *document) heading(s string) {
	d.pdf.SetFont("Helvetica", "B", 12)
	d.pdf.Cell(0, 8, d.tr(s))
	d.pdf.Ln(9)
}

func (d *document) line(format string, args ...any) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.Cell(0, 5, d.tr(fmt.Sprintf(format, args...)))
	d.pdf.Ln(5)
}

// table draws a header row and body rows. The column at wrap is wrapped
// onto several lines; pass -1 to wrap nothing.
func (d *document) table(widths []float64, header []string, rows [][]string, wrap int) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, d.tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	const lh = 5.0
	for _, row := range rows {
		lines := 1
		if wrap >= 0 {
			lines = len(pdf.SplitLines([]byte(d.tr(row[wrap])), widths[wrap]-2))
		}
		h := lh * float64(lines)
		_, pageH := pdf.GetPageSize()
		_, _, _, bottom := pdf.GetMargins()
		if pdf.GetY()+h > pageH-bottom-12 {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		for i, cell := range row {
			align := "L"
			if i == len(row)-1 {
				align = "R"
			}
			if i == wrap {
				pdf.Rect(x, y, widths[i], h, "D")
				pdf.MultiCell(widths[i], lh, d.tr(cell), "", align, false)
				pdf.SetXY(x+widths[i], y)
			} else {
				pdf.CellFormat(widths[i], h, d.tr(cell), "1", 0, align, false, 0, "")
			}
			x += widths[i]
		}
		pdf.Ln(h)
	}
	pdf.Ln(4)
}

func (d *document) write(w io.Writer) error {
	return d.pdf.Output(w)
}

func mm2(v float64) string { return fmt.Sprintf("%.0f", v) }

// DesignPDF renders a design result.
func DesignPDF(w io.Writer, m Meta, r design.Result) error {
	d := newDocument(m, "Reinforced Concrete Design")
	d.heading(fmt.Sprintf("%s %s to %s", title.String(string(r.Support)), r.Element, r.Code))
	d.line("Section %.0f x %.0f mm, effective depth %.0f mm", r.Width, r.Depth, r.EffectiveDepth)
	d.line("Required steel area %.0f mm2", r.RequiredSteelArea)
	d.pdf.Ln(3)

	if len(r.Sections) > 0 {
		d.heading("Flexure")
		var rows [][]string
		for _, s := range r.Sections {
			kind := "singly"
			if _, ok := s.Flexure.(design.Doubly); ok {
				kind = "doubly"
			}
			bars := ""
			switch {
			case s.Tension != nil:
				bars = s.Tension.Designation
				if s.Compression != nil {
					bars += " / " + s.Compression.Designation
				}
			case s.Mesh != nil:
				bars = s.Mesh.Designation
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d %s", s.Index, s.Location),
				s.Face,
				fmt.Sprintf("%.1f", s.DesignMoment),
				kind,
				mm2(s.RequiredTension),
				mm2(s.RequiredCompression),
				bars,
				mm2(s.ProvidedTension),
			})
		}
		d.table([]float64{24, 16, 22, 16, 22, 22, 42, 22},
			[]string{"Section", "Face", "M (kNm)", "Type", "As req", "As' req", "Bars", "As prov"}, rows, -1)
	}

	if len(r.Shear) > 0 {
		d.heading("Shear")
		var rows [][]string
		for _, s := range r.Shear {
			rows = append(rows, []string{
				fmt.Sprint(s.Index),
				fmt.Sprintf("%.1f", s.Force),
				fmt.Sprintf("%.2f", s.Stress),
				fmt.Sprintf("%.2f", s.Capacity),
				string(s.Provision),
				s.Designation,
			})
		}
		d.table([]float64{20, 25, 25, 25, 35, 50},
			[]string{"Face", "V (kN)", "v (MPa)", "vc (MPa)", "Provision", "Links"}, rows, -1)
	}

	if c := r.Column; c != nil {
		d.heading("Axial design")
		d.line("Slenderness %.1f, required %.0f mm2, provided %.0f mm2", c.Slenderness, c.Required, c.Provided)
		d.line("Reinforcement %s", c.Designation)
		d.pdf.Ln(3)
	}

	if df := r.Deflection; df != nil {
		d.heading("Deflection")
		verdict := "FAIL"
		if df.Pass {
			verdict = "PASS"
		}
		d.line("Span/depth %.1f against allowable %.1f (basic %.0f x %.2f x %.2f): %s",
			df.SpanDepthRatio, df.AllowableRatio, df.BasicRatio,
			df.TensionModification, df.CompressionModification, verdict)
		d.pdf.Ln(3)
	}

	if r.Notes != "" {
		d.heading("Notes")
		d.pdf.SetFont("Helvetica", "", 10)
		d.pdf.MultiCell(0, 5, d.tr(r.Notes), "", "L", false)
	}
	return d.write(w)
}

// BOQPDF renders a bill of quantities, one table per category.
func BOQPDF(w io.Writer, m Meta, resp boq.Response) error {
	if m.Project == "" {
		m.Project = resp.Project.Name
	}
	d := newDocument(m, "Bill of Quantities")
	var conditions []string
	if resp.Project.Rock {
		conditions = append(conditions, fmt.Sprintf("rock from %.2f m", resp.Project.RockStartDepth))
	}
	if resp.Project.Planking {
		conditions = append(conditions, "planking and strutting")
	}
	if len(conditions) > 0 {
		d.line("Site conditions: %s", strings.Join(conditions, ", "))
		d.pdf.Ln(3)
	}

	for _, group := range byCategory(resp.Items) {
		d.heading(title.String(group[0].Category.String()))
		rows := make([][]string, 0, len(group))
		for _, it := range group {
			rows = append(rows, []string{it.Code, it.Description, it.Unit, fmt.Sprintf("%.2f", it.Quantity)})
		}
		d.table([]float64{34, 106, 16, 30}, []string{"Code", "Description", "Unit", "Quantity"}, rows, 1)
	}
	return d.write(w)
}

// byCategory splits category-ordered items into runs of one category.
func byCategory(items []boq.LineItem) [][]boq.LineItem {
	var groups [][]boq.LineItem
	for i, it := range items {
		if i == 0 || it.Category != items[i-1].Category {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], it)
	}
	return groups
}
