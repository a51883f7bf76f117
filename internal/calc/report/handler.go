package report

import (
	"bytes"
	"encoding/json"
	"net/http"

	"Civcalc/internal/calc/boq"
	"Civcalc/internal/calc/design"
	"Civcalc/internal/calc/takeoff"
	"Civcalc/internal/calcerr"
	"Civcalc/internal/logging"
)

type Handler struct {
	Design  *design.Engine
	Takeoff *takeoff.Engine
}

// DesignRequest is a design input with the report title block.
type DesignRequest struct {
	design.Input
	Report Meta `json:"report"`
}

// TakeoffRequest is a takeoff input with the report title block.
type TakeoffRequest struct {
	takeoff.Input
	Report Meta `json:"report"`
}

func (h *Handler) DesignPDF(w http.ResponseWriter, r *http.Request) {
	var input DesignRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		calcerr.Write(w, calcerr.Validation("body", nil, "invalid request payload"))
		return
	}
	res, err := h.Design.CalculateInput(input.Input)
	if err != nil {
		calcerr.Write(w, err)
		return
	}
	var buf bytes.Buffer
	if err := DesignPDF(&buf, input.Report, res); err != nil {
		logging.FromContext(r.Context()).Error("design report", "err", err)
		calcerr.Write(w, err)
		return
	}
	send(w, &buf, "application/pdf", "design.pdf")
}

func (h *Handler) TakeoffPDF(w http.ResponseWriter, r *http.Request) {
	h.takeoff(w, r, "application/pdf", "boq.pdf", func(buf *bytes.Buffer, in TakeoffRequest, resp boq.Response) error {
		return BOQPDF(buf, in.Report, resp)
	})
}

func (h *Handler) TakeoffXLSX(w http.ResponseWriter, r *http.Request) {
	h.takeoff(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "boq.xlsx",
		func(buf *bytes.Buffer, _ TakeoffRequest, resp boq.Response) error {
			return WriteBOQ(buf, resp)
		})
}

func (h *Handler) takeoff(w http.ResponseWriter, r *http.Request, contentType, name string,
	render func(*bytes.Buffer, TakeoffRequest, boq.Response) error) {
	var input TakeoffRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		calcerr.Write(w, calcerr.Validation("body", nil, "invalid request payload"))
		return
	}
	resp, err := h.Takeoff.CalculateInput(input.Input)
	if err != nil {
		calcerr.Write(w, err)
		return
	}
	var buf bytes.Buffer
	if err := render(&buf, input, resp); err != nil {
		logging.FromContext(r.Context()).Error("takeoff report", "format", name, "err", err)
		calcerr.Write(w, err)
		return
	}
	send(w, &buf, contentType, name)
}

// send writes a rendered document as an attachment.
func send(w http.ResponseWriter, buf *bytes.Buffer, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	buf.WriteTo(w)
}
