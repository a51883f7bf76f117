package importer

import (
	"encoding/json"
	"net/http"

	"Civcalc/internal/calc/takeoff"
	"Civcalc/internal/calcerr"
	"Civcalc/internal/logging"
)

// maxUpload bounds the multipart form held in memory.
const maxUpload = 10 << 20

type Handler struct {
	Engine *takeoff.Engine
}

// Takeoff imports the uploaded workbook in form field "file" and returns
// its bill of quantities.
func (h *Handler) Takeoff(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		calcerr.Write(w, calcerr.Validation("file", nil, "file required"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		calcerr.Write(w, calcerr.Validation("file", nil, "file required"))
		return
	}
	defer file.Close()

	wb, err := Read(file)
	if err != nil {
		calcerr.Write(w, err)
		return
	}
	res, err := h.Engine.CalculateInput(wb.Input)
	if err != nil {
		err = wb.Locate(err)
		logging.FromContext(r.Context()).Warn("import rejected", "components", len(wb.Rows), "err", err)
		calcerr.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
