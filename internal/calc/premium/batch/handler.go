package batch

import (
	"encoding/json"
	"net/http"

	"Civcalc/internal/calc/design"
	"Civcalc/internal/calcerr"
	"Civcalc/internal/logging"
)

type Handler struct {
	Engine *design.Engine
}

func (h *Handler) Design(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		calcerr.Write(w, calcerr.Validation("body", nil, "invalid request payload"))
		return
	}
	res, err := Calculate(h.Engine, input)
	if err != nil {
		logging.FromContext(r.Context()).Warn("batch rejected", "items", len(input.Items), "err", err)
		calcerr.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
