package takeoff

import (
	"encoding/json"
	"net/http"

	"Civcalc/internal/calcerr"
	"Civcalc/internal/logging"
)

type Handler struct {
	Engine *Engine
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		calcerr.Write(w, calcerr.Validation("body", nil, "invalid request payload"))
		return
	}
	res, err := h.Engine.CalculateInput(input)
	if err != nil {
		logging.FromContext(r.Context()).Warn("takeoff rejected", "components", len(input.Components), "err", err)
		calcerr.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
