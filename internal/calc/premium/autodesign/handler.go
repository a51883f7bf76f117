package autodesign

import (
	"encoding/json"
	"net/http"

	"Civcalc/internal/calc/design"
	"Civcalc/internal/calcerr"
)

type Handler struct {
	Engine *design.Engine
}

func (h *Handler) Size(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		calcerr.Write(w, calcerr.Validation("body", nil, "invalid request payload"))
		return
	}
	res, err := Size(h.Engine, input)
	if err != nil {
		calcerr.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
