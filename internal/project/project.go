// Package project serves a user's projects and the calculations saved
// under them.
package project

import (
	"bytes"
	"encoding/json"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"Civcalc/internal/auth"
	"Civcalc/internal/calc/validate"
	"Civcalc/internal/calcerr"
	"Civcalc/internal/logging"
	"Civcalc/internal/repo"
)

// SaveParam names the query parameter holding the project a calculation
// is saved under.
const SaveParam = "save"

const maxBody = 1 << 20

type Handler struct {
	Repo repo.Projects
}

type CreateRequest struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

func user(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		calcerr.Write(w, calcerr.New(calcerr.CodeUnauthorized, "login required"))
	}
	return id, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		calcerr.Write(w, calcerr.Validation("id", raw, "id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		calcerr.Write(w, calcerr.Validation("body", nil, "invalid request payload"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	c := validate.New()
	c.Check(req.Name != "", "name", req.Name, "project name required")
	c.Check(len(req.Name) <= 200, "name", req.Name, "project name must be at most 200 characters")
	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		if t = validate.Tag(t); t != "" {
			tags = append(tags, t)
		}
	}
	if err := c.Err(); err != nil {
		calcerr.Write(w, err)
		return
	}
	p, err := h.Repo.CreateProject(r.Context(), userID, req.Name, tags)
	if err != nil {
		logging.FromContext(r.Context()).Error("creating project", "user", userID, "err", err)
		calcerr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	ps, err := h.Repo.ListProjects(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("listing projects", "user", userID, "err", err)
		calcerr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) Calculations(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cs, err := h.Repo.ListCalculations(r.Context(), userID, id)
	if err != nil {
		calcerr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) Calculation(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.Repo.GetCalculation(r.Context(), userID, id)
	if err != nil {
		calcerr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// capture buffers a response so it can be inspected before it is sent.
type capture struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (c *capture) Header() http.Header { return c.header }

func (c *capture) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
}

func (c *capture) Write(b []byte) (int, error) {
	c.WriteHeader(http.StatusOK)
	return c.body.Write(b)
}

// Saving wraps an engine handler. When the request names a project in the
// save parameter, a successful result is stored as a calculation of the
// given kind and its id is returned in the Location header.
func (h *Handler) Saving(kind string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get(SaveParam)
		if raw == "" {
			next(w, r)
			return
		}
		userID, ok := user(w, r)
		if !ok {
			return
		}
		projectID, err := uuid.Parse(raw)
		if err != nil {
			calcerr.Write(w, calcerr.Validation(SaveParam, raw, "save must be a project UUID"))
			return
		}
		input, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			calcerr.Write(w, calcerr.Validation("body", nil, "request body too large"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(input))

		rec := &capture{header: http.Header{}}
		next(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		if rec.status == http.StatusOK {
			c, err := h.Repo.SaveCalculation(r.Context(), userID, repo.Calculation{
				ProjectID: projectID,
				Kind:      kind,
				Input:     input,
				Result:    rec.body.Bytes(),
			})
			if err != nil {
				if !calcerr.Is(err, calcerr.CodeNotFound) {
					logging.FromContext(r.Context()).Error("saving calculation", "project", projectID, "err", err)
				}
				calcerr.Write(w, err)
				return
			}
			rec.header.Set("Location", "/api/user/calculations/"+c.ID.String())
		}
		maps.Copy(w.Header(), rec.header)
		w.WriteHeader(rec.status)
		rec.body.WriteTo(w)
	}
}
