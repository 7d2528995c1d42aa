package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/hospital-leads/internal/dashboard"
	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/importer"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

// maxImportBytes caps a CSV upload.
const maxImportBytes = 10 << 20

// DashboardHandler exposes the view session: the projection, the
// optimistic edit controls, import/export and the notification log.
type DashboardHandler struct {
	Session  *dashboard.Session
	Operator string
}

func NewDashboardHandler(session *dashboard.Session, operator string) *DashboardHandler {
	return &DashboardHandler{Session: session, Operator: operator}
}

// Routes mounts under /dashboard. write wraps the mutating routes.
func (h *DashboardHandler) Routes(write func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/hospitals", h.List)
	r.Get("/export", h.Export)
	r.Get("/notifications", h.Notifications)

	r.Group(func(r chi.Router) {
		if write != nil {
			r.Use(write)
		}
		r.Post("/hospitals", h.Add)
		r.Post("/reload", h.Reload)
		r.Post("/hospitals/bulk-status", h.BulkStatus)
		r.Post("/hospitals/{id}/status", h.SetStatus)
		r.Post("/hospitals/{id}/rating", h.SetRating)
		r.Post("/hospitals/{id}/cold-email", h.SetColdEmailed)
		r.Post("/import", h.Import)
	})
	return r
}

func criteriaFromQuery(r *http.Request) dashboard.Criteria {
	q := r.URL.Query()
	return dashboard.Criteria{
		Search: q.Get("q"),
		City:   q.Get("city"),
		Status: q.Get("status"),
		Sort:   dashboard.SortKey(q.Get("sort")),
		Desc:   strings.EqualFold(q.Get("dir"), "desc"),
	}
}

// List (GET /dashboard/hospitals?q=&city=&status=&sort=&dir=)
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dataResponse{Data: h.Session.View(criteriaFromQuery(r))})
}

func (h *DashboardHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input entity.NewHospital
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	row, err := h.Session.Add(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: row})
}

func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Reload(r.Context()); err != nil {
		writeUseCaseError(w, err)
		return
	}
	cache := h.Session.Cache()
	writeJSON(w, http.StatusOK, dataResponse{Data: map[string]any{
		"rows":      cache.Len(),
		"loaded_at": cache.LoadedAt().UTC().Format(time.RFC3339),
	}})
}

type mutationResponse struct {
	MutationID string            `json:"mutation_id"`
	State      string            `json:"state"`
	Rows       []entity.Hospital `json:"rows"`
}

func (h *DashboardHandler) writeMutation(w http.ResponseWriter, m *dashboard.Mutation, err error) {
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	resp := mutationResponse{MutationID: m.ID, State: string(m.State)}
	for _, id := range m.IDs {
		if row, ok := h.Session.Cache().Get(id); ok {
			resp.Rows = append(resp.Rows, row)
		}
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: resp})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (h *DashboardHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	status, err := entity.ParseStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.Session.Coordinator().SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	h.writeMutation(w, m, err)
}

func (h *DashboardHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs    []string `json:"ids"`
		Status string   `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	status, err := entity.ParseStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.Session.Coordinator().BulkSetStatus(r.Context(), body.IDs, status)
	h.writeMutation(w, m, err)
}

func (h *DashboardHandler) SetRating(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating *int `json:"rating"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Rating == nil {
		writeError(w, http.StatusBadRequest, "rating is required")
		return
	}
	m, err := h.Session.Coordinator().SetRating(r.Context(), chi.URLParam(r, "id"), *body.Rating)
	h.writeMutation(w, m, err)
}

func (h *DashboardHandler) SetColdEmailed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value *bool  `json:"value"`
		Note  string `json:"note"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	m, err := h.Session.Coordinator().SetColdEmailed(r.Context(), chi.URLParam(r, "id"), *body.Value, h.Operator, body.Note)
	h.writeMutation(w, m, err)
}

// Import (POST /dashboard/import) takes the CSV file as the request body.
func (h *DashboardHandler) Import(w http.ResponseWriter, r *http.Request) {
	records, err := importer.ReadCSV(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(records) == 0 {
		writeUseCaseError(w, usecase.ValidationError{Message: "CSV has no data rows"})
		return
	}
	res := h.Session.Import(r.Context(), records)
	writeJSON(w, http.StatusOK, dataResponse{Data: res})
}

// Export (GET /dashboard/export) writes the current projection as CSV.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	rows, withColdEmailed := h.Session.ExportRows(criteriaFromQuery(r))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="hospitals-%s.csv"`, time.Now().UTC().Format("20060102")))
	w.WriteHeader(http.StatusOK)
	// The status line is already sent; a write error only truncates the body.
	_ = importer.WriteCSV(w, rows, withColdEmailed)
}

func (h *DashboardHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dataResponse{Data: h.Session.Notifications()})
}
