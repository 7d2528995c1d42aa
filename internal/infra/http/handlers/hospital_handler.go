package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/xavierca1/hospital-leads/internal/usecase"
)

type HospitalHandler struct {
	UpdateUC *usecase.UpdateHospitalUseCase
}

func NewHospitalHandler(uc *usecase.UpdateHospitalUseCase) *HospitalHandler {
	return &HospitalHandler{UpdateUC: uc}
}

// Get (GET /hospitals) is a liveness probe for the route; it never touches the store.
func (h *HospitalHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "route": "hospitals"})
}

// Patch (PATCH /hospitals) applies {id, updates} directly to the store.
func (h *HospitalHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var input usecase.UpdateHospitalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	row, err := h.UpdateUC.Execute(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: row})
}
