package handler

import (
	"encoding/json"
	"net/http"

	"dashboard-kiosk/internal/middleware"
	"dashboard-kiosk/internal/model"
	"dashboard-kiosk/internal/service"
	"dashboard-kiosk/pkg/apierror"
)

type DashboardHandler struct {
	service *service.DashboardService
}

func NewDashboardHandler(service *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	dashboards, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, model.DashboardList{Dashboards: dashboards})
}

func (h *DashboardHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	dashboards, err := h.service.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, model.DashboardList{Dashboards: dashboards})
}

// ListMine serves the caller's rotation, branching on role and group.
func (h *DashboardHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "Authentication required", "", http.StatusUnauthorized))
		return
	}

	dashboards, err := h.service.ListForIdentity(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.DashboardList{Dashboards: dashboards})
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	dashboard, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, dashboard)
}

func (h *DashboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.CreateDashboardRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	dashboard, err := h.service.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, dashboard)
}

func (h *DashboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var payload model.UpdateDashboardRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	dashboard, err := h.service.Update(r.Context(), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, dashboard)
}

func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *DashboardHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var payload model.ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	dashboard, err := h.service.Reorder(r.Context(), id, payload.NewSortOrder)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, dashboard)
}
