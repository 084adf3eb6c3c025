package handlers

import (
	"net/http"
	"time"

	"crm-project/backend/permissions"
	"crm-project/backend/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DashboardHandler struct {
	dashboard     *services.DashboardService
	notifications *services.NotificationService
}

func NewDashboardHandler(dashboard *services.DashboardService, notifications *services.NotificationService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, notifications: notifications}
}

// Dashboard shows the whole team to roles that see reports and only the
// caller's own tasks to everyone else.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var only *primitive.ObjectID
	if !can(r, permissions.ViewReports) {
		_, self := caller(r)
		only = &self
	}
	d, err := h.dashboard.Dashboard(r.Context(), only)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DashboardHandler) Reports(w http.ResponseWriter, r *http.Request) {
	report, err := h.dashboard.Report(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *DashboardHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	claims, _ := caller(r)
	rows, err := h.notifications.ForUser(claims.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *DashboardHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"createdAt"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	claims, _ := caller(r)
	if err := h.notifications.MarkRead(claims.Username, req.ID, req.CreatedAt); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
