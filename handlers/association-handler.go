package handlers

import (
	"io"
	"net/http"
	"strings"

	"crm-project/backend/logging"
	"crm-project/backend/models"
	"crm-project/backend/services"
	"crm-project/backend/triage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxImportSize = 10 << 20

type AssociationHandler struct {
	service *services.AssociationService
}

func NewAssociationHandler(service *services.AssociationService) *AssociationHandler {
	return &AssociationHandler{service: service}
}

func filterFrom(r *http.Request) triage.Filter {
	q := r.URL.Query()
	return triage.Filter{
		Status:      models.AssociationStatus(q.Get("status")),
		Stage:       models.ProfileAction(q.Get("stage")),
		Region:      q.Get("region"),
		SubCategory: q.Get("category"),
		Search:      q.Get("search"),
	}
}

func (h *AssociationHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context(), filterFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *AssociationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var a models.Association
	if !decodeJSON(w, r, &a) {
		return
	}
	a.ID = primitive.NilObjectID
	created, err := h.service.Create(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *AssociationHandler) QuickAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text         string                   `json:"text"`
		Status       models.AssociationStatus `json:"status"`
		ResponseRate *int                     `json:"responseRate"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.service.QuickAdd(r.Context(), req.Text, req.Status, req.ResponseRate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Import accepts either a multipart "file" field or a raw CSV body.
func (h *AssociationHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		src = file
	}
	res, err := h.service.Import(r.Context(), src)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *AssociationHandler) Export(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context(), filterFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="associations.csv"`)
	if err := triage.ExportCSV(w, records); err != nil {
		logging.Logger.Errorf("Event ID: EXPORT_FAILED, Description: Association export failed: %v", err)
	}
}

func (h *AssociationHandler) PhoneSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	found, err := h.service.SearchPhones(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *AssociationHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs          []primitive.ObjectID     `json:"ids"`
		Status       models.AssociationStatus `json:"status"`
		ResponseRate *int                     `json:"responseRate"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.service.Move(r.Context(), req.IDs, req.Status, req.ResponseRate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"moved": n})
}

func (h *AssociationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var c triage.DeleteCriteria
	if !decodeJSON(w, r, &c) {
		return
	}
	n, err := h.service.Delete(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *AssociationHandler) Dedupe(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.RemoveDuplicates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *AssociationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
