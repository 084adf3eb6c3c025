package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"crm-project/backend/logging"
	"crm-project/backend/permissions"
	"crm-project/backend/services"
	"crm-project/backend/storage"

	"github.com/gorilla/mux"
)

const maxAvatarSize = 5 << 20

// AvatarReader serves stored avatars by name.
type AvatarReader interface {
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
}

type EmployeeHandler struct {
	employees *services.EmployeeService
	avatars   AvatarReader
}

func NewEmployeeHandler(employees *services.EmployeeService, avatars AvatarReader) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, avatars: avatars}
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.ListEmployees(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.EmployeeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	e, err := h.employees.CreateEmployee(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.EmployeeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	e, err := h.employees.UpdateEmployee(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.employees.DeleteEmployee(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadAvatar takes a multipart form with an "avatar" file. Employees may
// replace their own avatar; others need ManageTeam.
func (h *EmployeeHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, self := caller(r); self != id && !can(r, permissions.ManageTeam) {
		forbidden(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		http.Error(w, "avatar file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	e, err := h.employees.UpdateAvatar(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EmployeeHandler) ServeAvatar(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	rc, contentType, err := h.avatars.Open(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		logging.Logger.Warnf("Event ID: AVATAR_STREAM_FAILED, Description: Avatar %s: %v", name, err)
	}
}
