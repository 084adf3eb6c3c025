package handlers

import (
	"net/http"

	"crm-project/backend/services"
)

type AuthHandler struct {
	employees *services.EmployeeService
}

func NewAuthHandler(employees *services.EmployeeService) *AuthHandler {
	return &AuthHandler{employees: employees}
}

// Login accepts a username or an email as identifier.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.employees.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, _ := caller(r)
	session, err := h.employees.Session(r.Context(), claims)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := caller(r)
	h.employees.Logout(claims)
	w.WriteHeader(http.StatusNoContent)
}
