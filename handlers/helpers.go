package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"crm-project/backend/auth"
	"crm-project/backend/lifecycle"
	"crm-project/backend/logging"
	"crm-project/backend/permissions"
	"crm-project/backend/services"
	"crm-project/backend/triage"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: %v", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps service errors to status codes. Anything unrecognised is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrInvalidCredentials):
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, services.ErrSessionExpired):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, services.ErrRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, services.ErrDuplicate), errors.Is(err, services.ErrEscalationBlocked):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrPasswordRequired),
		errors.Is(err, lifecycle.ErrInvalidStatus),
		errors.Is(err, lifecycle.ErrMalformedMonth),
		errors.Is(err, triage.ErrInvalidStatus),
		errors.Is(err, triage.ErrResponseRateRequired),
		errors.Is(err, triage.ErrRateOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID format", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return id, true
}

// caller returns the claims put on the context by the auth middleware and
// the employee id they carry.
func caller(r *http.Request) (*auth.Claims, primitive.ObjectID) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		return &auth.Claims{Role: -1}, primitive.NilObjectID
	}
	id, _ := primitive.ObjectIDFromHex(claims.EmployeeID)
	return claims, id
}

// can reports whether the caller's role grants action.
func can(r *http.Request, action permissions.Action) bool {
	claims, _ := caller(r)
	return permissions.Allowed(claims.Role, action)
}

// requirePermission answers 403 unless the caller's role grants action.
func requirePermission(action permissions.Action, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !can(r, action) {
			claims, _ := caller(r)
			logging.Logger.Warnf("Event ID: ACCESS_DENIED, Description: %s (%s) lacks %s for %s %s", claims.Username, claims.Role, action, r.Method, r.URL.Path)
			http.Error(w, "Access forbidden: insufficient permissions", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func forbidden(w http.ResponseWriter) {
	http.Error(w, "Access forbidden: insufficient permissions", http.StatusForbidden)
}
