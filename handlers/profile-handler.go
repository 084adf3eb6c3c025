package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"crm-project/backend/logging"
	"crm-project/backend/models"
	"crm-project/backend/services"

	"github.com/gorilla/mux"
)

const (
	profileCookie = "pcx"
	profilePage   = "/profile"
)

// Replies shown on the charity's profile page.
const (
	msgProfileDone      = "تم تسجيل الإجراء بنجاح. شكرًا لك."
	msgProfileIgnored   = "تم"
	msgProfileNoContext = "تعذر تحديد السياق. افتح رابط واتساب الأخير ثم حاول."
	msgProfileExpired   = "انتهت صلاحية الجلسة. افتح رابط واتساب الأخير ثم حاول."
	msgProfileTooMany   = "طلبات كثيرة. حاول لاحقًا."
	msgProfileFailed    = "تعذر التنفيذ حاليًا."
)

type ProfileHandler struct {
	service *services.ProfileService
	baseURL string
	origin  string
}

// NewProfileHandler serves links under baseURL. When origin is set, profile
// actions are only accepted from that Origin header.
func NewProfileHandler(service *services.ProfileService, baseURL, origin string) *ProfileHandler {
	return &ProfileHandler{service: service, baseURL: strings.TrimRight(baseURL, "/"), origin: origin}
}

type profileReply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func (h *ProfileHandler) IssueLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	grant, err := h.service.IssueLink(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":     grant.Token,
		"url":       h.baseURL + "/p/" + grant.Token,
		"expiresAt": grant.ExpiresAt,
	})
}

func (h *ProfileHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	events, err := h.service.Events(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Open spends the link token, sets the session cookie and sends the charity
// to its profile page. A bad token still lands on the page, without a
// session.
func (h *ProfileHandler) Open(w http.ResponseWriter, r *http.Request) {
	grant, err := h.service.OpenLink(r.Context(), mux.Vars(r)["token"])
	switch {
	case errors.Is(err, services.ErrNotFound):
	case err != nil:
		logging.Logger.Errorf("Event ID: PROFILE_LINK_FAILED, Description: %v", err)
	default:
		http.SetCookie(w, &http.Cookie{
			Name:     profileCookie,
			Value:    grant.Token,
			Path:     "/",
			Expires:  grant.ExpiresAt,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, profilePage, http.StatusFound)
}

func sessionCookie(r *http.Request) string {
	c, err := r.Cookie(profileCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Profile(r.Context(), sessionCookie(r))
	if errors.Is(err, services.ErrSessionExpired) {
		writeJSON(w, http.StatusUnauthorized, profileReply{Message: msgProfileExpired})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// clientIP is the first X-Forwarded-For entry, 0.0.0.0 when absent.
func clientIP(r *http.Request) string {
	first := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0])
	if first == "" {
		return "0.0.0.0"
	}
	return first
}

func (h *ProfileHandler) Act(w http.ResponseWriter, r *http.Request) {
	if h.origin != "" && r.Header.Get("Origin") != h.origin {
		writeJSON(w, http.StatusForbidden, profileReply{Message: "Forbidden"})
		return
	}
	var body struct {
		Action   models.ProfileAction `json:"action"`
		Honeypot string               `json:"hp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, profileReply{Message: "Invalid JSON"})
		return
	}
	if body.Honeypot != "" {
		writeJSON(w, http.StatusOK, profileReply{OK: true, Message: msgProfileIgnored})
		return
	}
	if !body.Action.Valid() {
		writeJSON(w, http.StatusBadRequest, profileReply{Message: "Invalid action"})
		return
	}
	session := sessionCookie(r)
	if session == "" {
		writeJSON(w, http.StatusUnauthorized, profileReply{Message: msgProfileNoContext})
		return
	}

	_, err := h.service.Act(r.Context(), services.ProfileActionRequest{
		SessionID: session,
		Action:    body.Action,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, profileReply{OK: true, Message: msgProfileDone})
	case errors.Is(err, services.ErrSessionExpired):
		writeJSON(w, http.StatusUnauthorized, profileReply{Message: msgProfileExpired})
	case errors.Is(err, services.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, profileReply{Message: msgProfileTooMany})
	default:
		logging.Logger.Errorf("Event ID: PROFILE_ACTION_FAILED, Description: %v", err)
		writeJSON(w, http.StatusInternalServerError, profileReply{Message: msgProfileFailed})
	}
}
