package handlers

import (
	"net/http"

	"crm-project/backend/auth"
	"crm-project/backend/permissions"

	"github.com/gorilla/mux"
)

type Router struct {
	Tokens       *auth.TokenManager
	Auth         *AuthHandler
	Employees    *EmployeeHandler
	Tasks        *TaskHandler
	Projects     *ProjectHandler
	Associations *AssociationHandler
	Profiles     *ProfileHandler
	Dashboard    *DashboardHandler
	CORSOrigin   string
}

// Handler builds the mux routes. Everything under /api except login, the
// public project view and the charity profile routes requires a bearer
// token. Profile routes use the session cookie instead.
func (rt *Router) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/auth/login", rt.Auth.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/public/projects/{token}", rt.Projects.PublicView).Methods(http.MethodGet)
	r.HandleFunc("/avatars/{name}", rt.Employees.ServeAvatar).Methods(http.MethodGet)
	r.HandleFunc("/p/{token}", rt.Profiles.Open).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", rt.Profiles.View).Methods(http.MethodGet)
	r.HandleFunc("/api/profile-action", rt.Profiles.Act).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(rt.Tokens.Middleware)

	api.HandleFunc("/auth/session", rt.Auth.Session).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", rt.Auth.Logout).Methods(http.MethodPost)

	api.HandleFunc("/employees", rt.Employees.List).Methods(http.MethodGet)
	api.HandleFunc("/employees", requirePermission(permissions.ManageTeam, rt.Employees.Create)).Methods(http.MethodPost)
	api.HandleFunc("/employees/{id}", requirePermission(permissions.ManageTeam, rt.Employees.Update)).Methods(http.MethodPut)
	api.HandleFunc("/employees/{id}", requirePermission(permissions.ManageTeam, rt.Employees.Delete)).Methods(http.MethodDelete)
	api.HandleFunc("/employees/{id}/avatar", rt.Employees.UploadAvatar).Methods(http.MethodPost)

	api.HandleFunc("/tasks", rt.Tasks.GetAllTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/board", rt.Tasks.GetBoard).Methods(http.MethodGet)
	api.HandleFunc("/tasks/calendar", rt.Tasks.GetCalendar).Methods(http.MethodGet)
	api.HandleFunc("/tasks", requirePermission(permissions.CreateTasks, rt.Tasks.CreateTask)).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", rt.Tasks.UpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id}", rt.Tasks.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/status", rt.Tasks.ChangeStatus).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/extension", rt.Tasks.RequestExtension).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/assistance", rt.Tasks.RequestAssistance).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}/reminder", rt.Tasks.Reminder).Methods(http.MethodGet)

	api.HandleFunc("/projects", rt.Projects.List).Methods(http.MethodGet)
	api.HandleFunc("/projects", requirePermission(permissions.ManageProjects, rt.Projects.Create)).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}", requirePermission(permissions.ManageProjects, rt.Projects.Update)).Methods(http.MethodPut)
	api.HandleFunc("/projects/{id}", requirePermission(permissions.ManageProjects, rt.Projects.Delete)).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{id}/share", requirePermission(permissions.ManageProjects, rt.Projects.Share)).Methods(http.MethodPost)

	api.HandleFunc("/associations", rt.Associations.List).Methods(http.MethodGet)
	api.HandleFunc("/associations", rt.Associations.Create).Methods(http.MethodPost)
	api.HandleFunc("/associations/quick-add", rt.Associations.QuickAdd).Methods(http.MethodPost)
	api.HandleFunc("/associations/import", requirePermission(permissions.ExportData, rt.Associations.Import)).Methods(http.MethodPost)
	api.HandleFunc("/associations/export", requirePermission(permissions.ExportData, rt.Associations.Export)).Methods(http.MethodGet)
	api.HandleFunc("/associations/phone-search", rt.Associations.PhoneSearch).Methods(http.MethodPost)
	api.HandleFunc("/associations/move", rt.Associations.Move).Methods(http.MethodPost)
	api.HandleFunc("/associations/delete", rt.Associations.Delete).Methods(http.MethodPost)
	api.HandleFunc("/associations/dedupe", rt.Associations.Dedupe).Methods(http.MethodPost)
	api.HandleFunc("/associations/stats", rt.Associations.Stats).Methods(http.MethodGet)
	api.HandleFunc("/associations/{id}/profile-link", rt.Profiles.IssueLink).Methods(http.MethodPost)
	api.HandleFunc("/associations/{id}/events", rt.Profiles.Events).Methods(http.MethodGet)

	api.HandleFunc("/dashboard", rt.Dashboard.Dashboard).Methods(http.MethodGet)
	api.HandleFunc("/reports", requirePermission(permissions.ViewReports, rt.Dashboard.Reports)).Methods(http.MethodGet)
	api.HandleFunc("/notifications", rt.Dashboard.Notifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read", rt.Dashboard.MarkRead).Methods(http.MethodPut)

	return enableCORS(rt.CORSOrigin, r)
}

func enableCORS(origin string, next http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
