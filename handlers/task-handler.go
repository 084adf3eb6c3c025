package handlers

import (
	"net/http"

	"crm-project/backend/lifecycle"
	"crm-project/backend/models"
	"crm-project/backend/permissions"
	"crm-project/backend/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// scope returns nil when the caller may see every task, otherwise the
// caller's own id. ?mine=true narrows any caller to their own tasks.
func scope(r *http.Request) *primitive.ObjectID {
	_, self := caller(r)
	if can(r, permissions.EditAnyTask) && r.URL.Query().Get("mine") != "true" {
		return nil
	}
	return &self
}

func (h *TaskHandler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListTasks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if only := scope(r); only != nil {
		mine := []models.Task{}
		for _, t := range tasks {
			if t.AssignedTo(*only) {
				mine = append(mine, t)
			}
		}
		tasks = mine
	}
	if month := r.URL.Query().Get("month"); month != "" {
		m, err := lifecycle.ParseMonth(month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		tasks = lifecycle.DueInMonth(tasks, m)
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.service.Calendar(r.Context(), r.URL.Query().Get("month"), scope(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (h *TaskHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Board(r.Context(), scope(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in services.TaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if _, self := caller(r); in.EmployeeID != nil && *in.EmployeeID != self && !can(r, permissions.AssignTasks) {
		forbidden(w)
		return
	}
	task, err := h.service.CreateTask(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// owned loads the task and checks the caller is its assignee or holds the
// override action.
func (h *TaskHandler) owned(w http.ResponseWriter, r *http.Request, override permissions.Action) (models.Task, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return models.Task{}, false
	}
	task, err := h.service.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return models.Task{}, false
	}
	if _, self := caller(r); !task.AssignedTo(self) && !can(r, override) {
		forbidden(w)
		return models.Task{}, false
	}
	return task, true
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.owned(w, r, permissions.EditAnyTask)
	if !ok {
		return
	}
	var in services.TaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if reassigned(task.EmployeeID, in.EmployeeID) && !can(r, permissions.AssignTasks) {
		forbidden(w)
		return
	}
	updated, err := h.service.UpdateTask(r.Context(), task.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func reassigned(from, to *primitive.ObjectID) bool {
	if from == nil || to == nil {
		return from != to
	}
	return *from != *to
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.owned(w, r, permissions.DeleteAnyTask)
	if !ok {
		return
	}
	if err := h.service.DeleteTask(r.Context(), task.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := h.owned(w, r, permissions.EditAnyTask)
	if !ok {
		return
	}
	var req struct {
		Status models.TaskStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.service.ChangeStatus(r.Context(), task.ID, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) RequestExtension(w http.ResponseWriter, r *http.Request) {
	task, ok := h.owned(w, r, permissions.EditAnyTask)
	if !ok {
		return
	}
	updated, err := h.service.RequestExtension(r.Context(), task.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) RequestAssistance(w http.ResponseWriter, r *http.Request) {
	task, ok := h.owned(w, r, permissions.EditAnyTask)
	if !ok {
		return
	}
	updated, err := h.service.RequestAssistance(r.Context(), task.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) Reminder(w http.ResponseWriter, r *http.Request) {
	task, ok := h.owned(w, r, permissions.EditAnyTask)
	if !ok {
		return
	}
	msg, err := h.service.Reminder(r.Context(), task.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
