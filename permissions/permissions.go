package permissions

import (
	"fmt"
	"strings"
)

// Role is an employee's role. The set is closed.
type Role int

const (
	Member Role = iota
	Supervisor
	Admin
	roleCount
)

var roleNames = [roleCount]string{
	Member:     "member",
	Supervisor: "supervisor",
	Admin:      "admin",
}

func (r Role) String() string {
	if r < 0 || r >= roleCount {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

func (r Role) Valid() bool { return r >= 0 && r < roleCount }

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(roleNames[r]), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole accepts the role name in any case.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range roleNames {
		if name == s {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Action is a protected operation.
type Action int

const (
	ManageProjects Action = iota
	ManageTeam
	ViewReports
	AssignTasks
	DeleteAnyTask
	EditAnyTask
	CreateTasks
	ManageSettings
	ExportData
	actionCount
)

var actionNames = [actionCount]string{
	ManageProjects: "manageProjects",
	ManageTeam:     "manageTeam",
	ViewReports:    "viewReports",
	AssignTasks:    "assignTasks",
	DeleteAnyTask:  "deleteAnyTask",
	EditAnyTask:    "editAnyTask",
	CreateTasks:    "createTasks",
	ManageSettings: "manageSettings",
	ExportData:     "exportData",
}

func (a Action) String() string {
	if a < 0 || a >= actionCount {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

func (a Action) MarshalText() ([]byte, error) {
	if a < 0 || a >= actionCount {
		return nil, fmt.Errorf("invalid action %d", int(a))
	}
	return []byte(actionNames[a]), nil
}

// table[role][action]. Admin rows are never consulted.
var table = [roleCount][actionCount]bool{
	Supervisor: {
		ManageProjects: true,
		ViewReports:    true,
		AssignTasks:    true,
		EditAnyTask:    true,
		CreateTasks:    true,
		ExportData:     true,
	},
	Member: {
		CreateTasks: true,
	},
}

// Allowed reports whether role may perform action. Admin may do anything;
// an unknown role may do nothing.
func Allowed(role Role, action Action) bool {
	if role == Admin {
		return true
	}
	if !role.Valid() || action < 0 || action >= actionCount {
		return false
	}
	return table[role][action]
}

// Actions lists what role may do, in declaration order.
func Actions(role Role) []Action {
	var out []Action
	for a := Action(0); a < actionCount; a++ {
		if Allowed(role, a) {
			out = append(out, a)
		}
	}
	return out
}
