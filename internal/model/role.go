package model

import (
	"fmt"
	"strings"
)

// Role is the caller-declared organizational role of an actor.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleTeamLead Role = "Team Lead"
	RoleAM       Role = "AM"
	RoleManager  Role = "Manager"
	RoleHRHead   Role = "HR Head"

	// RoleSystem labels machine-authored audit events. It can never act.
	RoleSystem Role = "System"
)

// ActingRoles lists every role allowed to perform workflow actions, in escalation order.
var ActingRoles = []Role{RoleEmployee, RoleTeamLead, RoleAM, RoleManager, RoleHRHead}

// ParseRole resolves a role label. "Supervisor" is accepted as an alias for Team Lead.
func ParseRole(s string) (Role, error) {
	trimmed := strings.TrimSpace(s)
	if strings.EqualFold(trimmed, "supervisor") {
		return RoleTeamLead, nil
	}
	for _, r := range ActingRoles {
		if strings.EqualFold(trimmed, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) IsActing() bool {
	for _, acting := range ActingRoles {
		if r == acting {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Actor identifies who is performing an action. Name is matched against the
// session's supervisor or employee for participant-bound actions.
type Actor struct {
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}
