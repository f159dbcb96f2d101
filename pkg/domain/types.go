package domain

import "time"

type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleSupervisor    Role = "supervisor"
	RoleOfficer       Role = "officer"
)

// Satisfies reports whether a session holding this role passes a gate
// requiring the given role. Administrators pass every gate.
func (r Role) Satisfies(required Role) bool {
	return r == required || r == RoleAdministrator
}

// User is a static directory entry. Users are provisioned at startup,
// never created or deleted at runtime.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	Name         string `json:"name"`
}

// Session is server-held authenticated-identity state. The client only
// ever sees an opaque signed token referencing it.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	LoginTime time.Time `json:"loginTime"`
}

type Classification string

const (
	Released     Classification = "released"
	PendingCourt Classification = "pending_court"
	InCustody    Classification = "in_custody"
)
