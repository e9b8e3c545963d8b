package domain

import "time"

// Role gates which operations a user may perform.
type Role string

const (
	RoleTechnician Role = "Teknisi"
	RoleAdmin      Role = "Admin"
	RoleSysAdmin   Role = "SysAdmin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleTechnician, RoleAdmin, RoleSysAdmin:
		return true
	}
	return false
}

// User is a staff account of the repair shop.
type User struct {
	ID           string
	Username     string
	FullName     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated caller of a core operation.
type Actor struct {
	ID   string
	Role Role
}

// ActorOf returns the actor view of a user.
func ActorOf(u *User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}
