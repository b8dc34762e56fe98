package models

// Role is the club role of a user
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePilot      Role = "pilot"
	RoleInstructor Role = "instructor"
)

// Canonical maps the Spanish role of older documents to RolePilot
func (r Role) Canonical() Role {
	if r == "piloto" {
		return RolePilot
	}
	return r
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePilot, RoleInstructor:
		return true
	}
	return false
}

// User represents a club member
type User struct {
	ID           string `json:"id"`
	Name         string `json:"nombre"`
	Email        string `json:"email"`
	Role         Role   `json:"rol"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// Principal is the authenticated identity attached to a session
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Principal returns the session identity of u
func (u *User) Principal() *Principal {
	return &Principal{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
