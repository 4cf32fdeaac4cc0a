package model

import "time"

const (
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
)

type User struct {
	ID           int64      `db:"user_id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
}

// LoginRequest accepts the username in either field.
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Login() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Email
}

// AuthContext identifies the authenticated caller of an operation.
type AuthContext struct {
	UserID   int64
	Username string
	Role     string
}

func (a AuthContext) HasRole(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
