package model

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes exam authors (faculty) from takers (students).
type Role string

const (
	RoleAuthor Role = "author"
	RoleTaker  Role = "taker"
)

// CanAuthor reports whether the role may create and manage exams and pools.
func (r Role) CanAuthor() bool {
	return r == RoleAuthor
}

// CanRegister reports whether the role may redeem access codes and sit exams.
func (r Role) CanRegister() bool {
	return r == RoleTaker
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAuthor || r == RoleTaker
}

// User mirrors an identity managed by the external identity service.
// The core reads only ID, Name and Role; it never authenticates.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
