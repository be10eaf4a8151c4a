package auth

import (
	"errors"
	"fmt"
)

// ErrForbidden means the role lacks a capability.
var ErrForbidden = errors.New("forbidden")

// Role is the user's role as reported by GET /auth/me.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Capability is something a role may or may not do in this client.
type Capability int

const (
	// CapTakeExam allows opening an exam session.
	CapTakeExam Capability = iota
	// CapViewOwnResults allows viewing one's own results.
	CapViewOwnResults
	// CapViewAllResults allows viewing every student's results.
	CapViewAllResults
)

var grants = map[Role][]Capability{
	RoleStudent: {CapTakeExam, CapViewOwnResults},
	RoleTeacher: {CapViewOwnResults, CapViewAllResults},
	RoleAdmin:   {CapViewOwnResults, CapViewAllResults},
}

// Require returns ErrForbidden when the role does not hold c.
func (r Role) Require(c Capability) error {
	if r.Can(c) {
		return nil
	}
	return fmt.Errorf("%w: role %q cannot %s", ErrForbidden, r, c)
}

// Can reports whether the role holds the capability. Unknown roles hold none.
func (r Role) Can(c Capability) bool {
	for _, g := range grants[r] {
		if g == c {
			return true
		}
	}
	return false
}

func (c Capability) String() string {
	switch c {
	case CapTakeExam:
		return "take exams"
	case CapViewOwnResults:
		return "view own results"
	case CapViewAllResults:
		return "view all results"
	default:
		return "unknown capability"
	}
}

// User is the identity returned by GET /auth/me.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

// DisplayName prefers the full name over the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
