package user

import (
	"time"

	"github.com/trezcool/sose/core"
)

// Roles
const (
	RoleStudent   = "student"
	RoleAdmin     = "admin"
	RoleCounselor = "counselor"
	RoleLibrarian = "librarian"
)

var (
	AllRoles   = []string{RoleStudent, RoleAdmin, RoleCounselor, RoleLibrarian}
	StaffRoles = []string{RoleLibrarian, RoleAdmin} // may run the library

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Counselor", Value: RoleCounselor},
		{Name: "Librarian", Value: RoleLibrarian},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a record of the school user directory.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Class     string    `json:"class,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (u User) Actor() Actor { return Actor{ID: u.ID, Role: u.Role} }

// Actor is the identity acting on the library, as asserted by the auth collaborator.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsStaff() bool {
	for _, r := range StaffRoles {
		if a.Role == r {
			return true
		}
	}
	return false
}

func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

func (a Actor) HasKnownRole() bool {
	for _, r := range AllRoles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// NewUser contains information needed to add a User to the directory.
type NewUser struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role" validate:"required,userrole"`
	Class string `json:"class" validate:"max=50"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Class = core.CleanString(nu.Class)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
