package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's role inside their company.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// CanManage reports whether the role may administer the company.
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// User is a person signed in through the hosted auth provider. The ID is the
// provider's subject claim.
type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	CompanyID *uuid.UUID
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserUpdate carries a partial profile update.
type UserUpdate struct {
	ID       uuid.UUID
	FullName *string
	Role     *Role
}
