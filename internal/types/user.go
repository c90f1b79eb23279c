package types

import (
	"time"

	"github.com/google/uuid"
)

// UserRole enumerates the roles a user account can hold.
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is the stored account record. PasswordHash and Salt never leave the
// service boundary; UserDTO is the outward shape.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Nickname     string     `json:"nickname"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	Salt         string     `json:"-"`
	Role         UserRole   `json:"role"`
	Rating       int        `json:"rating"`
	LastVotedAt  *time.Time `json:"last_voted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the record carries a soft-delete tombstone.
func (u *User) Deleted() bool {
	return u.DeletedAt != nil
}

// UserDTO is the public projection of a user record.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Nickname  string    `json:"nickname"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      UserRole  `json:"role"`
	Rating    int       `json:"rating"`
}

func NewUserDTO(u *User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Nickname:  u.Nickname,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Rating:    u.Rating,
	}
}

// CreateUserParams carries the caller-supplied fields for account creation.
type CreateUserParams struct {
	Nickname  string   `json:"nickname"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Password  string   `json:"password"`
	Role      UserRole `json:"role,omitempty"`
}

// UpdateUserParams defines the fields allowed for account updates.
// Pointers distinguish "not provided" from an explicit empty value.
type UpdateUserParams struct {
	Nickname  *string   `json:"nickname,omitempty"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	Role      *UserRole `json:"role,omitempty"`
	Password  *string   `json:"password,omitempty"`
}
