package account

import (
	"github.com/pvserra/go-user-rating-service/internal/types"
)

// FieldViolation names a request field that failed validation.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateCreateUser checks the create-user payload and returns all
// violations at once.
func ValidateCreateUser(p types.CreateUserParams) []FieldViolation {
	var violations []FieldViolation
	if p.Nickname == "" {
		violations = append(violations, FieldViolation{Field: "nickname", Message: "must not be empty"})
	}
	if p.FirstName == "" {
		violations = append(violations, FieldViolation{Field: "first_name", Message: "must not be empty"})
	}
	if p.LastName == "" {
		violations = append(violations, FieldViolation{Field: "last_name", Message: "must not be empty"})
	}
	if p.Password == "" {
		violations = append(violations, FieldViolation{Field: "password", Message: "must not be empty"})
	}
	if p.Role != "" && !types.ValidRole(p.Role) {
		violations = append(violations, FieldViolation{Field: "role", Message: "must be one of user, moderator, admin"})
	}
	return violations
}

// ValidateUpdateUser checks the partial-update payload. Absent fields are
// fine; present fields must hold usable values.
func ValidateUpdateUser(p types.UpdateUserParams) []FieldViolation {
	var violations []FieldViolation
	if p.Nickname != nil && *p.Nickname == "" {
		violations = append(violations, FieldViolation{Field: "nickname", Message: "must not be empty"})
	}
	if p.FirstName != nil && *p.FirstName == "" {
		violations = append(violations, FieldViolation{Field: "first_name", Message: "must not be empty"})
	}
	if p.LastName != nil && *p.LastName == "" {
		violations = append(violations, FieldViolation{Field: "last_name", Message: "must not be empty"})
	}
	if p.Password != nil && *p.Password == "" {
		violations = append(violations, FieldViolation{Field: "password", Message: "must not be empty"})
	}
	if p.Role != nil && !types.ValidRole(*p.Role) {
		violations = append(violations, FieldViolation{Field: "role", Message: "must be one of user, moderator, admin"})
	}
	return violations
}
