package domain

import "errors"

var (
	// ErrValidation matches every *ValidationError via errors.Is
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when the target entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrAuthFailed is returned by login for an unknown user and for a wrong password alike
	ErrAuthFailed = errors.New("incorrect username or password")

	// ErrUnauthorized is returned when a bearer token cannot be resolved to an active user
	ErrUnauthorized = errors.New("could not validate credentials")

	// ErrStorageUnavailable wraps any storage failure that is not an expected outcome
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError is a caller error: bad identifier, empty update, missing
// referenced company, duplicate email. It is never retried and no partial
// mutation happens before it is returned.
type ValidationError struct {
	Msg string
}

// NewValidationError creates a validation error with the given message
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Is reports ErrValidation as a match so callers can branch on the kind only
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation messages shared by the directories and the HTTP layer.
const (
	MsgInvalidID       = "invalid id format"
	MsgNoFieldsUpdate  = "no fields to update"
	MsgCompanyNotExist = "invalid company_id: company does not exist"
	MsgEmailInUse      = "email is already in use"
)
