package domain

import "time"

// Gender is an open enum; values outside the constants below are accepted
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// User represents a system user belonging to a company
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"` // Unique across active and inactive users
	Phone        string     `json:"phone"`
	Gender       *Gender    `json:"gender"`
	DOB          Date       `json:"dob"`
	PasswordHash string     `json:"-"` // Bcrypt hash, never returned in API
	RoleID       *string    `json:"role_id"`
	CompanyID    string     `json:"company_id"`
	Status       Status     `json:"status"`
	CreatedBy    *string    `json:"created_by"`
	UpdatedBy    *string    `json:"updated_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// IsActive reports whether the user may authenticate
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// UserFields holds the caller-supplied attributes of a new user.
// Password is plaintext and only lives for the duration of the create call.
type UserFields struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Gender    *Gender `json:"gender"`
	DOB       Date    `json:"dob"`
	Password  string  `json:"password"`
	RoleID    *string `json:"role_id"`
	CompanyID string  `json:"company_id"`
}

// UserUpdate is a partial update; nil fields are left untouched
type UserUpdate struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Gender    *Gender `json:"gender"`
	DOB       *Date   `json:"dob"`
	Password  *string `json:"password"`
	RoleID    *string `json:"role_id"`
	CompanyID *string `json:"company_id"`
}

// IsEmpty reports whether no field is set
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Email == nil && u.Phone == nil && u.Gender == nil &&
		u.DOB == nil && u.Password == nil && u.RoleID == nil && u.CompanyID == nil
}

// Changes returns the set fields keyed by their persisted attribute name.
// The password is excluded: it has to be hashed before it is persisted.
func (u UserUpdate) Changes() map[string]any {
	out := map[string]any{}
	setString(out, "username", u.Username)
	setString(out, "email", u.Email)
	setString(out, "phone", u.Phone)
	if u.Gender != nil {
		out["gender"] = string(*u.Gender)
	}
	if u.DOB != nil {
		out["dob"] = u.DOB.String()
	}
	setString(out, "role_id", u.RoleID)
	setString(out, "company_id", u.CompanyID)
	return out
}
