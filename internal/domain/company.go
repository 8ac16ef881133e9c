package domain

import "time"

// Status is the lifecycle state shared by companies and users.
// The only transition is active -> inactive (soft delete).
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Company represents an organization/tenant
type Company struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Code      string     `json:"code"`
	Address   string     `json:"address"`
	Pincode   string     `json:"pincode"`
	Email     string     `json:"email"`
	MobileNo  string     `json:"mobile_no"`
	Phone     *string    `json:"phone"`
	GSTNumber string     `json:"gst_number"`
	Status    Status     `json:"status"`
	CreatedBy *string    `json:"created_by"`
	UpdatedBy *string    `json:"updated_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// IsActive reports whether the company has not been soft-deleted
func (c *Company) IsActive() bool {
	return c.Status == StatusActive
}

// CompanyFields holds the caller-supplied attributes of a new company
type CompanyFields struct {
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	Address   string  `json:"address"`
	Pincode   string  `json:"pincode"`
	Email     string  `json:"email"`
	MobileNo  string  `json:"mobile_no"`
	Phone     *string `json:"phone"`
	GSTNumber string  `json:"gst_number"`
}

// CompanyUpdate is a partial update; nil fields are left untouched
type CompanyUpdate struct {
	Name      *string `json:"name"`
	Code      *string `json:"code"`
	Address   *string `json:"address"`
	Pincode   *string `json:"pincode"`
	Email     *string `json:"email"`
	MobileNo  *string `json:"mobile_no"`
	Phone     *string `json:"phone"`
	GSTNumber *string `json:"gst_number"`
}

// IsEmpty reports whether no field is set
func (u CompanyUpdate) IsEmpty() bool {
	return len(u.Changes()) == 0
}

// Changes returns the set fields keyed by their persisted attribute name
func (u CompanyUpdate) Changes() map[string]any {
	out := map[string]any{}
	setString(out, "name", u.Name)
	setString(out, "code", u.Code)
	setString(out, "address", u.Address)
	setString(out, "pincode", u.Pincode)
	setString(out, "email", u.Email)
	setString(out, "mobile_no", u.MobileNo)
	setString(out, "phone", u.Phone)
	setString(out, "gst_number", u.GSTNumber)
	return out
}

func setString(out map[string]any, key string, v *string) {
	if v != nil {
		out[key] = *v
	}
}
