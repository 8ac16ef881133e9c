package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// Validate checks that every mandatory company attribute is present and well formed
func (f CompanyFields) Validate() error {
	if err := required(map[string]string{
		"name":       f.Name,
		"code":       f.Code,
		"address":    f.Address,
		"pincode":    f.Pincode,
		"email":      f.Email,
		"mobile_no":  f.MobileNo,
		"gst_number": f.GSTNumber,
	}, "name", "code", "address", "pincode", "email", "mobile_no", "gst_number"); err != nil {
		return err
	}
	return validEmail(f.Email)
}

// Validate checks the format of the fields present in the update
func (u CompanyUpdate) Validate() error {
	if u.Email != nil {
		return validEmail(*u.Email)
	}
	return nil
}

// Validate checks that every mandatory user attribute is present and well formed
func (f UserFields) Validate() error {
	if err := required(map[string]string{
		"username":   f.Username,
		"email":      f.Email,
		"phone":      f.Phone,
		"password":   f.Password,
		"company_id": f.CompanyID,
	}, "username", "email", "phone", "password", "company_id"); err != nil {
		return err
	}
	if f.DOB.IsZero() {
		return NewValidationError("invalid input data: dob is required")
	}
	if err := validPassword(f.Password); err != nil {
		return err
	}
	return validEmail(f.Email)
}

// Validate checks the format of the fields present in the update
func (u UserUpdate) Validate() error {
	if u.Email != nil {
		if err := validEmail(*u.Email); err != nil {
			return err
		}
	}
	if u.Password != nil {
		if *u.Password == "" {
			return NewValidationError("invalid input data: password must not be empty")
		}
		if err := validPassword(*u.Password); err != nil {
			return err
		}
	}
	return nil
}

// required reports the first empty field in order
func required(values map[string]string, order ...string) error {
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			return NewValidationError(fmt.Sprintf("invalid input data: %s is required", name))
		}
	}
	return nil
}

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

func validPassword(s string) error {
	if len(s) > MaxPasswordBytes {
		return NewValidationError(fmt.Sprintf("invalid input data: password must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}

func validEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return NewValidationError(fmt.Sprintf("invalid input data: %q is not a valid email address", s))
	}
	return nil
}
