package entity

import (
	"net/http"
	"strings"

	"bklreg/lib/validate"
)

// SubmissionForm carries the five user-entered fields of the public form.
// Mobile is the national subscriber number, exactly 10 digits; the country
// dial code is applied only at the OTP-provider boundary and never stored.
type SubmissionForm struct {
	Name    string `json:"name" validate:"required"`
	Age     string `json:"age" validate:"required,number"`
	Gender  string `json:"gender" validate:"required,oneof=male female other"`
	Address string `json:"address" validate:"required"`
	Mobile  string `json:"mobile" validate:"required,len=10,numeric"`
}

func (f *SubmissionForm) Bind(_ *http.Request) error {
	f.Mobile = NormalizeMobile(f.Mobile)
	return validate.Struct(f)
}

// Registration builds the record to persist. PhoneVerified is set by the
// caller only after OTP confirmation succeeded for this same submission.
func (f *SubmissionForm) Registration(phoneVerified bool) *Registration {
	return &Registration{
		Name:          f.Name,
		Age:           f.Age,
		Gender:        f.Gender,
		Address:       f.Address,
		Mobile:        f.Mobile,
		PhoneVerified: phoneVerified,
		Status:        StatusRegistered,
	}
}

// NormalizeMobile strips every non-digit character and truncates the rest
// to 10 digits, mirroring what the form input applies on every keystroke.
func NormalizeMobile(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == 10 {
			break
		}
	}
	return b.String()
}

// ConfirmRequest carries the OTP confirmation for a pending submission.
type ConfirmRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Code        string `json:"code" validate:"required"`
}

func (c *ConfirmRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

// AdminCredentials is the admin login request body.
type AdminCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *AdminCredentials) Bind(_ *http.Request) error {
	return validate.Struct(c)
}
