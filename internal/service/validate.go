package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	appErr "github.com/xxxsen/idgate/internal/pkg/errors"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// bcrypt refuses input longer than this many bytes.
const maxPasswordBytes = 72

var passwordBytes = validation.By(func(value interface{}) error {
	if s, ok := value.(string); ok && len(s) > maxPasswordBytes {
		return errors.New("must be at most 72 bytes")
	}
	return nil
})

var (
	emailRules       = []validation.Rule{validation.Required, validation.Length(3, 254), is.Email}
	passwordRules    = []validation.Rule{validation.Required, validation.Length(8, maxPasswordBytes), passwordBytes}
	displayNameRules = []validation.Rule{validation.Required, validation.Length(1, 100)}
	codeRules        = []validation.Rule{validation.Required, validation.Match(codePattern)}
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", appErr.ErrInvalid, err.Error())
}

func validateEmail(email string) error {
	return invalid(validation.Validate(email, emailRules...))
}

func validatePassword(password string) error {
	return invalid(validation.Validate(password, passwordRules...))
}

type RegisterInput struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

func (r *RegisterInput) normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

func (r RegisterInput) Validate() error {
	return invalid(validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
		validation.Field(&r.Code, codeRules...),
		validation.Field(&r.DisplayName, displayNameRules...),
		validation.Field(&r.Password, passwordRules...),
	))
}

type codeInput struct {
	Email string
	Code  string
}

func (c codeInput) Validate() error {
	return invalid(validation.ValidateStruct(&c,
		validation.Field(&c.Email, emailRules...),
		validation.Field(&c.Code, codeRules...),
	))
}
