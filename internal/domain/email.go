package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/strv-go/newsletter-publisher/internal/errors"
)

var emailValidator = validator.New()

// Email is a validated subscriber/admin email address.
type Email struct {
	value string
}

// ParseEmail accepts any syntactically valid email address, otherwise fails
// with apperrors.ErrInvalidEmail.
func ParseEmail(s string) (Email, error) {
	if err := emailValidator.Var(s, "required,email"); err != nil {
		return Email{}, fmt.Errorf("%w: %s", apperrors.ErrInvalidEmail, err.Error())
	}
	return Email{value: s}, nil
}

func (e Email) String() string { return e.value }
