package leads

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// defaultRegion is the region assumed for numbers typed without a country code.
const defaultRegion = "US"

var (
	personNameRE = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	phoneDigitRE = regexp.MustCompile(`[\s().\-]`)
	naPhoneRE    = regexp.MustCompile(`^\+?1?\d{10}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNameRE.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("naphone", func(fl validator.FieldLevel) bool {
		return IsNorthAmericanPhone(fl.Field().String())
	})
	return v
}

// IsNorthAmericanPhone accepts 10 digit numbers with an optional +1/1 prefix and
// the usual separators.
func IsNorthAmericanPhone(raw string) bool {
	stripped := phoneDigitRE.ReplaceAllString(strings.TrimSpace(raw), "")
	return naPhoneRE.MatchString(stripped)
}

// NormalizePhone formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizePhone(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}
	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// Validate checks a create request and maps the first failure to a package error.
func (r *CreateLeadRequest) Validate() error {
	return translate(validate.Struct(r))
}

// Validate checks an update request.
func (r *UpdateLeadRequest) Validate() error {
	return translate(validate.Struct(r))
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidLead, err)
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Name":
		return ErrInvalidName
	case "Phone":
		if fe.Tag() == "required_without" {
			return ErrMissingContact
		}
		return ErrInvalidPhone
	case "Email":
		return ErrInvalidEmail
	}
	return fmt.Errorf("%w: %s failed %s", ErrInvalidLead, strings.ToLower(fe.Field()), fe.Tag())
}

// IsValidationError reports whether err came from request validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrMissingContact) ||
		errors.Is(err, ErrInvalidPhone) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInvalidLead)
}
