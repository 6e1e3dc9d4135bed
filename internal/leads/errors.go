package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is missing or malformed
	ErrInvalidName = errors.New("name is required and may only contain letters, spaces, hyphens and apostrophes")

	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = errors.New("either email or phone is required")

	// ErrInvalidPhone is returned for numbers that are not North American shaped
	ErrInvalidPhone = errors.New("please enter a valid phone number (e.g., (555) 123-4567)")

	// ErrInvalidEmail is returned for malformed email addresses
	ErrInvalidEmail = errors.New("please enter a valid email address")

	// ErrInvalidLead wraps every other field validation failure
	ErrInvalidLead = errors.New("invalid lead")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
