package conversation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	phonePattern = regexp.MustCompile(`(\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	namePattern  = regexp.MustCompile(`^[A-Za-z\s]{2,30}$`)
)

var streetSuffixes = map[string]struct{}{
	"street": {}, "st": {}, "avenue": {}, "ave": {}, "road": {}, "rd": {},
	"drive": {}, "dr": {}, "lane": {}, "ln": {}, "court": {}, "ct": {},
	"blvd": {}, "boulevard": {},
}

const (
	addressMinLength = 20
	problemMinLength = 30
)

// Extraction is the field a message was attributed to. Field is empty when
// nothing matched, in which case Value holds the original message.
type Extraction struct {
	Field Field  `json:"field,omitempty"`
	Value string `json:"value"`
}

// ExtractField attributes a message to at most one qualification field. It only
// runs in the qualification stage and tries, in order: phone number, email
// (recorded as the preferred contact), address, name and problem description.
func ExtractField(message string, stage Stage) Extraction {
	if stage != StageQualification {
		return Extraction{Value: message}
	}

	if m := phonePattern.FindString(message); m != "" {
		return Extraction{Field: FieldPhone, Value: m}
	}
	if m := emailPattern.FindString(message); m != "" {
		return Extraction{Field: FieldPreferredContact, Value: m}
	}

	length := utf8.RuneCountInString(message)
	if hasStreetSuffix(message) || length > addressMinLength {
		return Extraction{Field: FieldAddress, Value: message}
	}
	if trimmed := strings.TrimSpace(message); looksLikeName(trimmed) {
		return Extraction{Field: FieldName, Value: trimmed}
	}
	// Shadowed by the address length rule for free-text chat input.
	if length > problemMinLength {
		return Extraction{Field: FieldProblem, Value: message}
	}
	return Extraction{Value: message}
}

func looksLikeName(s string) bool {
	if !namePattern.MatchString(s) {
		return false
	}
	n := len(strings.Fields(s))
	return n >= 2 && n <= 3
}

// hasStreetSuffix matches whole words so "Christine" or "first" are not addresses.
func hasStreetSuffix(message string) bool {
	for _, tok := range words(strings.ToLower(message)) {
		if _, ok := streetSuffixes[tok]; ok {
			return true
		}
	}
	return false
}

func words(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
