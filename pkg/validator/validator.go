// Package validator holds request validation helpers shared by the API
// handlers.
package validator

import (
	"strings"
)

// MaxMessageLength caps a chat message body.
const MaxMessageLength = 4000

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var msgs []string
	for _, e := range v {
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any errors
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// Add adds a validation error
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// ValidateMessageBody checks a chat message body. Whitespace-only bodies are
// rejected; length is capped after trimming.
func ValidateMessageBody(body string) ValidationErrors {
	var errs ValidationErrors
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		errs.Add("message", "cannot be empty")
		return errs
	}
	if len(trimmed) > MaxMessageLength {
		errs.Add("message", "exceeds maximum length")
	}
	return errs
}

// ValidateAccountID checks an opaque account identifier.
func ValidateAccountID(id string) bool {
	id = strings.TrimSpace(id)
	return len(id) >= 1 && len(id) <= 128
}

// SanitizeString trims whitespace and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
