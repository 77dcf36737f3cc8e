package domain

import (
	"errors"
	"strings"
)

// Session-layer errors. Each maps to a single client-facing message.
var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUnconfirmedEmail   = errors.New("email is not confirmed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
	ErrUserNotFound       = errors.New("user not found")
)

// FieldError is a single validation failure on one attribute.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FullMessage renders the error as "<Field> <message>", e.g. "Email is invalid".
func (e FieldError) FullMessage() string {
	if e.Field == "" {
		return e.Message
	}
	return strings.ToUpper(e.Field[:1]) + e.Field[1:] + " " + e.Message
}

// ValidationErrors keeps field errors in the order they were detected.
type ValidationErrors []FieldError

func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

func (v ValidationErrors) Empty() bool {
	return len(v) == 0
}

// FullMessages returns every error as a human-readable sentence.
func (v ValidationErrors) FullMessages() []string {
	messages := make([]string, 0, len(v))
	for _, e := range v {
		messages = append(messages, e.FullMessage())
	}
	return messages
}

func (v ValidationErrors) Error() string {
	return "validation failed: " + strings.Join(v.FullMessages(), ", ")
}

// AsValidationErrors unwraps err into ValidationErrors if it carries any.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
