package domainerrors

import (
	"fmt"
	"strings"
)

// FieldError is one violated rule, addressed by a dotted field path.
// An empty Field denotes a record-level rule.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationError carries every violated field in rule order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) DomainCode() Code { return CodeValidation }

// NewValidation returns nil when fields is empty so callers can return it unconditionally.
func NewValidation(fields []FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// NotFoundError names exactly which organisation codes could not be resolved.
type NotFoundError struct {
	Codes []string
}

func (e *NotFoundError) Error() string {
	if len(e.Codes) == 1 {
		return fmt.Sprintf("company %s not found", e.Codes[0])
	}
	return fmt.Sprintf("companies not found: %s", strings.Join(e.Codes, ","))
}

func (e *NotFoundError) DomainCode() Code { return CodeNotFound }

// NotFound builds a NotFoundError for the given codes.
func NotFound(codes ...string) error {
	return &NotFoundError{Codes: codes}
}
