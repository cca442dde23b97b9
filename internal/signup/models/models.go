package models

import (
	"fmt"
	"strings"
)

// Field names one of the four registration inputs.
type Field string

const (
	FieldName            Field = "name"
	FieldIdentifier      Field = "identifier"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirm_password"
)

// Fields lists every form field in display order.
var Fields = []Field{FieldName, FieldIdentifier, FieldPassword, FieldConfirmPassword}

// ParseField maps a wire name to a Field.
func ParseField(raw string) (Field, error) {
	f := Field(strings.TrimSpace(raw))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", raw)
}

// IsSecret reports whether the field's value must never be echoed back.
func (f Field) IsSecret() bool {
	return f == FieldPassword || f == FieldConfirmPassword
}

// Account is the record written to the keyed store, keyed by ID.
type Account struct {
	ID       string `json:"id"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// CheckOutcome is the result of an existence probe.
type CheckOutcome string

const (
	OutcomeAvailable    CheckOutcome = "available"
	OutcomeTakenOrError CheckOutcome = "taken"
)

// CheckResult ties an outcome to the exact identifier value that was probed.
type CheckResult struct {
	CheckedIdentifier string
	Outcome           CheckOutcome
}

// ValidFor reports whether the result allows submitting the given identifier.
func (r *CheckResult) ValidFor(identifier string) bool {
	return r != nil && r.Outcome == OutcomeAvailable && r.CheckedIdentifier == identifier
}
