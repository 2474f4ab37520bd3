// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package validation wraps go-playground/validator behind a process-wide
// instance. Provider payloads and configuration both pass through it before
// anything acts on them.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// GetValidator returns the shared validator. Struct metadata is cached inside
// it, so the same instance serves every caller.
func GetValidator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// FieldError is one failed constraint on one struct field.
type FieldError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

func (e *FieldError) Field() string      { return e.field }
func (e *FieldError) Tag() string        { return e.tag }
func (e *FieldError) Param() string      { return e.param }
func (e *FieldError) Value() interface{} { return e.value }
func (e *FieldError) Error() string      { return e.message }

// StructError collects every failed constraint of a single struct.
type StructError struct {
	errors []FieldError
}

// Errors returns the individual field failures.
func (se *StructError) Errors() []FieldError { return se.errors }

func (se *StructError) Error() string {
	if len(se.errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(se.errors))
	for i, fe := range se.errors {
		parts[i] = fe.message
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct checks s against its validate tags. It returns nil when s is
// valid, otherwise a *StructError listing every violated constraint.
func ValidateStruct(s interface{}) *StructError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: s was not a struct at all.
		return &StructError{errors: []FieldError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	out := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		out[i] = FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: describe(fe),
		}
	}
	return &StructError{errors: out}
}

// describe renders one violated constraint as an operator-readable sentence.
func describe(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s %s characters", field, bound, param)
		}
		return fmt.Sprintf("%s must be %s %s", field, bound, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
