package controller

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FieldErrors collects per-field validation messages. DTO Validate methods return it so
// clients get every problem at once.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// Err returns nil when no field failed.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+f[field])
	}
	return strings.Join(parts, "; ")
}

// Validator is implemented by DTOs with their own validation logic.
type Validator interface {
	Validate() error
}

// ValidateDTO runs the DTO's Validate method when it has one and otherwise checks fields
// tagged `validate:"required"`. Failures come back as a 400 AppError.
func ValidateDTO(dto interface{}) error {
	if dto == nil {
		return NewValidationErrorWithCode("validation.dto_nil", "dto cannot be nil", nil)
	}

	// Check for nil pointer before type assertion
	v := reflect.ValueOf(dto)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return NewValidationErrorWithCode("validation.dto_nil", "dto cannot be nil", nil)
	}

	// Check if DTO implements Validator interface
	if validator, ok := dto.(Validator); ok {
		if err := validator.Validate(); err != nil {
			var appErr *AppError
			if errors.As(err, &appErr) {
				return err
			}
			var fieldErrs FieldErrors
			if errors.As(err, &fieldErrs) {
				fields := make(map[string]interface{}, len(fieldErrs))
				for field, msg := range fieldErrs {
					fields[field] = msg
				}
				return NewValidationError("validation failed", map[string]interface{}{"fields": fields})
			}
			return NewValidationError(err.Error(), nil)
		}
		return nil
	}

	// For DTOs that don't implement Validator, perform basic validation
	// Check for nil pointers in struct fields
	return validateStruct(dto)
}

// validateStruct performs basic validation on struct fields
// This is a fallback for DTOs that don't implement the Validator interface
func validateStruct(dto interface{}) error {
	v := reflect.ValueOf(dto)

	// Dereference pointer if needed
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return NewValidationErrorWithCode("validation.dto_nil", "dto cannot be nil", nil)
		}
		v = v.Elem()
	}

	// Only validate structs
	if v.Kind() != reflect.Struct {
		return nil
	}

	// Check for required fields (basic validation)
	// This is a minimal implementation - DTOs should implement Validator for complex validation
	t := v.Type()
	var validationErrors []string

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Skip unexported fields
		if !fieldType.IsExported() {
			continue
		}

		// Check for nil pointers in required fields
		// A field is considered required if it has a "required" tag
		if tag := fieldType.Tag.Get("validate"); tag != "" {
			if strings.Contains(tag, "required") {
				if isZeroValue(field) {
					validationErrors = append(validationErrors,
						fmt.Sprintf("field '%s' is required", fieldType.Name))
				}
			}
		}
	}

	if len(validationErrors) > 0 {
		return NewValidationError("validation failed", map[string]interface{}{
			"errors": validationErrors,
		})
	}

	return nil
}

// isZeroValue checks if a reflect.Value is the zero value for its type
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	case reflect.Struct:
		return v.IsZero()
	default:
		return false
	}
}
