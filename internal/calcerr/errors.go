// Package calcerr defines the typed error taxonomy shared by the design and
// takeoff engines and the service around them.
//
// Every error carries a machine-readable Code, the offending field and value,
// and a human message:
//
//	err := calcerr.Validation("cover", 600, "cover must be less than depth")
//	if calcerr.Is(err, calcerr.CodeInvalidInput) {
//	    // resubmit corrected input
//	}
//
// Codes fall into three groups. Input errors (INVALID_INPUT, INVALID_GEOMETRY)
// are fixable by the caller. Reference-data errors (UNKNOWN_GRADE,
// UNKNOWN_MATERIAL) are configuration problems. Infeasibility errors
// (OVER_REINFORCED, SHEAR_CAPACITY_EXCEEDED, UNARRANGEABLE) mean the geometry
// or loading cannot be satisfied under the design code.
package calcerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// Input errors
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidGeometry Code = "INVALID_GEOMETRY"

	// Reference data errors
	CodeUnknownGrade    Code = "UNKNOWN_GRADE"
	CodeUnknownMaterial Code = "UNKNOWN_MATERIAL"

	// Design infeasibility
	CodeOverReinforced        Code = "OVER_REINFORCED"
	CodeShearCapacityExceeded Code = "SHEAR_CAPACITY_EXCEEDED"
	CodeUnarrangeable         Code = "UNARRANGEABLE"

	// Service errors
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code, the offending field and value,
// and an optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Field   string `json:"field,omitempty"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code) + ": "
	if e.Field != "" {
		msg += e.Field + ": "
	}
	msg += e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Validation reports malformed or out-of-range input.
func Validation(field string, value any, constraint string) *Error {
	return &Error{Code: CodeInvalidInput, Field: field, Value: value, Message: constraint}
}

// InvalidGeometry is the takeoff-side equivalent of Validation.
func InvalidGeometry(field string, value any, constraint string) *Error {
	return &Error{Code: CodeInvalidGeometry, Field: field, Value: value, Message: constraint}
}

// UnknownGrade reports a grade/category combination missing from the table.
func UnknownGrade(category, grade string) *Error {
	return &Error{
		Code:    CodeUnknownGrade,
		Field:   category,
		Value:   grade,
		Message: fmt.Sprintf("grade %q is not tabulated for %s", grade, category),
	}
}

// UnknownMaterial reports a unit weight or mix lookup miss.
func UnknownMaterial(field, material string) *Error {
	return &Error{
		Code:    CodeUnknownMaterial,
		Field:   field,
		Value:   material,
		Message: fmt.Sprintf("material %q is not tabulated", material),
	}
}

// OverReinforced reports a section whose required steel exceeds the code ceiling.
func OverReinforced(field string, required, limit float64) *Error {
	return &Error{
		Code:    CodeOverReinforced,
		Field:   field,
		Value:   required,
		Message: fmt.Sprintf("required steel %.0f mm² exceeds maximum %.0f mm²", required, limit),
	}
}

// ShearCapacityExceeded reports design shear stress above what the section can carry.
func ShearCapacityExceeded(field string, v, vmax float64) *Error {
	return &Error{
		Code:    CodeShearCapacityExceeded,
		Field:   field,
		Value:   v,
		Message: fmt.Sprintf("shear stress %.2f N/mm² exceeds %.2f N/mm²", v, vmax),
	}
}

// Unarrangeable reports that no standard bar diameter yields a buildable arrangement.
func Unarrangeable(field string, area, width float64) *Error {
	return &Error{
		Code:    CodeUnarrangeable,
		Field:   field,
		Value:   area,
		Message: fmt.Sprintf("%.0f mm² cannot be arranged in a %.0f mm wide section", area, width),
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
// Errors outside the taxonomy report CodeInternal.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the status returned by the service.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvalidGeometry:
		return http.StatusBadRequest
	case CodeOverReinforced, CodeShearCapacityExceeded, CodeUnarrangeable:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Write responds with err encoded as JSON under the status of its code.
// Errors outside the taxonomy are reported without their cause.
func Write(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Wrap(CodeInternal, err, "internal error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(e.Code))
	json.NewEncoder(w).Encode(e)
}
