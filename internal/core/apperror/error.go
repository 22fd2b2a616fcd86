// Package apperror is the typed error every ledger, conversion and account
// operation fails with. The HTTP layer renders it as a problem document
// without parsing messages.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes, stable across releases.
const (
	CodeInternal          = "INTERNAL_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeBusinessRule      = "BUSINESS_RULE_VIOLATION"
	CodeIncompatibleUnits = "INCOMPATIBLE_UNITS"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeDuplicate         = "DUPLICATE_ENTRY"

	// CodeConcurrentModification means a per-key lock was not granted in time.
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// statusOf maps a code to its HTTP status. Codes missing here are 422.
var statusOf = map[string]int{
	CodeInternal:               http.StatusInternalServerError,
	CodeValidation:             http.StatusBadRequest,
	CodeInvalidQuantity:        http.StatusBadRequest,
	CodeNotFound:               http.StatusNotFound,
	CodeConflict:               http.StatusConflict,
	CodeDuplicate:              http.StatusConflict,
	CodeConcurrentModification: http.StatusConflict,
}

type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus may be overridden after construction (e.g. 413 for bodies).
	HTTPStatus int `json:"-"`

	// Err is the cause; it is never serialized.
	Err error `json:"-"`
}

func newError(code, message string, details map[string]any) *AppError {
	status, ok := statusOf[code]
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	return &AppError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail sets one detail key and returns e for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func NewValidation(message string) *AppError {
	return newError(CodeValidation, message, nil)
}

func NewNotFound(entity string, id any) *AppError {
	return newError(CodeNotFound, entity+" not found", map[string]any{"entity": entity, "id": id})
}

// NewBusinessRule reports a domain rule violation under a caller-chosen code.
func NewBusinessRule(code, message string) *AppError {
	e := newError(code, message, nil)
	e.HTTPStatus = http.StatusUnprocessableEntity
	return e
}

// NewIncompatibleUnits reports two units without a common base unit.
func NewIncompatibleUnits(fromUnitID, toUnitID any) *AppError {
	return newError(CodeIncompatibleUnits, "Units cannot be converted into each other",
		map[string]any{"from_unit_id": fromUnitID, "to_unit_id": toUnitID})
}

// NewInvalidQuantity reports a quantity or amount whose sign does not fit
// the movement or transaction type kind.
func NewInvalidQuantity(kind string, value any, message string) *AppError {
	return newError(CodeInvalidQuantity, message, map[string]any{"type": kind, "value": value})
}

// NewInternal hides err from clients; it is still logged and unwrappable.
func NewInternal(err error) *AppError {
	e := newError(CodeInternal, "Internal server error", nil)
	e.Err = err
	return e
}

// NewConcurrencyConflict reports a lock on key that could not be obtained in time.
func NewConcurrencyConflict(key string) *AppError {
	return newError(CodeConcurrentModification, "Another operation is in progress for this record. Please retry.",
		map[string]any{"key": key})
}

func NewConflict(message string) *AppError {
	return newError(CodeConflict, message, nil)
}

func NewDuplicate(entity, field, value string) *AppError {
	return newError(CodeDuplicate, fmt.Sprintf("%s with this %s already exists", entity, field),
		map[string]any{"entity": entity, "field": field, "value": value})
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// GetHTTPStatus is 500 for anything that is not an AppError.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether the first AppError in err's chain carries code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool               { return HasCode(err, CodeNotFound) }
func IsConcurrentModification(err error) bool { return HasCode(err, CodeConcurrentModification) }
func IsIncompatibleUnits(err error) bool      { return HasCode(err, CodeIncompatibleUnits) }
func IsInvalidQuantity(err error) bool        { return HasCode(err, CodeInvalidQuantity) }
