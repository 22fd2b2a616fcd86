package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("append movement: %w", NewNotFound("material", "m-1"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsIncompatibleUnits(wrapped))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))

	assert.True(t, IsIncompatibleUnits(NewIncompatibleUnits("kg", "l")))
	assert.True(t, IsInvalidQuantity(NewInvalidQuantity("IN", "0", "quantity must be positive")))
	assert.True(t, IsConcurrentModification(NewConcurrencyConflict("stock:a:b")))

	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	appErr, ok := AsAppError(fmt.Errorf("outer: %w", err))
	assert.True(t, ok)
	assert.Equal(t, CodeInternal, appErr.Code)
}

func TestWithDetail(t *testing.T) {
	err := NewValidation("bad").WithDetail("field", "quantity")
	assert.Equal(t, "quantity", err.Details["field"])
	assert.Equal(t, "VALIDATION_ERROR: bad", err.Error())
}

func TestStatusByCode(t *testing.T) {
	cases := map[*AppError]int{
		NewValidation("bad"):                        http.StatusBadRequest,
		NewInvalidQuantity("OUT", "-1", "negative"): http.StatusBadRequest,
		NewNotFound("unit", "u-1"):                  http.StatusNotFound,
		NewDuplicate("unit", "code", "KG"):          http.StatusConflict,
		NewConcurrencyConflict("material:x"):        http.StatusConflict,
		NewIncompatibleUnits("kg", "l"):             http.StatusUnprocessableEntity,
		NewBusinessRule(CodeConflict, "closed"):     http.StatusUnprocessableEntity,
		NewInternal(errors.New("x")):                http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, err.HTTPStatus, err.Code)
	}

	assert.True(t, HasCode(fmt.Errorf("wrap: %w", NewDuplicate("unit", "code", "KG")), CodeDuplicate))
	assert.False(t, HasCode(errors.New("plain"), CodeDuplicate))
	assert.Equal(t, "unit not found", NewNotFound("unit", "u-1").Message)
}
