package gwerr

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsAreSentinels(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", Validation("amount is required").WithCause(io.ErrUnexpectedEOF))

	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.NotErrorIs(t, err, ErrBackend)

	ge, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, ge.Status)
	assert.Equal(t, "VALIDATION_ERROR", ge.Code)
	assert.Equal(t, "VALIDATION_ERROR: amount is required: unexpected EOF", ge.Error())
}

func TestDefaultStatuses(t *testing.T) {
	cases := map[*Error]int{
		ContractLoad("x"):  http.StatusInternalServerError,
		InventoryLoad("x"): http.StatusInternalServerError,
		UnknownRoute(http.StatusMethodNotAllowed, "x"): http.StatusMethodNotAllowed,
		NoBackendConfigured("x"):                       http.StatusInternalServerError,
		HandlerNotFound("x"):                           http.StatusInternalServerError,
		ResponseContract("x"):                          http.StatusInternalServerError,
		MissingIdentity("x"):                           http.StatusUnauthorized,
	}
	for e, status := range cases {
		assert.Equal(t, status, e.Status, e.Error())
		assert.Equal(t, string(e.Kind), e.Code)
	}
}

func TestBackend(t *testing.T) {
	e := Backend(http.StatusConflict, "DUPLICATE", "payment exists")
	assert.Equal(t, http.StatusConflict, e.Status)
	assert.Equal(t, "DUPLICATE", e.Code)
	assert.Equal(t, "payment exists", e.Message)

	for _, s := range []int{0, http.StatusOK, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		assert.Equal(t, http.StatusBadGateway, Backend(s, "", "down").Status, s)
	}
	assert.Equal(t, string(ErrBackend), Backend(0, "", "down").Code)
}

func TestAs_Unclassified(t *testing.T) {
	_, ok := As(errors.New("boom"))
	assert.False(t, ok)
	_, ok = As(nil)
	assert.False(t, ok)
}

func TestWithDetails(t *testing.T) {
	d := []FieldError{{Field: "amount", Description: "Invalid type"}}
	e := Validation("bad body").WithDetails(d)
	assert.Equal(t, d, e.Details)
}
