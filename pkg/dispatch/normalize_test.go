package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNormalize_WithoutContract(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewNormalizer(nil, zap.New(core))

	status, body := n.Normalize("/x", http.MethodGet, gwerr.Validation("bad").WithDetails([]gwerr.FieldError{{Field: "q", Description: "required"}}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, Problem{Status: 400, Code: string(gwerr.ErrValidation), Message: "bad", Details: []gwerr.FieldError{{Field: "q", Description: "required"}}}, body)

	wrapped := fmt.Errorf("handler: %w", gwerr.Backend(404, "NOT_FOUND", "missing"))
	status, body = n.Normalize("/x", http.MethodGet, wrapped)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Code)

	status, body = n.Normalize("/x", http.MethodGet, errors.New("kaput"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, Problem{Status: 500, Code: CodeInternal, Message: "kaput"}, body)

	status, _ = n.Normalize("/x", http.MethodGet, &gwerr.Error{Kind: gwerr.ErrBackend, Status: 200, Code: "ODD"})
	assert.Equal(t, http.StatusInternalServerError, status, "non-error statuses are not emitted for failures")

	assert.Equal(t, 4, logs.Len(), "every failure is logged")
}
