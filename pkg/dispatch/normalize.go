package dispatch

import (
	"net/http"

	"github.com/joeydtaylor/steeze-gateway/pkg/contract"
	"github.com/joeydtaylor/steeze-gateway/pkg/gwerr"
	"go.uber.org/zap"
)

// Codes the normalizer emits for failures that carry no classification of
// their own.
const (
	CodeInternal          = "INTERNAL"
	CodeContractViolation = "ERROR_CONTRACT_VIOLATION"
)

// Problem is the error body written to the wire.
type Problem struct {
	Status  int                `json:"status"`
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []gwerr.FieldError `json:"details,omitempty"`
}

// Normalizer is the single place an HTTP status is assigned to a failure.
type Normalizer struct {
	contract *contract.Registry
	log      *zap.Logger
}

func NewNormalizer(reg *contract.Registry, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{contract: reg, log: log}
}

// Normalize maps err to a status and body. A classified error is checked
// against the response the contract declares for its status on (path,
// method); a payload that does not fit is downgraded to a generic 500.
// Anything unclassified is a 500.
func (n *Normalizer) Normalize(path, method string, err error) (int, Problem) {
	ge, ok := gwerr.As(err)
	if !ok {
		msg := "internal error"
		if err != nil {
			msg = err.Error()
		}
		n.log.Error("unclassified dispatch failure",
			zap.String("path", path),
			zap.String("method", method),
			zap.Error(err),
		)
		return http.StatusInternalServerError, Problem{Status: http.StatusInternalServerError, Code: CodeInternal, Message: msg}
	}

	status := ge.Status
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	body := Problem{Status: status, Code: ge.Code, Message: ge.Message, Details: ge.Details}

	fields := []zap.Field{
		zap.String("path", path),
		zap.String("method", method),
		zap.Int("status", status),
		zap.String("code", body.Code),
		zap.Error(err),
	}
	if status >= 500 {
		n.log.Error("dispatch failed", fields...)
	} else {
		n.log.Info("dispatch rejected", fields...)
	}

	op, lerr := n.contract.Lookup(path, method)
	if lerr != nil {
		return status, body
	}
	resp := op.ResponseFor(status)
	if resp == nil || resp.Schema == nil {
		return status, body
	}
	fe, verr := resp.Schema.Validate(body)
	if verr == nil && len(fe) == 0 {
		return status, body
	}
	n.log.Error("error response violates the contract",
		zap.String("path", path),
		zap.String("method", method),
		zap.Int("status", status),
		zap.Any("details", fe),
		zap.NamedError("validateError", verr),
	)
	return http.StatusInternalServerError, Problem{
		Status:  http.StatusInternalServerError,
		Code:    CodeContractViolation,
		Message: "error response does not match the contract",
	}
}
