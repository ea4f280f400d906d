package ledgerapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/ledger"
	"github.com/tos-network/ctoken/token"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code,omitempty"`
	ProgramCode uint32 `json:"programCode,omitempty"`
}

var errorCodes = []struct {
	code   string
	err    error
	status int
}{
	{"checkpoint_not_found", ledger.ErrCheckpointNotFound, http.StatusConflict},
	{"already_processed", ledger.ErrAlreadyProcessed, http.StatusConflict},
	{"bundle_too_large", types.ErrBundleTooLarge, http.StatusRequestEntityTooLarge},
	{"insufficient_fee", ledger.ErrInsufficientFee, http.StatusPaymentRequired},
	{"invalid_budget", ledger.ErrInvalidBudget, http.StatusBadRequest},
	{"missing_signature", types.ErrMissingSignature, http.StatusUnauthorized},
	{"bad_signature", types.ErrBadSignature, http.StatusUnauthorized},
	{"empty_bundle", types.ErrEmptyBundle, http.StatusBadRequest},
	{"account_not_found", types.ErrAccountNotFound, http.StatusNotFound},
	{"bundle_not_found", types.ErrBundleNotFound, http.StatusNotFound},
}

// encodeError maps err to a status and response body.
func encodeError(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			resp.Code = c.code
			return c.status, resp
		}
	}
	var te token.Error
	if errors.As(err, &te) {
		resp.Code = "program_error"
		resp.ProgramCode = uint32(te)
		return http.StatusUnprocessableEntity, resp
	}
	return http.StatusInternalServerError, resp
}

// DecodeError turns a response body back into an error matching the
// server-side sentinel, so errors.Is works across the wire.
func DecodeError(status int, resp ErrorResponse) error {
	for _, c := range errorCodes {
		if resp.Code == c.code {
			return fmt.Errorf("%w (%s)", c.err, resp.Error)
		}
	}
	if resp.ProgramCode != 0 {
		return token.Error(resp.ProgramCode)
	}
	if resp.Error == "" {
		resp.Error = http.StatusText(status)
	}
	return fmt.Errorf("ledgerapi: %d: %s", status, resp.Error)
}
