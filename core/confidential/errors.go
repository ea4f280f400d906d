package confidential

import (
	"errors"
	"fmt"

	"github.com/tos-network/ctoken/core/balance"
	"github.com/tos-network/ctoken/core/keymaterial"
	"github.com/tos-network/ctoken/core/submitter"
	"github.com/tos-network/ctoken/core/txbuilder"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/core/zkproof"
	"github.com/tos-network/ctoken/token"
)

// Errors originating in lower layers are re-exported so callers only need
// this package to classify a failure.
var (
	ErrKeyDerivation   = keymaterial.ErrKeyDerivation
	ErrProofGeneration = zkproof.ErrProofGeneration
	ErrDecode          = balance.ErrDecode
	ErrBundleTooLarge  = txbuilder.ErrBundleTooLarge
	ErrNotConfigurable = txbuilder.ErrNotConfigurable
	ErrSubmission      = submitter.ErrSubmission
)

var (
	ErrAccountAlreadyExists = errors.New("confidential: account already exists")

	// ErrInsufficientPublicBalance indicates a deposit larger than the
	// plaintext token balance.
	ErrInsufficientPublicBalance = errors.New("confidential: insufficient public balance")

	// ErrPendingCreditCounterExceeded indicates the pending balance holds as
	// many credits as it may. Apply the pending balance first.
	ErrPendingCreditCounterExceeded = errors.New("confidential: pending credit counter exceeded")

	// ErrPendingBalanceLimit indicates a deposit that would push the pending
	// balance past the range the owner can decrypt. Apply the pending
	// balance first.
	ErrPendingBalanceLimit = errors.New("confidential: pending balance would become undecryptable")

	// ErrStaleSnapshot indicates an apply built against a pending balance
	// that changed before it landed. Refresh and retry.
	ErrStaleSnapshot = errors.New("confidential: stale pending balance snapshot")

	// ErrTransferRejected indicates the ledger refused a proof. Regenerate
	// the proofs; resending the same bundle fails the same way.
	ErrTransferRejected = errors.New("confidential: proof rejected by ledger")

	ErrInvalidAmount      = errors.New("confidential: invalid amount")
	ErrAccountNotApproved = errors.New("confidential: account not approved")
	ErrCreditsDisabled    = errors.New("confidential: credits disabled")
	ErrAccountNotFound    = errors.New("confidential: account not found")

	// ErrAccountNotConfigured indicates an operation on an account whose
	// confidential extension has not been configured.
	ErrAccountNotConfigured = errors.New("confidential: account not configured")
)

var programErrors = map[token.Error]error{
	token.ErrAccountAlreadyInUse:                        ErrAccountAlreadyExists,
	token.ErrInvalidAccountSize:                         ErrNotConfigurable,
	token.ErrExtensionAlreadyInitialized:                ErrNotConfigurable,
	token.ErrExtensionNotFound:                          ErrAccountNotConfigured,
	token.ErrInsufficientFunds:                          ErrInsufficientPublicBalance,
	token.ErrMaximumPendingBalanceCreditCounterExceeded: ErrPendingCreditCounterExceeded,
	token.ErrPendingBalanceCounterMismatch:              ErrStaleSnapshot,
	token.ErrProofVerificationFailed:                    ErrTransferRejected,
	token.ErrProofContextMismatch:                       ErrTransferRejected,
	token.ErrProofInstructionMissing:                    ErrTransferRejected,
	token.ErrMaximumDepositAmountExceeded:               ErrInvalidAmount,
	token.ErrAccountNotApproved:                         ErrAccountNotApproved,
	token.ErrConfidentialCreditsDisabled:                ErrCreditsDisabled,
	token.ErrNonConfidentialCreditsDisabled:             ErrCreditsDisabled,
	token.ErrAccountNotFound:                            ErrAccountNotFound,
}

// classify attaches the matching sentinel to a ledger program failure. The
// original *types.InstructionError stays reachable through errors.As.
func classify(err error) error {
	var ie *types.InstructionError
	if !errors.As(err, &ie) {
		return err
	}
	class, ok := programErrors[token.Error(ie.Code)]
	if !ok {
		return err
	}
	return fmt.Errorf("%w: %w", class, err)
}
