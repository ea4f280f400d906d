package token

import "fmt"

// Error is a program error code carried in types.InstructionError.Code.
type Error uint32

const (
	ErrInvalidInstruction Error = iota + 1
	ErrMissingSigner
	ErrAccountNotFound
	ErrAccountAlreadyInUse
	ErrInvalidAccountData
	ErrUninitializedAccount
	ErrOwnerMismatch
	ErrMintMismatch
	ErrMintDecimalsMismatch
	ErrInsufficientFunds
	ErrInsufficientLamports
	ErrExtensionNotFound
	ErrExtensionAlreadyInitialized
	ErrInvalidAccountSize
	ErrAccountNotApproved
	ErrConfidentialCreditsDisabled
	ErrNonConfidentialCreditsDisabled
	ErrMaximumDepositAmountExceeded
	ErrMaximumPendingBalanceCreditCounterExceeded
	ErrPendingBalanceCounterMismatch
	ErrProofInstructionMissing
	ErrProofVerificationFailed
	ErrProofContextMismatch
	ErrCiphertextArithmeticFailed
	ErrComputeBudgetExceeded
)

var errorNames = map[Error]string{
	ErrInvalidInstruction:                         "invalid instruction",
	ErrMissingSigner:                              "missing required signature",
	ErrAccountNotFound:                            "account not found",
	ErrAccountAlreadyInUse:                        "account already in use",
	ErrInvalidAccountData:                         "invalid account data",
	ErrUninitializedAccount:                       "uninitialized account",
	ErrOwnerMismatch:                              "owner does not match",
	ErrMintMismatch:                               "account not associated with this mint",
	ErrMintDecimalsMismatch:                       "mint decimals mismatch",
	ErrInsufficientFunds:                          "insufficient funds",
	ErrInsufficientLamports:                       "insufficient lamports for fee or rent",
	ErrExtensionNotFound:                          "extension not found",
	ErrExtensionAlreadyInitialized:                "extension already initialized",
	ErrInvalidAccountSize:                         "account has no room for extension",
	ErrAccountNotApproved:                         "account not approved for confidential transfers",
	ErrConfidentialCreditsDisabled:                "confidential credits disabled",
	ErrNonConfidentialCreditsDisabled:             "non-confidential credits disabled",
	ErrMaximumDepositAmountExceeded:               "maximum deposit amount exceeded",
	ErrMaximumPendingBalanceCreditCounterExceeded: "maximum pending balance credit counter exceeded",
	ErrPendingBalanceCounterMismatch:              "expected pending balance credit counter mismatch",
	ErrProofInstructionMissing:                    "proof instruction missing at offset",
	ErrProofVerificationFailed:                    "proof verification failed",
	ErrProofContextMismatch:                       "proof context does not match account state",
	ErrCiphertextArithmeticFailed:                 "ciphertext arithmetic failed",
	ErrComputeBudgetExceeded:                      "compute budget exceeded",
}

func (e Error) Error() string {
	if s, ok := errorNames[e]; ok {
		return s
	}
	return fmt.Sprintf("token error %d", uint32(e))
}
