package params

const (
	// DefaultMaxPendingBalanceCreditCounter bounds the number of credits that
	// may land in the pending balance before an apply is required.
	DefaultMaxPendingBalanceCreditCounter uint64 = 65536

	// MaxDepositAmount is the largest amount a single deposit or transfer may
	// move into a pending balance (48 bits: lo 16 + hi 32).
	MaxDepositAmount uint64 = 1 << 48

	PendingBalanceLoBits  = 16
	PendingBalanceHiBits  = 32
	RemainingBalanceBits  = 64
	TransferAmountLoBits  = PendingBalanceLoBits
	TransferAmountHiBits  = PendingBalanceHiBits
	MaxTransferAmountBits = TransferAmountLoBits + TransferAmountHiBits

	// MaxDecryptableAmount bounds the discrete-log search used to decrypt
	// pending ciphertexts.
	MaxDecryptableAmount uint64 = 1 << 32

	// MaxPendingBalanceHi bounds the decryption of the high half of a
	// pending balance. One credit adds up to 2^32-1 there, so a few large
	// credits already pass MaxDecryptableAmount. Deposits that would pass
	// this bound are refused client side.
	MaxPendingBalanceHi uint64 = 1 << 36

	// MaxBundleSize is the default serialized bundle size ceiling. A
	// confidential transfer carries an inline range proof of roughly 14 KiB.
	MaxBundleSize = 24 * 1024

	// MaxInstructionsPerBundle caps instruction count independently of size.
	MaxInstructionsPerBundle = 64

	// MaxProofInstructionOffset is the largest distance a consumer may point
	// at its proof instruction (stored as a signed byte).
	MaxProofInstructionOffset = 127
)

// Account layout sizes.
const (
	BaseAccountLen                 = 165
	AccountTypeLen                 = 1
	ExtensionHeaderLen             = 4
	ConfidentialTransferAccountLen = 303
	ConfidentialTransferMintLen    = 65

	// ConfidentialAccountLen is the size of a token account reallocated to
	// hold the confidential transfer extension.
	ConfidentialAccountLen = BaseAccountLen + AccountTypeLen + ExtensionHeaderLen + ConfidentialTransferAccountLen

	MintLen             = 82
	ConfidentialMintLen = BaseAccountLen + AccountTypeLen + ExtensionHeaderLen + ConfidentialTransferMintLen
)

// Rent parameters, expressed in the ledger's smallest native unit.
const (
	LamportsPerByteYear    uint64 = 3480
	ExemptionThresholdYrs  uint64 = 2
	AccountStorageOverhead uint64 = 128
)

// Compute-unit cost schedule applied by the reference ledger.
const (
	ComputeUnitLimitDefault uint64 = 200_000
	ComputeUnitLimitMax     uint64 = 1_400_000

	BaseInstructionCost         uint64 = 150
	CreateAccountCost           uint64 = 3_000
	ReallocateCost              uint64 = 2_500
	ConfigureAccountCost        uint64 = 4_200
	DepositCost                 uint64 = 5_100
	ApplyPendingBalanceCost     uint64 = 8_800
	TransferCost                uint64 = 22_000
	WithdrawCost                uint64 = 9_400
	VerifyPubkeyValidityCost    uint64 = 2_600
	VerifyCiphertextValidity    uint64 = 6_400
	VerifyEqualityCost          uint64 = 4_500
	VerifyRangeCostPerBit       uint64 = 1_050
	MemoCostPerByte             uint64 = 10
	SignatureVerificationCost   uint64 = 720
	DefaultLamportsPerSignature uint64 = 5_000
)

// RentExemptMinimum returns the balance that keeps an account of the given
// data size exempt from rent collection.
func RentExemptMinimum(dataLen uint64) uint64 {
	return (AccountStorageOverhead + dataLen) * LamportsPerByteYear * ExemptionThresholdYrs
}
