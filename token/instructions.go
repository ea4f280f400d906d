// Package token builds and parses the instructions and account layouts of
// the token program and of the helper programs (associated accounts, proof
// verification, compute budget, memo) that confidential bundles touch.
package token

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/crypto/aekey"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/params"
)

// Tag identifies a token program instruction.
type Tag uint8

const (
	TagInitializeMint Tag = iota + 1
	TagMintTo
	TagTransferChecked
	TagReallocate
	TagConfigureAccount
	TagApproveAccount
	TagDeposit
	TagWithdraw
	TagTransfer
	TagApplyPendingBalance
	TagEnableConfidentialCredits
	TagDisableConfidentialCredits
	TagEnableNonConfidentialCredits
	TagDisableNonConfidentialCredits
)

var tagNames = map[Tag]string{
	TagInitializeMint:                "InitializeMint",
	TagMintTo:                        "MintTo",
	TagTransferChecked:               "TransferChecked",
	TagReallocate:                    "Reallocate",
	TagConfigureAccount:              "ConfigureAccount",
	TagApproveAccount:                "ApproveAccount",
	TagDeposit:                       "Deposit",
	TagWithdraw:                      "Withdraw",
	TagTransfer:                      "Transfer",
	TagApplyPendingBalance:           "ApplyPendingBalance",
	TagEnableConfidentialCredits:     "EnableConfidentialCredits",
	TagDisableConfidentialCredits:    "DisableConfidentialCredits",
	TagEnableNonConfidentialCredits:  "EnableNonConfidentialCredits",
	TagDisableNonConfidentialCredits: "DisableNonConfidentialCredits",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

var errEmptyData = errors.New("token: empty instruction data")

// Instruction bodies. Proof offsets are relative instruction distances stored
// as two's-complement bytes.
type (
	InitializeMintData struct {
		Decimals              uint8
		MintAuthority         common.Address
		Confidential          bool
		AutoApprove           bool
		ConfidentialAuthority common.Address
	}
	MintToData struct {
		Amount uint64
	}
	TransferCheckedData struct {
		Amount   uint64
		Decimals uint8
	}
	ReallocateData struct {
		Extensions []uint16
	}
	ConfigureAccountData struct {
		ElGamalPubkey           [elgamal.PublicKeySize]byte
		DecryptableZeroBalance  [aekey.CiphertextSize]byte
		MaxPendingBalanceCredit uint64
		ProofOffset             uint8
	}
	DepositData struct {
		Amount   uint64
		Decimals uint8
	}
	WithdrawData struct {
		Amount                         uint64
		Decimals                       uint8
		NewDecryptableAvailableBalance [aekey.CiphertextSize]byte
		EqualityProofOffset            uint8
		RangeProofOffset               uint8
	}
	TransferData struct {
		NewSourceDecryptableAvailableBalance [aekey.CiphertextSize]byte
		EqualityProofOffset                  uint8
		CiphertextValidityLoOffset           uint8
		CiphertextValidityHiOffset           uint8
		RangeProofOffset                     uint8
	}
	ApplyPendingBalanceData struct {
		ExpectedPendingBalanceCreditCounter uint64
		ExpectedPendingBalanceVersion       uint64
		NewDecryptableAvailableBalance      [aekey.CiphertextSize]byte
	}
)

// EncodeData prefixes the RLP body with its tag.
func EncodeData(tag Tag, body interface{}) ([]byte, error) {
	out := []byte{byte(tag)}
	if body == nil {
		return out, nil
	}
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		return nil, err
	}
	return append(out, enc...), nil
}

// DecodeData splits tag and body and decodes the body into its typed form.
func DecodeData(data []byte) (Tag, interface{}, error) {
	if len(data) == 0 {
		return 0, nil, errEmptyData
	}
	tag := Tag(data[0])
	var body interface{}
	switch tag {
	case TagInitializeMint:
		body = new(InitializeMintData)
	case TagMintTo:
		body = new(MintToData)
	case TagTransferChecked:
		body = new(TransferCheckedData)
	case TagReallocate:
		body = new(ReallocateData)
	case TagConfigureAccount:
		body = new(ConfigureAccountData)
	case TagDeposit:
		body = new(DepositData)
	case TagWithdraw:
		body = new(WithdrawData)
	case TagTransfer:
		body = new(TransferData)
	case TagApplyPendingBalance:
		body = new(ApplyPendingBalanceData)
	case TagApproveAccount, TagEnableConfidentialCredits, TagDisableConfidentialCredits,
		TagEnableNonConfidentialCredits, TagDisableNonConfidentialCredits:
		if len(data) != 1 {
			return tag, nil, fmt.Errorf("token: %v takes no body", tag)
		}
		return tag, nil, nil
	default:
		return tag, nil, fmt.Errorf("token: unknown instruction tag %d", data[0])
	}
	if err := rlp.DecodeBytes(data[1:], body); err != nil {
		return tag, nil, fmt.Errorf("token: decode %v: %w", tag, err)
	}
	return tag, body, nil
}

func mustEncode(tag Tag, body interface{}) []byte {
	data, err := EncodeData(tag, body)
	if err != nil {
		panic(err) // unreachable: bodies contain only fixed-size fields
	}
	return data
}

func tokenInstruction(tag Tag, body interface{}, accounts ...types.AccountMeta) types.Instruction {
	return types.Instruction{
		Program:  params.TokenProgramID,
		Accounts: accounts,
		Data:     mustEncode(tag, body),
	}
}

// InitializeMint creates mint funded by payer. When confidential is set, the
// mint carries the confidential transfer extension.
func InitializeMint(mint, payer, authority common.Address, decimals uint8, confidential, autoApprove bool) types.Instruction {
	return tokenInstruction(TagInitializeMint, &InitializeMintData{
		Decimals:              decimals,
		MintAuthority:         authority,
		Confidential:          confidential,
		AutoApprove:           autoApprove,
		ConfidentialAuthority: authority,
	},
		types.Writable(mint, true),
		types.Writable(payer, true),
	)
}

func MintTo(mint, dest, authority common.Address, amount uint64) types.Instruction {
	return tokenInstruction(TagMintTo, &MintToData{Amount: amount},
		types.Writable(mint, false),
		types.Writable(dest, false),
		types.ReadOnly(authority, true),
	)
}

func TransferChecked(src, mint, dst, owner common.Address, amount uint64, decimals uint8) types.Instruction {
	return tokenInstruction(TagTransferChecked, &TransferCheckedData{Amount: amount, Decimals: decimals},
		types.Writable(src, false),
		types.ReadOnly(mint, false),
		types.Writable(dst, false),
		types.ReadOnly(owner, true),
	)
}

// Reallocate grows account so it can hold the given extensions. payer
// funds the extra rent.
func Reallocate(account, payer, owner common.Address, exts ...ExtensionType) types.Instruction {
	body := &ReallocateData{Extensions: make([]uint16, len(exts))}
	for i, e := range exts {
		body.Extensions[i] = uint16(e)
	}
	return tokenInstruction(TagReallocate, body,
		types.Writable(account, false),
		types.Writable(payer, true),
		types.ReadOnly(owner, true),
	)
}

func ApproveAccount(account, mint, authority common.Address) types.Instruction {
	return tokenInstruction(TagApproveAccount, nil,
		types.Writable(account, false),
		types.ReadOnly(mint, false),
		types.ReadOnly(authority, true),
	)
}

func Deposit(account, mint, owner common.Address, amount uint64, decimals uint8) types.Instruction {
	return tokenInstruction(TagDeposit, &DepositData{Amount: amount, Decimals: decimals},
		types.Writable(account, false),
		types.ReadOnly(mint, false),
		types.ReadOnly(owner, true),
	)
}

// ApplyPendingBalance folds the pending balance into the available one. The
// expected counter and version are those the owner decrypted against.
func ApplyPendingBalance(account, owner common.Address, expectedCounter, expectedVersion uint64, newDecryptable aekey.Ciphertext) types.Instruction {
	return tokenInstruction(TagApplyPendingBalance, &ApplyPendingBalanceData{
		ExpectedPendingBalanceCreditCounter: expectedCounter,
		ExpectedPendingBalanceVersion:       expectedVersion,
		NewDecryptableAvailableBalance:      newDecryptable,
	},
		types.Writable(account, false),
		types.ReadOnly(owner, true),
	)
}

func EnableConfidentialCredits(account, owner common.Address) types.Instruction {
	return tokenInstruction(TagEnableConfidentialCredits, nil, types.Writable(account, false), types.ReadOnly(owner, true))
}

func DisableConfidentialCredits(account, owner common.Address) types.Instruction {
	return tokenInstruction(TagDisableConfidentialCredits, nil, types.Writable(account, false), types.ReadOnly(owner, true))
}

func EnableNonConfidentialCredits(account, owner common.Address) types.Instruction {
	return tokenInstruction(TagEnableNonConfidentialCredits, nil, types.Writable(account, false), types.ReadOnly(owner, true))
}

func DisableNonConfidentialCredits(account, owner common.Address) types.Instruction {
	return tokenInstruction(TagDisableNonConfidentialCredits, nil, types.Writable(account, false), types.ReadOnly(owner, true))
}

// OffsetByte stores a relative instruction offset.
func OffsetByte(off int8) uint8 { return uint8(off) }

// Offset reads a relative instruction offset.
func Offset(b uint8) int8 { return int8(b) }
