package token

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/core/zkproof"
	"github.com/tos-network/ctoken/params"
)

// System program tags.
const (
	SystemCreateAccount uint8 = 0
	SystemTransfer      uint8 = 2
)

// SystemCreateAccountData funds and allocates a new account owned by Owner.
type SystemCreateAccountData struct {
	Lamports uint64
	Space    uint64
	Owner    common.Address
}

type SystemTransferData struct {
	Lamports uint64
}

// CreateAccount allocates space bytes at account, owned by owner and funded
// by payer. Both must sign.
func CreateAccount(payer, account, owner common.Address, lamports, space uint64) types.Instruction {
	return systemInstruction(SystemCreateAccount, &SystemCreateAccountData{Lamports: lamports, Space: space, Owner: owner},
		types.Writable(payer, true), types.Writable(account, true))
}

// TransferLamports moves native balance between system accounts.
func TransferLamports(from, to common.Address, lamports uint64) types.Instruction {
	return systemInstruction(SystemTransfer, &SystemTransferData{Lamports: lamports},
		types.Writable(from, true), types.Writable(to, false))
}

func systemInstruction(tag uint8, body interface{}, accounts ...types.AccountMeta) types.Instruction {
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		panic(err) // unreachable: fixed-size fields only
	}
	return types.Instruction{Program: params.SystemProgramID, Accounts: accounts, Data: append([]byte{tag}, enc...)}
}

// DecodeSystem parses a system instruction.
func DecodeSystem(data []byte) (uint8, interface{}, error) {
	if len(data) == 0 {
		return 0, nil, errEmptyData
	}
	var body interface{}
	switch data[0] {
	case SystemCreateAccount:
		body = new(SystemCreateAccountData)
	case SystemTransfer:
		body = new(SystemTransferData)
	default:
		return data[0], nil, fmt.Errorf("token: unknown system instruction %d", data[0])
	}
	if err := rlp.DecodeBytes(data[1:], body); err != nil {
		return data[0], nil, err
	}
	return data[0], body, nil
}

// Associated account program tags.
const (
	AssociatedCreate uint8 = iota
	AssociatedCreateIdempotent
)

// CreateAssociatedAccount creates the associated token account of owner for
// mint, funded by payer. It fails if the account already exists.
func CreateAssociatedAccount(payer, owner, mint common.Address) types.Instruction {
	return associatedInstruction(AssociatedCreate, payer, owner, mint)
}

// CreateAssociatedAccountIdempotent succeeds if the account already exists
// with the same owner and mint.
func CreateAssociatedAccountIdempotent(payer, owner, mint common.Address) types.Instruction {
	return associatedInstruction(AssociatedCreateIdempotent, payer, owner, mint)
}

func associatedInstruction(tag uint8, payer, owner, mint common.Address) types.Instruction {
	return types.Instruction{
		Program: params.AssociatedTokenProgram,
		Accounts: []types.AccountMeta{
			types.Writable(payer, true),
			types.Writable(DeriveAccountAddress(owner, mint), false),
			types.ReadOnly(owner, false),
			types.ReadOnly(mint, false),
		},
		Data: []byte{tag},
	}
}

// VerifyProof wraps proof data in a verification instruction. The data is
// the proof type byte followed by the proof's own encoding.
func VerifyProof(p zkproof.ProofData) types.Instruction {
	enc := p.Bytes()
	data := make([]byte, 0, 1+len(enc))
	data = append(data, byte(p.Type()))
	data = append(data, enc...)
	return types.Instruction{Program: params.ProofProgramID, Data: data}
}

// DecodeVerifyProof parses a verification instruction's data.
func DecodeVerifyProof(data []byte) (zkproof.ProofData, error) {
	if len(data) < 1 {
		return nil, zkproof.ErrInvalidProofData
	}
	return zkproof.Decode(zkproof.ProofType(data[0]), data[1:])
}

// Compute budget program tags.
const (
	BudgetSetComputeUnitLimit uint8 = 2
	BudgetSetComputeUnitPrice uint8 = 3
)

var errBadBudgetData = errors.New("token: invalid compute budget data")

func SetComputeUnitLimit(units uint32) types.Instruction {
	data := make([]byte, 5)
	data[0] = BudgetSetComputeUnitLimit
	binary.LittleEndian.PutUint32(data[1:], units)
	return types.Instruction{Program: params.ComputeBudgetProgramID, Data: data}
}

// SetComputeUnitPrice sets the priority fee in micro-units per compute unit.
func SetComputeUnitPrice(microUnits uint64) types.Instruction {
	data := make([]byte, 9)
	data[0] = BudgetSetComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microUnits)
	return types.Instruction{Program: params.ComputeBudgetProgramID, Data: data}
}

// DecodeComputeBudget returns the tag and value of a compute budget
// instruction.
func DecodeComputeBudget(data []byte) (uint8, uint64, error) {
	if len(data) == 0 {
		return 0, 0, errBadBudgetData
	}
	switch data[0] {
	case BudgetSetComputeUnitLimit:
		if len(data) != 5 {
			return 0, 0, errBadBudgetData
		}
		return data[0], uint64(binary.LittleEndian.Uint32(data[1:])), nil
	case BudgetSetComputeUnitPrice:
		if len(data) != 9 {
			return 0, 0, errBadBudgetData
		}
		return data[0], binary.LittleEndian.Uint64(data[1:]), nil
	default:
		return 0, 0, fmt.Errorf("%w: tag %d", errBadBudgetData, data[0])
	}
}

// Memo attaches a UTF-8 note, optionally countersigned by signers.
func Memo(text string, signers ...common.Address) types.Instruction {
	metas := make([]types.AccountMeta, len(signers))
	for i, s := range signers {
		metas[i] = types.ReadOnly(s, true)
	}
	return types.Instruction{Program: params.MemoProgramID, Accounts: metas, Data: []byte(text)}
}
