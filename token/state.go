package token

import (
	"encoding/binary"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/crypto/aekey"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/params"
)

// AccountState is the base account lifecycle flag.
type AccountState uint8

const (
	StateUninitialized AccountState = iota
	StateInitialized
	StateFrozen
)

// AccountType tags the byte that follows the base layout once an account
// carries extensions.
type AccountType uint8

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeMint
	AccountTypeAccount
)

// ExtensionType tags a TLV entry in the extension area.
type ExtensionType uint16

const (
	ExtensionUninitialized ExtensionType = iota
	ExtensionConfidentialTransferMint
	ExtensionConfidentialTransferAccount
)

// Len returns the fixed value length of an extension.
func (e ExtensionType) Len() int {
	switch e {
	case ExtensionConfidentialTransferMint:
		return params.ConfidentialTransferMintLen
	case ExtensionConfidentialTransferAccount:
		return params.ConfidentialTransferAccountLen
	default:
		return 0
	}
}

// Account is the base token account (165 bytes).
type Account struct {
	Mint            common.Address
	Owner           common.Address
	Amount          uint64
	Delegate        *common.Address
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *common.Address
}

// Pack encodes the base layout:
//
//	[0:32]    mint
//	[32:64]   owner
//	[64:72]   amount
//	[72:108]  delegate option
//	[108]     state
//	[109:121] is_native option
//	[121:129] delegated amount
//	[129:165] close authority option
func (a *Account) Pack() []byte {
	out := make([]byte, params.BaseAccountLen)
	copy(out[0:32], a.Mint[:])
	copy(out[32:64], a.Owner[:])
	binary.LittleEndian.PutUint64(out[64:72], a.Amount)
	putAddressOption(out[72:108], a.Delegate)
	out[108] = byte(a.State)
	if a.IsNative != nil {
		binary.LittleEndian.PutUint32(out[109:113], 1)
		binary.LittleEndian.PutUint64(out[113:121], *a.IsNative)
	}
	binary.LittleEndian.PutUint64(out[121:129], a.DelegatedAmount)
	putAddressOption(out[129:165], a.CloseAuthority)
	return out
}

// UnpackAccount decodes the base layout from the head of data.
func UnpackAccount(data []byte) (*Account, error) {
	if len(data) < params.BaseAccountLen {
		return nil, ErrInvalidAccountData
	}
	if len(data) > params.BaseAccountLen && AccountType(data[params.BaseAccountLen]) != AccountTypeAccount {
		return nil, ErrInvalidAccountData
	}
	a := &Account{
		Mint:            common.BytesToAddress(data[0:32]),
		Owner:           common.BytesToAddress(data[32:64]),
		Amount:          binary.LittleEndian.Uint64(data[64:72]),
		Delegate:        getAddressOption(data[72:108]),
		State:           AccountState(data[108]),
		DelegatedAmount: binary.LittleEndian.Uint64(data[121:129]),
		CloseAuthority:  getAddressOption(data[129:165]),
	}
	if binary.LittleEndian.Uint32(data[109:113]) == 1 {
		v := binary.LittleEndian.Uint64(data[113:121])
		a.IsNative = &v
	}
	if a.State == StateUninitialized {
		return nil, ErrUninitializedAccount
	}
	return a, nil
}

// Mint is the base mint layout (82 bytes).
type Mint struct {
	MintAuthority   *common.Address
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *common.Address
}

func (m *Mint) Pack() []byte {
	out := make([]byte, params.MintLen)
	putAddressOption(out[0:36], m.MintAuthority)
	binary.LittleEndian.PutUint64(out[36:44], m.Supply)
	out[44] = m.Decimals
	if m.IsInitialized {
		out[45] = 1
	}
	putAddressOption(out[46:82], m.FreezeAuthority)
	return out
}

func UnpackMint(data []byte) (*Mint, error) {
	if len(data) < params.MintLen {
		return nil, ErrInvalidAccountData
	}
	m := &Mint{
		MintAuthority:   getAddressOption(data[0:36]),
		Supply:          binary.LittleEndian.Uint64(data[36:44]),
		Decimals:        data[44],
		IsInitialized:   data[45] == 1,
		FreezeAuthority: getAddressOption(data[46:82]),
	}
	if !m.IsInitialized {
		return nil, ErrUninitializedAccount
	}
	return m, nil
}

// ConfidentialMint is the mint-side confidential transfer extension.
type ConfidentialMint struct {
	Authority              common.Address
	AutoApproveNewAccounts bool
	AuditorPubkey          elgamal.PublicKey
}

func (m *ConfidentialMint) Pack() []byte {
	out := make([]byte, params.ConfidentialTransferMintLen)
	copy(out[0:32], m.Authority[:])
	out[32] = boolByte(m.AutoApproveNewAccounts)
	copy(out[33:65], m.AuditorPubkey[:])
	return out
}

func UnpackConfidentialMint(raw []byte) (*ConfidentialMint, error) {
	if len(raw) != params.ConfidentialTransferMintLen {
		return nil, ErrInvalidAccountData
	}
	m := &ConfidentialMint{
		Authority:              common.BytesToAddress(raw[0:32]),
		AutoApproveNewAccounts: raw[32] == 1,
	}
	copy(m.AuditorPubkey[:], raw[33:65])
	return m, nil
}

// ConfidentialAccount is the account-side confidential transfer extension.
type ConfidentialAccount struct {
	Approved                     bool
	ElGamalPubkey                elgamal.PublicKey
	PendingBalanceLo             elgamal.Ciphertext
	PendingBalanceHi             elgamal.Ciphertext
	AvailableBalance             elgamal.Ciphertext
	DecryptableAvailableBalance  aekey.Ciphertext
	AllowConfidentialCredits     bool
	AllowNonConfidentialCredits  bool
	PendingBalanceCreditCounter  uint64
	MaxPendingBalanceCredits     uint64
	ExpectedPendingCreditCounter uint64
	ActualPendingCreditCounter   uint64

	// PendingBalanceVersion increases on every pending credit and apply.
	// It never repeats, unlike the credit counter.
	PendingBalanceVersion uint64
}

// Pack encodes the 303-byte extension value.
//
//	[0]       approved
//	[1:33]    elgamal pubkey
//	[33:97]   pending balance lo
//	[97:161]  pending balance hi
//	[161:225] available balance
//	[225:261] decryptable available balance
//	[261]     allow confidential credits
//	[262]     allow non-confidential credits
//	[263:271] pending balance credit counter
//	[271:279] maximum pending balance credit counter
//	[279:287] expected pending balance credit counter
//	[287:295] actual pending balance credit counter
//	[295:303] pending balance version
func (c *ConfidentialAccount) Pack() []byte {
	out := make([]byte, params.ConfidentialTransferAccountLen)
	out[0] = boolByte(c.Approved)
	copy(out[1:33], c.ElGamalPubkey[:])
	copy(out[33:97], c.PendingBalanceLo.Bytes())
	copy(out[97:161], c.PendingBalanceHi.Bytes())
	copy(out[161:225], c.AvailableBalance.Bytes())
	copy(out[225:261], c.DecryptableAvailableBalance[:])
	out[261] = boolByte(c.AllowConfidentialCredits)
	out[262] = boolByte(c.AllowNonConfidentialCredits)
	binary.LittleEndian.PutUint64(out[263:271], c.PendingBalanceCreditCounter)
	binary.LittleEndian.PutUint64(out[271:279], c.MaxPendingBalanceCredits)
	binary.LittleEndian.PutUint64(out[279:287], c.ExpectedPendingCreditCounter)
	binary.LittleEndian.PutUint64(out[287:295], c.ActualPendingCreditCounter)
	binary.LittleEndian.PutUint64(out[295:303], c.PendingBalanceVersion)
	return out
}

func UnpackConfidentialAccount(raw []byte) (*ConfidentialAccount, error) {
	if len(raw) != params.ConfidentialTransferAccountLen {
		return nil, ErrInvalidAccountData
	}
	c := &ConfidentialAccount{
		Approved:                     raw[0] == 1,
		AllowConfidentialCredits:     raw[261] == 1,
		AllowNonConfidentialCredits:  raw[262] == 1,
		PendingBalanceCreditCounter:  binary.LittleEndian.Uint64(raw[263:271]),
		MaxPendingBalanceCredits:     binary.LittleEndian.Uint64(raw[271:279]),
		ExpectedPendingCreditCounter: binary.LittleEndian.Uint64(raw[279:287]),
		ActualPendingCreditCounter:   binary.LittleEndian.Uint64(raw[287:295]),
		PendingBalanceVersion:        binary.LittleEndian.Uint64(raw[295:303]),
	}
	copy(c.ElGamalPubkey[:], raw[1:33])
	c.PendingBalanceLo, _ = elgamal.CiphertextFromBytes(raw[33:97])
	c.PendingBalanceHi, _ = elgamal.CiphertextFromBytes(raw[97:161])
	c.AvailableBalance, _ = elgamal.CiphertextFromBytes(raw[161:225])
	copy(c.DecryptableAvailableBalance[:], raw[225:261])
	return c, nil
}

const extensionAreaStart = params.BaseAccountLen + params.AccountTypeLen

// FindExtension walks the TLV area and returns the value of ext. The second
// result reports whether an uninitialized slot with enough room exists
// where ext could be written instead.
func FindExtension(data []byte, ext ExtensionType) (value []byte, offset int, free bool) {
	off := extensionAreaStart
	for off+params.ExtensionHeaderLen <= len(data) {
		typ := ExtensionType(binary.LittleEndian.Uint16(data[off : off+2]))
		n := int(binary.LittleEndian.Uint16(data[off+2 : off+4]))
		if typ == ExtensionUninitialized {
			return nil, off, len(data)-off-params.ExtensionHeaderLen >= ext.Len()
		}
		start := off + params.ExtensionHeaderLen
		if start+n > len(data) {
			return nil, 0, false
		}
		if typ == ext {
			return data[start : start+n], start, false
		}
		off = start + n
	}
	return nil, 0, false
}

// InitExtension writes a new TLV entry for ext with value into data. data
// must already have room (see Reallocate).
func InitExtension(data []byte, accountType AccountType, ext ExtensionType, value []byte) error {
	if len(data) <= params.BaseAccountLen {
		return ErrInvalidAccountSize
	}
	if existing, _, _ := FindExtension(data, ext); existing != nil {
		return ErrExtensionAlreadyInitialized
	}
	_, off, free := FindExtension(data, ext)
	if !free {
		return ErrInvalidAccountSize
	}
	data[params.BaseAccountLen] = byte(accountType)
	binary.LittleEndian.PutUint16(data[off:off+2], uint16(ext))
	binary.LittleEndian.PutUint16(data[off+2:off+4], uint16(len(value)))
	copy(data[off+params.ExtensionHeaderLen:], value)
	return nil
}

// GetConfidentialAccount extracts the confidential extension of an account.
func GetConfidentialAccount(data []byte) (*ConfidentialAccount, error) {
	raw, _, _ := FindExtension(data, ExtensionConfidentialTransferAccount)
	if raw == nil {
		return nil, ErrExtensionNotFound
	}
	return UnpackConfidentialAccount(raw)
}

// SetConfidentialAccount overwrites an existing confidential extension.
func SetConfidentialAccount(data []byte, c *ConfidentialAccount) error {
	raw, _, _ := FindExtension(data, ExtensionConfidentialTransferAccount)
	if raw == nil {
		return ErrExtensionNotFound
	}
	copy(raw, c.Pack())
	return nil
}

// GetConfidentialMint extracts the confidential extension of a mint.
func GetConfidentialMint(data []byte) (*ConfidentialMint, error) {
	raw, _, _ := FindExtension(data, ExtensionConfidentialTransferMint)
	if raw == nil {
		return nil, ErrExtensionNotFound
	}
	return UnpackConfidentialMint(raw)
}

// PackMintWithExtension lays out a mint padded to the account length so the
// type byte and extensions sit at the same offsets as on token accounts.
func PackMintWithExtension(m *Mint, ext *ConfidentialMint) []byte {
	if ext == nil {
		return m.Pack()
	}
	out := make([]byte, params.ConfidentialMintLen)
	copy(out, m.Pack())
	if err := InitExtension(out, AccountTypeMint, ExtensionConfidentialTransferMint, ext.Pack()); err != nil {
		panic(err) // unreachable: buffer is sized for the extension
	}
	return out
}

func putAddressOption(dst []byte, addr *common.Address) {
	if addr == nil {
		return
	}
	binary.LittleEndian.PutUint32(dst[0:4], 1)
	copy(dst[4:36], addr[:])
}

func getAddressOption(src []byte) *common.Address {
	if binary.LittleEndian.Uint32(src[0:4]) != 1 {
		return nil
	}
	a := common.BytesToAddress(src[4:36])
	return &a
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
