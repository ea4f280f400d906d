package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/tos-network/ctoken/common"
	"lukechampine.com/blake3"
)

var (
	ErrMissingSignature = errors.New("types: missing signature")
	ErrBadSignature     = errors.New("types: bad signature")
	ErrEmptyBundle      = errors.New("types: empty bundle")

	// ErrBundleTooLarge is shared by the assembler and ledgers so callers
	// can match either side's rejection.
	ErrBundleTooLarge = errors.New("types: bundle too large")
)

// BundleSignature pairs a signer with its signature over the bundle message.
type BundleSignature struct {
	Signer    common.Address
	Signature common.Signature
}

// Bundle is an ordered list of instructions that commits or fails as a unit.
// The checkpoint pins it to a recent ledger state and expires it afterwards.
type Bundle struct {
	FeePayer     common.Address
	Checkpoint   common.Hash
	Instructions []Instruction
	Signatures   []BundleSignature
}

// MessageSigner signs bundle messages. Wallets satisfy it.
type MessageSigner interface {
	PublicKey() common.Address
	SignMessage(msg []byte) (common.Signature, error)
}

// VerifyFunc checks a detached signature.
type VerifyFunc func(signer common.Address, msg []byte, sig common.Signature) bool

type bundleMessage struct {
	FeePayer     common.Address
	Checkpoint   common.Hash
	Instructions []Instruction
}

// Message returns the signed bytes: the RLP encoding of everything except
// the signatures.
func (b *Bundle) Message() ([]byte, error) {
	return rlp.EncodeToBytes(&bundleMessage{
		FeePayer:     b.FeePayer,
		Checkpoint:   b.Checkpoint,
		Instructions: b.Instructions,
	})
}

// MessageHash is the blake3 digest of Message.
func (b *Bundle) MessageHash() (common.Hash, error) {
	msg, err := b.Message()
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(blake3.Sum256(msg)), nil
}

// RequiredSigners returns the fee payer followed by every other signer
// account, in order of first appearance.
func (b *Bundle) RequiredSigners() []common.Address {
	seen := map[common.Address]bool{b.FeePayer: true}
	out := []common.Address{b.FeePayer}
	for _, ix := range b.Instructions {
		for _, meta := range ix.Accounts {
			if meta.Signer && !seen[meta.Address] {
				seen[meta.Address] = true
				out = append(out, meta.Address)
			}
		}
	}
	return out
}

// Sign attaches signatures from signers. Signers that are not required are
// ignored; a required signer with no matching key is an error.
func (b *Bundle) Sign(signers ...MessageSigner) error {
	if len(b.Instructions) == 0 {
		return ErrEmptyBundle
	}
	msg, err := b.Message()
	if err != nil {
		return err
	}
	byAddr := make(map[common.Address]MessageSigner, len(signers))
	for _, s := range signers {
		if s != nil {
			byAddr[s.PublicKey()] = s
		}
	}
	required := b.RequiredSigners()
	sigs := make([]BundleSignature, 0, len(required))
	for _, addr := range required {
		s, ok := byAddr[addr]
		if !ok {
			return fmt.Errorf("%w: %v", ErrMissingSignature, addr)
		}
		sig, err := s.SignMessage(msg)
		if err != nil {
			return err
		}
		sigs = append(sigs, BundleSignature{Signer: addr, Signature: sig})
	}
	b.Signatures = sigs
	return nil
}

// VerifySignatures checks that every required signer signed the message.
func (b *Bundle) VerifySignatures(verify VerifyFunc) error {
	msg, err := b.Message()
	if err != nil {
		return err
	}
	have := make(map[common.Address]common.Signature, len(b.Signatures))
	for _, s := range b.Signatures {
		have[s.Signer] = s.Signature
	}
	for _, addr := range b.RequiredSigners() {
		sig, ok := have[addr]
		if !ok {
			return fmt.Errorf("%w: %v", ErrMissingSignature, addr)
		}
		if !verify(addr, msg, sig) {
			return fmt.Errorf("%w: %v", ErrBadSignature, addr)
		}
	}
	return nil
}

// ID is the fee payer's signature, which identifies a signed bundle.
func (b *Bundle) ID() common.Signature {
	if len(b.Signatures) == 0 {
		return common.Signature{}
	}
	return b.Signatures[0].Signature
}

// EncodeBundle returns the wire encoding of b.
func EncodeBundle(b *Bundle) ([]byte, error) {
	return rlp.EncodeToBytes(b)
}

// DecodeBundle parses the wire encoding of a bundle.
func DecodeBundle(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := rlp.DecodeBytes(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Size returns the encoded size of b. Unsigned bundles are measured as if
// every required signer had signed, so the result does not change after
// signing.
func (b *Bundle) Size() (int, error) {
	sized := *b
	if len(sized.Signatures) == 0 {
		for _, addr := range b.RequiredSigners() {
			sized.Signatures = append(sized.Signatures, BundleSignature{Signer: addr, Signature: filledSignature})
		}
	}
	raw, err := EncodeBundle(&sized)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

var filledSignature = func() common.Signature {
	var s common.Signature
	for i := range s {
		s[i] = 0xff
	}
	return s
}()
