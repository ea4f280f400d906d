package zkproof

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/tos-network/ctoken/crypto/elgamal"
)

// ProofType tags the statement carried by a proof verification instruction.
type ProofType uint8

const (
	ProofTypePubkeyValidity ProofType = iota + 1
	ProofTypeCiphertextValidity
	ProofTypeCiphertextCommitmentEquality
	ProofTypeBatchedRange
)

const (
	PubkeyValidityProofSize     = 64
	CiphertextValidityProofSize = 160
	EqualityProofSize           = 192
	RangeProofBitSize           = 128

	pubkeyValidityDataSize     = elgamal.PublicKeySize + PubkeyValidityProofSize
	ciphertextValidityDataSize = 2*elgamal.PublicKeySize + elgamal.GroupedCiphertextSize + CiphertextValidityProofSize
	equalityDataSize           = elgamal.PublicKeySize + elgamal.CiphertextSize + elgamal.PointSize + EqualityProofSize
)

func (t ProofType) String() string {
	switch t {
	case ProofTypePubkeyValidity:
		return "pubkey-validity"
	case ProofTypeCiphertextValidity:
		return "ciphertext-validity"
	case ProofTypeCiphertextCommitmentEquality:
		return "ciphertext-commitment-equality"
	case ProofTypeBatchedRange:
		return "batched-range"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ProofData is a self-contained statement plus proof. Its context (the
// statement) is what the consuming instruction checks against ledger state.
type ProofData interface {
	Type() ProofType
	Verify() error
	Bytes() []byte
}

// Decode parses proof data of the given type.
func Decode(t ProofType, raw []byte) (ProofData, error) {
	switch t {
	case ProofTypePubkeyValidity:
		return DecodePubkeyValidityData(raw)
	case ProofTypeCiphertextValidity:
		return DecodeCiphertextValidityData(raw)
	case ProofTypeCiphertextCommitmentEquality:
		return DecodeEqualityData(raw)
	case ProofTypeBatchedRange:
		return DecodeBatchedRangeData(raw)
	default:
		return nil, ErrUnknownProofType
	}
}

// VerifyCost returns the compute units charged for verifying d.
func VerifyCost(d ProofData, perStatement map[ProofType]uint64, perBit uint64) uint64 {
	if r, ok := d.(*BatchedRangeData); ok {
		var bits uint64
		for _, n := range r.BitLengths {
			bits += uint64(n)
		}
		return bits * perBit
	}
	return perStatement[d.Type()]
}

func writeScalar(dst []byte, s *edwards25519.Scalar) {
	copy(dst, s.Bytes())
}

func writePoint(dst []byte, p *edwards25519.Point) {
	copy(dst, p.Bytes())
}

func pointsEqual(a, b *edwards25519.Point) bool {
	return a.Equal(b) == 1
}

// linear returns sum(scalars[i] * points[i]).
func linear(scalars []*edwards25519.Scalar, points []*edwards25519.Point) *edwards25519.Point {
	return new(edwards25519.Point).VarTimeMultiScalarMult(scalars, points)
}
