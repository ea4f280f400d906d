package zkproof

import (
	"filippo.io/edwards25519"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/crypto/transcript"
)

const ciphertextValidityDomain = "grouped-ciphertext-validity-proof"

// CiphertextValidityData proves that a grouped ciphertext (C, D1, D2) is a
// well-formed encryption of one amount under two keys: C = x*G + r*H,
// D1 = r*P1 and D2 = r*P2 for a single (x, r).
type CiphertextValidityData struct {
	Pubkeys    [2]elgamal.PublicKey
	Ciphertext elgamal.GroupedCiphertext
	Proof      [CiphertextValidityProofSize]byte
}

// NewCiphertextValidityData proves validity of ct, built with amount and
// opening for first and second.
func NewCiphertextValidityData(first, second elgamal.PublicKey, ct elgamal.GroupedCiphertext, amount uint64, opening *edwards25519.Scalar) (*CiphertextValidityData, error) {
	P1, err := first.Point()
	if err != nil {
		return nil, ErrProofGeneration
	}
	P2, err := second.Point()
	if err != nil {
		return nil, ErrProofGeneration
	}
	yr, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	yx, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	Y0 := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(yr, elgamal.PedersenH(), yx)
	Y1 := new(edwards25519.Point).ScalarMult(yr, P1)
	Y2 := new(edwards25519.Point).ScalarMult(yr, P2)

	d := &CiphertextValidityData{Pubkeys: [2]elgamal.PublicKey{first, second}, Ciphertext: ct}
	t := d.transcript()
	t.AppendPoint("Y_0", Y0)
	t.AppendPoint("Y_1", Y1)
	t.AppendPoint("Y_2", Y2)
	c := t.ChallengeScalar("c")

	zr := edwards25519.NewScalar().MultiplyAdd(c, opening, yr)
	zx := edwards25519.NewScalar().MultiplyAdd(c, elgamal.ScalarFromUint64(amount), yx)

	writePoint(d.Proof[0:32], Y0)
	writePoint(d.Proof[32:64], Y1)
	writePoint(d.Proof[64:96], Y2)
	writeScalar(d.Proof[96:128], zr)
	writeScalar(d.Proof[128:160], zx)
	return d, nil
}

func (d *CiphertextValidityData) transcript() *transcript.Transcript {
	t := transcript.New(ciphertextValidityDomain)
	t.AppendMessage("first-pubkey", d.Pubkeys[0][:])
	t.AppendMessage("second-pubkey", d.Pubkeys[1][:])
	t.AppendMessage("grouped-ciphertext", d.Ciphertext.Bytes())
	return t
}

func (d *CiphertextValidityData) Type() ProofType { return ProofTypeCiphertextValidity }

func (d *CiphertextValidityData) Verify() error {
	P1, err := d.Pubkeys[0].Point()
	if err != nil {
		return ErrProofVerification
	}
	P2, err := d.Pubkeys[1].Point()
	if err != nil {
		return ErrProofVerification
	}
	C, err := elgamal.DecodePoint(d.Ciphertext.Commitment[:])
	if err != nil {
		return ErrProofVerification
	}
	D1, err := elgamal.DecodePoint(d.Ciphertext.Handles[0][:])
	if err != nil {
		return ErrProofVerification
	}
	D2, err := elgamal.DecodePoint(d.Ciphertext.Handles[1][:])
	if err != nil {
		return ErrProofVerification
	}
	var Y [3]*edwards25519.Point
	for i := range Y {
		if Y[i], err = elgamal.DecodePoint(d.Proof[i*32 : (i+1)*32]); err != nil {
			return ErrProofVerification
		}
	}
	zr, err := elgamal.DecodeScalar(d.Proof[96:128])
	if err != nil {
		return ErrProofVerification
	}
	zx, err := elgamal.DecodeScalar(d.Proof[128:160])
	if err != nil {
		return ErrProofVerification
	}

	t := d.transcript()
	t.AppendPoint("Y_0", Y[0])
	t.AppendPoint("Y_1", Y[1])
	t.AppendPoint("Y_2", Y[2])
	c := t.ChallengeScalar("c")

	// z_x*G + z_r*H == c*C + Y_0
	lhs := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(zr, elgamal.PedersenH(), zx)
	rhs := new(edwards25519.Point).ScalarMult(c, C)
	rhs.Add(rhs, Y[0])
	if !pointsEqual(lhs, rhs) {
		return ErrProofVerification
	}
	// z_r*P_i == c*D_i + Y_i
	for i, pair := range [][2]*edwards25519.Point{{P1, D1}, {P2, D2}} {
		lhs := new(edwards25519.Point).ScalarMult(zr, pair[0])
		rhs := new(edwards25519.Point).ScalarMult(c, pair[1])
		rhs.Add(rhs, Y[i+1])
		if !pointsEqual(lhs, rhs) {
			return ErrProofVerification
		}
	}
	return nil
}

func (d *CiphertextValidityData) Bytes() []byte {
	out := make([]byte, 0, ciphertextValidityDataSize)
	out = append(out, d.Pubkeys[0][:]...)
	out = append(out, d.Pubkeys[1][:]...)
	out = append(out, d.Ciphertext.Bytes()...)
	return append(out, d.Proof[:]...)
}

// DecodeCiphertextValidityData parses pubkey1 || pubkey2 || grouped ciphertext || proof.
func DecodeCiphertextValidityData(raw []byte) (*CiphertextValidityData, error) {
	if len(raw) != ciphertextValidityDataSize {
		return nil, ErrInvalidProofData
	}
	d := new(CiphertextValidityData)
	copy(d.Pubkeys[0][:], raw[0:32])
	copy(d.Pubkeys[1][:], raw[32:64])
	ct, err := elgamal.GroupedCiphertextFromBytes(raw[64 : 64+elgamal.GroupedCiphertextSize])
	if err != nil {
		return nil, ErrInvalidProofData
	}
	d.Ciphertext = ct
	copy(d.Proof[:], raw[64+elgamal.GroupedCiphertextSize:])
	return d, nil
}
