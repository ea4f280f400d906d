package zkproof

import (
	"filippo.io/edwards25519"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/crypto/transcript"
)

const equalityDomain = "ciphertext-commitment-equality-proof"

// EqualityData proves that an ElGamal ciphertext under Pubkey and a Pedersen
// commitment hide the same amount. The prover uses the secret key rather than
// the ciphertext opening, so it works on ciphertexts produced homomorphically.
type EqualityData struct {
	Pubkey     elgamal.PublicKey
	Ciphertext elgamal.Ciphertext
	Commitment [elgamal.PointSize]byte
	Proof      [EqualityProofSize]byte
}

// NewEqualityData proves that ct (decryptable by kp) and the commitment
// amount*G + opening*H carry the same amount.
func NewEqualityData(kp *elgamal.Keypair, ct elgamal.Ciphertext, amount uint64, opening *edwards25519.Scalar) (*EqualityData, error) {
	if kp == nil {
		return nil, ErrProofGeneration
	}
	P := kp.PublicPoint()
	D, err := ct.HandlePoint()
	if err != nil {
		return nil, ErrProofGeneration
	}
	ys, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	yx, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	yr, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	G, H := elgamal.PedersenG(), elgamal.PedersenH()
	Y0 := new(edwards25519.Point).ScalarMult(ys, P)
	Y1 := linear([]*edwards25519.Scalar{yx, ys}, []*edwards25519.Point{G, D})
	Y2 := linear([]*edwards25519.Scalar{yx, yr}, []*edwards25519.Point{G, H})

	d := &EqualityData{
		Pubkey:     kp.PublicKey(),
		Ciphertext: ct,
		Commitment: elgamal.EncodePoint(elgamal.Commit(amount, opening)),
	}
	t := d.transcript()
	t.AppendPoint("Y_0", Y0)
	t.AppendPoint("Y_1", Y1)
	t.AppendPoint("Y_2", Y2)
	c := t.ChallengeScalar("c")

	x := elgamal.ScalarFromUint64(amount)
	zs := edwards25519.NewScalar().MultiplyAdd(c, kp.Secret(), ys)
	zx := edwards25519.NewScalar().MultiplyAdd(c, x, yx)
	zr := edwards25519.NewScalar().MultiplyAdd(c, opening, yr)

	writePoint(d.Proof[0:32], Y0)
	writePoint(d.Proof[32:64], Y1)
	writePoint(d.Proof[64:96], Y2)
	writeScalar(d.Proof[96:128], zs)
	writeScalar(d.Proof[128:160], zx)
	writeScalar(d.Proof[160:192], zr)
	return d, nil
}

func (d *EqualityData) transcript() *transcript.Transcript {
	t := transcript.New(equalityDomain)
	t.AppendMessage("pubkey", d.Pubkey[:])
	t.AppendMessage("ciphertext", d.Ciphertext.Bytes())
	t.AppendMessage("commitment", d.Commitment[:])
	return t
}

func (d *EqualityData) Type() ProofType { return ProofTypeCiphertextCommitmentEquality }

func (d *EqualityData) Verify() error {
	P, err := d.Pubkey.Point()
	if err != nil {
		return ErrProofVerification
	}
	Cct, err := d.Ciphertext.CommitmentPoint()
	if err != nil {
		return ErrProofVerification
	}
	Dct, err := d.Ciphertext.HandlePoint()
	if err != nil {
		return ErrProofVerification
	}
	Ccm, err := elgamal.DecodePoint(d.Commitment[:])
	if err != nil {
		return ErrProofVerification
	}
	var Y [3]*edwards25519.Point
	for i := range Y {
		if Y[i], err = elgamal.DecodePoint(d.Proof[i*32 : (i+1)*32]); err != nil {
			return ErrProofVerification
		}
	}
	var z [3]*edwards25519.Scalar
	for i := range z {
		if z[i], err = elgamal.DecodeScalar(d.Proof[96+i*32 : 96+(i+1)*32]); err != nil {
			return ErrProofVerification
		}
	}
	zs, zx, zr := z[0], z[1], z[2]

	t := d.transcript()
	t.AppendPoint("Y_0", Y[0])
	t.AppendPoint("Y_1", Y[1])
	t.AppendPoint("Y_2", Y[2])
	c := t.ChallengeScalar("c")

	G, H := elgamal.PedersenG(), elgamal.PedersenH()
	checks := []struct {
		lhs *edwards25519.Point
		rhs *edwards25519.Point
	}{
		// z_s*P == c*H + Y_0
		{new(edwards25519.Point).ScalarMult(zs, P), linear([]*edwards25519.Scalar{c}, []*edwards25519.Point{H})},
		// z_x*G + z_s*D == c*C_ct + Y_1
		{linear([]*edwards25519.Scalar{zx, zs}, []*edwards25519.Point{G, Dct}), linear([]*edwards25519.Scalar{c}, []*edwards25519.Point{Cct})},
		// z_x*G + z_r*H == c*C_cm + Y_2
		{linear([]*edwards25519.Scalar{zx, zr}, []*edwards25519.Point{G, H}), linear([]*edwards25519.Scalar{c}, []*edwards25519.Point{Ccm})},
	}
	for i, chk := range checks {
		chk.rhs.Add(chk.rhs, Y[i])
		if !pointsEqual(chk.lhs, chk.rhs) {
			return ErrProofVerification
		}
	}
	return nil
}

func (d *EqualityData) Bytes() []byte {
	out := make([]byte, 0, equalityDataSize)
	out = append(out, d.Pubkey[:]...)
	out = append(out, d.Ciphertext.Bytes()...)
	out = append(out, d.Commitment[:]...)
	return append(out, d.Proof[:]...)
}

// DecodeEqualityData parses pubkey || ciphertext || commitment || proof.
func DecodeEqualityData(raw []byte) (*EqualityData, error) {
	if len(raw) != equalityDataSize {
		return nil, ErrInvalidProofData
	}
	d := new(EqualityData)
	copy(d.Pubkey[:], raw[0:32])
	ct, err := elgamal.CiphertextFromBytes(raw[32:96])
	if err != nil {
		return nil, ErrInvalidProofData
	}
	d.Ciphertext = ct
	copy(d.Commitment[:], raw[96:128])
	copy(d.Proof[:], raw[128:])
	return d, nil
}
