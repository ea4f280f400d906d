package zkproof

import (
	"filippo.io/edwards25519"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/crypto/transcript"
)

const pubkeyValidityDomain = "pubkey-validity-proof"

// PubkeyValidityData proves knowledge of the secret s behind an ElGamal public
// key P, i.e. s*P = H. The account's key is accepted only with this proof.
type PubkeyValidityData struct {
	Pubkey elgamal.PublicKey
	Proof  [PubkeyValidityProofSize]byte
}

// NewPubkeyValidityData proves that kp's public key is well formed.
func NewPubkeyValidityData(kp *elgamal.Keypair) (*PubkeyValidityData, error) {
	if kp == nil {
		return nil, ErrProofGeneration
	}
	pub := kp.PublicKey()
	P, err := pub.Point()
	if err != nil {
		return nil, ErrProofGeneration
	}
	y, err := elgamal.RandomScalar()
	if err != nil {
		return nil, ErrProofGeneration
	}
	Y := new(edwards25519.Point).ScalarMult(y, P)

	t := pubkeyValidityTranscript(pub)
	t.AppendPoint("Y", Y)
	c := t.ChallengeScalar("c")

	z := edwards25519.NewScalar().MultiplyAdd(c, kp.Secret(), y)

	out := &PubkeyValidityData{Pubkey: pub}
	writePoint(out.Proof[:32], Y)
	writeScalar(out.Proof[32:], z)
	return out, nil
}

func pubkeyValidityTranscript(pub elgamal.PublicKey) *transcript.Transcript {
	t := transcript.New(pubkeyValidityDomain)
	t.AppendMessage("pubkey", pub[:])
	return t
}

func (d *PubkeyValidityData) Type() ProofType { return ProofTypePubkeyValidity }

// Verify checks z*P == c*H + Y.
func (d *PubkeyValidityData) Verify() error {
	P, err := d.Pubkey.Point()
	if err != nil {
		return ErrProofVerification
	}
	Y, err := elgamal.DecodePoint(d.Proof[:32])
	if err != nil {
		return ErrProofVerification
	}
	z, err := elgamal.DecodeScalar(d.Proof[32:])
	if err != nil {
		return ErrProofVerification
	}
	t := pubkeyValidityTranscript(d.Pubkey)
	t.AppendPoint("Y", Y)
	c := t.ChallengeScalar("c")

	lhs := new(edwards25519.Point).ScalarMult(z, P)
	rhs := linear([]*edwards25519.Scalar{c}, []*edwards25519.Point{elgamal.PedersenH()})
	rhs.Add(rhs, Y)
	if !pointsEqual(lhs, rhs) {
		return ErrProofVerification
	}
	return nil
}

func (d *PubkeyValidityData) Bytes() []byte {
	out := make([]byte, 0, pubkeyValidityDataSize)
	out = append(out, d.Pubkey[:]...)
	return append(out, d.Proof[:]...)
}

// DecodePubkeyValidityData parses pubkey || proof.
func DecodePubkeyValidityData(raw []byte) (*PubkeyValidityData, error) {
	if len(raw) != pubkeyValidityDataSize {
		return nil, ErrInvalidProofData
	}
	d := new(PubkeyValidityData)
	copy(d.Pubkey[:], raw[:elgamal.PublicKeySize])
	copy(d.Proof[:], raw[elgamal.PublicKeySize:])
	return d, nil
}
