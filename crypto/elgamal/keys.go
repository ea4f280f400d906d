package elgamal

import (
	"filippo.io/edwards25519"
)

const (
	PublicKeySize = PointSize
	SecretKeySize = ScalarSize
	// SeedSize is the length of uniform bytes reduced into a secret scalar.
	SeedSize = 64
)

// PublicKey is a compressed ElGamal public key, P = s^-1 * H.
type PublicKey [PublicKeySize]byte

// Keypair holds an ElGamal secret scalar and its public point.
type Keypair struct {
	secret *edwards25519.Scalar
	public *edwards25519.Point
}

// NewKeypair generates a random keypair.
func NewKeypair() (*Keypair, error) {
	s, err := RandomScalar()
	if err != nil {
		return nil, err
	}
	return keypairFromScalar(s), nil
}

// KeypairFromSeed reduces 64 uniform bytes into a secret scalar.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != SeedSize {
		return nil, ErrInvalidLength
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(seed)
	if err != nil {
		return nil, err
	}
	if s.Equal(edwards25519.NewScalar()) == 1 {
		return nil, ErrInvalidScalar
	}
	return keypairFromScalar(s), nil
}

// KeypairFromSecretBytes restores a keypair from a canonical secret scalar.
func KeypairFromSecretBytes(raw []byte) (*Keypair, error) {
	s, err := DecodeScalar(raw)
	if err != nil {
		return nil, err
	}
	if s.Equal(edwards25519.NewScalar()) == 1 {
		return nil, ErrInvalidScalar
	}
	return keypairFromScalar(s), nil
}

func keypairFromScalar(s *edwards25519.Scalar) *Keypair {
	inv := edwards25519.NewScalar().Invert(s)
	return &Keypair{
		secret: s,
		public: new(edwards25519.Point).ScalarMult(inv, PedersenH()),
	}
}

func (k *Keypair) PublicKey() PublicKey {
	return PublicKey(EncodePoint(k.public))
}

// SecretBytes returns the canonical secret scalar encoding.
func (k *Keypair) SecretBytes() [SecretKeySize]byte {
	var out [SecretKeySize]byte
	copy(out[:], k.secret.Bytes())
	return out
}

// Secret returns a copy of the secret scalar for proof construction.
func (k *Keypair) Secret() *edwards25519.Scalar {
	return edwards25519.NewScalar().Set(k.secret)
}

// PublicPoint returns a copy of the public point.
func (k *Keypair) PublicPoint() *edwards25519.Point {
	return new(edwards25519.Point).Set(k.public)
}

// Equal reports whether both keypairs hold the same secret.
func (k *Keypair) Equal(other *Keypair) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.secret.Equal(other.secret) == 1
}

// Point decompresses the key, rejecting identity and small-order encodings.
func (pk PublicKey) Point() (*edwards25519.Point, error) {
	p, err := DecodePoint(pk[:])
	if err != nil {
		return nil, err
	}
	if isIdentity(p) {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

func (pk PublicKey) Bytes() []byte { return pk[:] }

func (pk PublicKey) IsZero() bool { return pk == PublicKey{} }

// PublicKeyFromBytes copies raw into a PublicKey after length checking.
func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	var pk PublicKey
	if len(raw) != PublicKeySize {
		return pk, ErrInvalidLength
	}
	copy(pk[:], raw)
	return pk, nil
}
