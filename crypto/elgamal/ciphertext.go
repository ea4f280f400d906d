package elgamal

import (
	"filippo.io/edwards25519"
)

const (
	CiphertextSize        = 2 * PointSize
	GroupedCiphertextSize = 3 * PointSize
)

// Ciphertext is a twisted ElGamal ciphertext: a Pedersen commitment
// C = a*G + r*H and a decrypt handle D = r*P.
type Ciphertext struct {
	Commitment [PointSize]byte
	Handle     [PointSize]byte
}

// ZeroCiphertext encrypts zero with a zero opening. It decrypts to zero under
// every key, which makes it the neutral element for Add.
func ZeroCiphertext() Ciphertext {
	id := EncodePoint(edwards25519.NewIdentityPoint())
	return Ciphertext{Commitment: id, Handle: id}
}

// Encrypt encrypts amount under pub with a fresh opening, returning both.
func Encrypt(pub PublicKey, amount uint64) (Ciphertext, *edwards25519.Scalar, error) {
	r, err := RandomScalar()
	if err != nil {
		return Ciphertext{}, nil, err
	}
	ct, err := EncryptWithOpening(pub, amount, r)
	if err != nil {
		return Ciphertext{}, nil, err
	}
	return ct, r, nil
}

// EncryptWithOpening encrypts amount under pub with a caller-chosen opening.
func EncryptWithOpening(pub PublicKey, amount uint64, opening *edwards25519.Scalar) (Ciphertext, error) {
	P, err := pub.Point()
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{
		Commitment: EncodePoint(Commit(amount, opening)),
		Handle:     EncodePoint(new(edwards25519.Point).ScalarMult(opening, P)),
	}, nil
}

// DecryptHandle computes the handle that lets pub decrypt a commitment made
// with opening.
func DecryptHandle(pub PublicKey, opening *edwards25519.Scalar) ([PointSize]byte, error) {
	P, err := pub.Point()
	if err != nil {
		return [PointSize]byte{}, err
	}
	return EncodePoint(new(edwards25519.Point).ScalarMult(opening, P)), nil
}

// CiphertextFromBytes parses a 64-byte commitment||handle encoding.
func CiphertextFromBytes(raw []byte) (Ciphertext, error) {
	var ct Ciphertext
	if len(raw) != CiphertextSize {
		return ct, ErrInvalidLength
	}
	copy(ct.Commitment[:], raw[:PointSize])
	copy(ct.Handle[:], raw[PointSize:])
	return ct, nil
}

func (ct Ciphertext) Bytes() []byte {
	out := make([]byte, 0, CiphertextSize)
	out = append(out, ct.Commitment[:]...)
	return append(out, ct.Handle[:]...)
}

func (ct Ciphertext) points() (*edwards25519.Point, *edwards25519.Point, error) {
	c, err := DecodePoint(ct.Commitment[:])
	if err != nil {
		return nil, nil, err
	}
	d, err := DecodePoint(ct.Handle[:])
	if err != nil {
		return nil, nil, err
	}
	return c, d, nil
}

// Validate checks that both halves decode to prime-order points.
func (ct Ciphertext) Validate() error {
	_, _, err := ct.points()
	return err
}

// CommitmentPoint decodes the commitment half.
func (ct Ciphertext) CommitmentPoint() (*edwards25519.Point, error) {
	return DecodePoint(ct.Commitment[:])
}

// HandlePoint decodes the handle half.
func (ct Ciphertext) HandlePoint() (*edwards25519.Point, error) {
	return DecodePoint(ct.Handle[:])
}

// Add returns the encryption of the sum of both plaintexts.
func (ct Ciphertext) Add(other Ciphertext) (Ciphertext, error) {
	c1, d1, err := ct.points()
	if err != nil {
		return Ciphertext{}, err
	}
	c2, d2, err := other.points()
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{
		Commitment: EncodePoint(c1.Add(c1, c2)),
		Handle:     EncodePoint(d1.Add(d1, d2)),
	}, nil
}

// Sub returns the encryption of the difference of both plaintexts.
func (ct Ciphertext) Sub(other Ciphertext) (Ciphertext, error) {
	c1, d1, err := ct.points()
	if err != nil {
		return Ciphertext{}, err
	}
	c2, d2, err := other.points()
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{
		Commitment: EncodePoint(c1.Subtract(c1, c2)),
		Handle:     EncodePoint(d1.Subtract(d1, d2)),
	}, nil
}

// AddAmount adds a public amount to the plaintext without changing the handle.
func (ct Ciphertext) AddAmount(amount uint64) (Ciphertext, error) {
	c, err := ct.CommitmentPoint()
	if err != nil {
		return Ciphertext{}, err
	}
	delta := new(edwards25519.Point).ScalarBaseMult(ScalarFromUint64(amount))
	out := ct
	out.Commitment = EncodePoint(c.Add(c, delta))
	return out, nil
}

// SubAmount subtracts a public amount from the plaintext.
func (ct Ciphertext) SubAmount(amount uint64) (Ciphertext, error) {
	c, err := ct.CommitmentPoint()
	if err != nil {
		return Ciphertext{}, err
	}
	delta := new(edwards25519.Point).ScalarBaseMult(ScalarFromUint64(amount))
	out := ct
	out.Commitment = EncodePoint(c.Subtract(c, delta))
	return out, nil
}

// Scale multiplies the plaintext (and opening) by k.
func (ct Ciphertext) Scale(k uint64) (Ciphertext, error) {
	c, d, err := ct.points()
	if err != nil {
		return Ciphertext{}, err
	}
	s := ScalarFromUint64(k)
	return Ciphertext{
		Commitment: EncodePoint(c.ScalarMult(s, c)),
		Handle:     EncodePoint(d.ScalarMult(s, d)),
	}, nil
}

// CombineLoHi returns lo + 2^bits * hi.
func CombineLoHi(lo, hi Ciphertext, bits uint) (Ciphertext, error) {
	scaled, err := hi.Scale(uint64(1) << bits)
	if err != nil {
		return Ciphertext{}, err
	}
	return lo.Add(scaled)
}

// DecryptToPoint strips the blinding and returns amount*G.
func (k *Keypair) DecryptToPoint(ct Ciphertext) (*edwards25519.Point, error) {
	c, d, err := ct.points()
	if err != nil {
		return nil, err
	}
	sd := new(edwards25519.Point).ScalarMult(k.secret, d)
	return c.Subtract(c, sd), nil
}

// Decrypt recovers the plaintext, searching [0, maxAmount].
func (k *Keypair) Decrypt(ct Ciphertext, maxAmount uint64) (uint64, error) {
	m, err := k.DecryptToPoint(ct)
	if err != nil {
		return 0, err
	}
	v, ok := SolveDiscreteLog(m, maxAmount)
	if !ok {
		return 0, ErrAmountOutOfRange
	}
	return v, nil
}

// GroupedCiphertext shares one commitment between two decrypt handles, so
// two parties can decrypt the same amount.
type GroupedCiphertext struct {
	Commitment [PointSize]byte
	Handles    [2][PointSize]byte
}

// EncryptGrouped encrypts amount for both keys under a shared opening.
func EncryptGrouped(first, second PublicKey, amount uint64, opening *edwards25519.Scalar) (GroupedCiphertext, error) {
	var g GroupedCiphertext
	h0, err := DecryptHandle(first, opening)
	if err != nil {
		return g, err
	}
	h1, err := DecryptHandle(second, opening)
	if err != nil {
		return g, err
	}
	g.Commitment = EncodePoint(Commit(amount, opening))
	g.Handles = [2][PointSize]byte{h0, h1}
	return g, nil
}

// Ciphertext projects the grouped ciphertext onto the handle at index.
func (g GroupedCiphertext) Ciphertext(index int) Ciphertext {
	return Ciphertext{Commitment: g.Commitment, Handle: g.Handles[index]}
}

func (g GroupedCiphertext) Bytes() []byte {
	out := make([]byte, 0, GroupedCiphertextSize)
	out = append(out, g.Commitment[:]...)
	out = append(out, g.Handles[0][:]...)
	return append(out, g.Handles[1][:]...)
}

// GroupedCiphertextFromBytes parses commitment||handle0||handle1.
func GroupedCiphertextFromBytes(raw []byte) (GroupedCiphertext, error) {
	var g GroupedCiphertext
	if len(raw) != GroupedCiphertextSize {
		return g, ErrInvalidLength
	}
	copy(g.Commitment[:], raw[:PointSize])
	copy(g.Handles[0][:], raw[PointSize:2*PointSize])
	copy(g.Handles[1][:], raw[2*PointSize:])
	return g, nil
}
