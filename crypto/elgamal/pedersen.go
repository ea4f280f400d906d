package elgamal

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"
)

const (
	PointSize  = 32
	ScalarSize = 32
)

var pedersenHDomain = []byte("ctoken/pedersen/H")

var (
	pedersenHOnce sync.Once
	pedersenH     *edwards25519.Point
)

// scalarLMinusOne is the group order minus one, little-endian.
var scalarLMinusOne = [ScalarSize]byte{
	0xec, 0xd3, 0xf5, 0x5c, 0x1a, 0x63, 0x12, 0x58,
	0xd6, 0x9c, 0xf7, 0xa2, 0xde, 0xf9, 0xde, 0x14,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10,
}

// PedersenG returns a copy of the base point used for amounts.
func PedersenG() *edwards25519.Point {
	return edwards25519.NewGeneratorPoint()
}

// PedersenH returns a copy of the blinding base. It is derived by
// try-and-increment from a fixed domain tag and cleared of torsion, so nobody
// knows its discrete log relative to G.
func PedersenH() *edwards25519.Point {
	pedersenHOnce.Do(func() {
		var ctr [8]byte
		for i := uint64(0); ; i++ {
			binary.LittleEndian.PutUint64(ctr[:], i)
			h := sha3.New512()
			h.Write(pedersenHDomain)
			h.Write(ctr[:])
			digest := h.Sum(nil)
			p, err := new(edwards25519.Point).SetBytes(digest[:PointSize])
			if err != nil {
				continue
			}
			p.MultByCofactor(p)
			if p.Equal(edwards25519.NewIdentityPoint()) == 1 {
				continue
			}
			pedersenH = p
			return
		}
	})
	return new(edwards25519.Point).Set(pedersenH)
}

// Commit returns amount*G + opening*H.
func Commit(amount uint64, opening *edwards25519.Scalar) *edwards25519.Point {
	return new(edwards25519.Point).VarTimeDoubleScalarBaseMult(opening, PedersenH(), ScalarFromUint64(amount))
}

// ScalarFromUint64 embeds v as a scalar.
func ScalarFromUint64(v uint64) *edwards25519.Scalar {
	var buf [ScalarSize]byte
	binary.LittleEndian.PutUint64(buf[:8], v)
	s, err := edwards25519.NewScalar().SetCanonicalBytes(buf[:])
	if err != nil {
		panic(err) // unreachable: 64-bit values are always canonical
	}
	return s
}

// RandomScalar returns a uniformly random non-zero scalar.
func RandomScalar() (*edwards25519.Scalar, error) {
	zero := edwards25519.NewScalar()
	for {
		var seed [64]byte
		if _, err := rand.Read(seed[:]); err != nil {
			return nil, err
		}
		s, err := edwards25519.NewScalar().SetUniformBytes(seed[:])
		if err != nil {
			return nil, err
		}
		if s.Equal(zero) == 0 {
			return s, nil
		}
	}
}

// DecodeScalar parses a canonical scalar encoding.
func DecodeScalar(raw []byte) (*edwards25519.Scalar, error) {
	if len(raw) != ScalarSize {
		return nil, ErrInvalidLength
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(raw)
	if err != nil {
		return nil, ErrInvalidScalar
	}
	return s, nil
}

// DecodePoint parses a compressed point and rejects encodings with a
// small-order component.
func DecodePoint(raw []byte) (*edwards25519.Point, error) {
	if len(raw) != PointSize {
		return nil, ErrInvalidLength
	}
	p, err := new(edwards25519.Point).SetBytes(raw)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	if !isTorsionFree(p) {
		return nil, ErrInvalidPoint
	}
	return p, nil
}

// EncodePoint compresses p into a fixed array.
func EncodePoint(p *edwards25519.Point) [PointSize]byte {
	var out [PointSize]byte
	copy(out[:], p.Bytes())
	return out
}

func isTorsionFree(p *edwards25519.Point) bool {
	lm1, _ := edwards25519.NewScalar().SetCanonicalBytes(scalarLMinusOne[:])
	q := new(edwards25519.Point).ScalarMult(lm1, p)
	q.Add(q, p)
	return q.Equal(edwards25519.NewIdentityPoint()) == 1
}

func isIdentity(p *edwards25519.Point) bool {
	return p.Equal(edwards25519.NewIdentityPoint()) == 1
}
