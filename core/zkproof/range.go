package zkproof

import (
	"encoding/binary"

	"filippo.io/edwards25519"
	"github.com/tos-network/ctoken/crypto/elgamal"
	"github.com/tos-network/ctoken/crypto/transcript"
	"golang.org/x/crypto/sha3"
)

const (
	rangeDomain       = "batched-range-proof"
	maxRangeBitLength = 64
	maxRangeBatch     = 8
)

// BatchedRangeData proves that each commitment opens to a value below
// 2^BitLengths[i]. Each value is decomposed into bit commitments
// C_i = b_i*G + r_i*H that sum (weighted by 2^i) to the target commitment,
// and every C_i carries a two-member ring signature over H showing that
// either C_i or C_i - G is a multiple of H.
type BatchedRangeData struct {
	Commitments [][elgamal.PointSize]byte
	BitLengths  []uint8
	Proof       []byte
}

// RangeWitness is one (amount, opening, bits) triple for NewBatchedRangeData.
type RangeWitness struct {
	Amount  uint64
	Opening *edwards25519.Scalar
	Bits    uint8
}

// NewBatchedRangeData proves all witnesses in one proof.
func NewBatchedRangeData(witnesses []RangeWitness) (*BatchedRangeData, error) {
	if len(witnesses) == 0 || len(witnesses) > maxRangeBatch {
		return nil, ErrProofGeneration
	}
	d := &BatchedRangeData{
		Commitments: make([][elgamal.PointSize]byte, len(witnesses)),
		BitLengths:  make([]uint8, len(witnesses)),
	}
	var totalBits int
	for i, w := range witnesses {
		if w.Bits == 0 || w.Bits > maxRangeBitLength || w.Opening == nil {
			return nil, ErrProofGeneration
		}
		if w.Bits < 64 && w.Amount>>w.Bits != 0 {
			return nil, ErrProofGeneration
		}
		d.Commitments[i] = elgamal.EncodePoint(elgamal.Commit(w.Amount, w.Opening))
		d.BitLengths[i] = w.Bits
		totalBits += int(w.Bits)
	}

	// Bit commitments and their openings.
	bitOpenings := make([][]*edwards25519.Scalar, len(witnesses))
	bitPoints := make([][]*edwards25519.Point, len(witnesses))
	for j, w := range witnesses {
		openings, err := splitOpening(w.Opening, int(w.Bits))
		if err != nil {
			return nil, err
		}
		bitOpenings[j] = openings
		bitPoints[j] = make([]*edwards25519.Point, w.Bits)
		for i := 0; i < int(w.Bits); i++ {
			bitPoints[j][i] = elgamal.Commit((w.Amount>>i)&1, openings[i])
		}
	}

	t := d.transcript()
	for j := range bitPoints {
		for _, C := range bitPoints[j] {
			t.AppendPoint("bit-commitment", C)
		}
	}
	seed := t.ChallengeBytes("ring-seed")

	H, G := elgamal.PedersenH(), elgamal.PedersenG()
	d.Proof = make([]byte, 0, totalBits*RangeProofBitSize)
	for j, w := range witnesses {
		for i := 0; i < int(w.Bits); i++ {
			C := bitPoints[j][i]
			X := [2]*edwards25519.Point{C, new(edwards25519.Point).Subtract(C, G)}
			bit := int((w.Amount >> i) & 1)
			e0, z0, z1, err := proveBit(seed, j, i, bit, bitOpenings[j][i], X, H)
			if err != nil {
				return nil, err
			}
			d.Proof = append(d.Proof, C.Bytes()...)
			d.Proof = append(d.Proof, e0.Bytes()...)
			d.Proof = append(d.Proof, z0.Bytes()...)
			d.Proof = append(d.Proof, z1.Bytes()...)
		}
	}
	return d, nil
}

// splitOpening draws bit openings r_0..r_{n-1} with sum(2^i * r_i) == r.
func splitOpening(r *edwards25519.Scalar, n int) ([]*edwards25519.Scalar, error) {
	out := make([]*edwards25519.Scalar, n)
	acc := edwards25519.NewScalar()
	for i := 0; i < n-1; i++ {
		ri, err := elgamal.RandomScalar()
		if err != nil {
			return nil, ErrProofGeneration
		}
		out[i] = ri
		acc.MultiplyAdd(pow2(i), ri, acc)
	}
	last := edwards25519.NewScalar().Subtract(r, acc)
	inv := edwards25519.NewScalar().Invert(pow2(n - 1))
	out[n-1] = last.Multiply(last, inv)
	return out, nil
}

func pow2(i int) *edwards25519.Scalar {
	return elgamal.ScalarFromUint64(uint64(1) << uint(i))
}

func proveBit(seed [64]byte, j, i, bit int, r *edwards25519.Scalar, X [2]*edwards25519.Point, H *edwards25519.Point) (e0, z0, z1 *edwards25519.Scalar, err error) {
	k, err := elgamal.RandomScalar()
	if err != nil {
		return nil, nil, nil, ErrProofGeneration
	}
	fake, err := elgamal.RandomScalar()
	if err != nil {
		return nil, nil, nil, ErrProofGeneration
	}
	kH := new(edwards25519.Point).ScalarMult(k, H)
	if bit == 0 {
		e1 := ringChallenge(seed, j, i, kH)
		z1 = fake
		R1 := ringCommit(z1, e1, X[1], H)
		e0 = ringChallenge(seed, j, i, R1)
		z0 = edwards25519.NewScalar().MultiplyAdd(e0, r, k)
		return e0, z0, z1, nil
	}
	e0 = ringChallenge(seed, j, i, kH)
	z0 = fake
	R0 := ringCommit(z0, e0, X[0], H)
	e1 := ringChallenge(seed, j, i, R0)
	z1 = edwards25519.NewScalar().MultiplyAdd(e1, r, k)
	return e0, z0, z1, nil
}

// ringCommit returns z*H - e*X.
func ringCommit(z, e *edwards25519.Scalar, X, H *edwards25519.Point) *edwards25519.Point {
	negE := edwards25519.NewScalar().Negate(e)
	return linear([]*edwards25519.Scalar{z, negE}, []*edwards25519.Point{H, X})
}

func ringChallenge(seed [64]byte, j, i int, R *edwards25519.Point) *edwards25519.Scalar {
	var idx [8]byte
	binary.LittleEndian.PutUint32(idx[:4], uint32(j))
	binary.LittleEndian.PutUint32(idx[4:], uint32(i))
	h := sha3.New512()
	h.Write(seed[:])
	h.Write(idx[:])
	h.Write(R.Bytes())
	s, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil {
		panic(err) // unreachable: sha3-512 output is 64 bytes
	}
	return s
}

func (d *BatchedRangeData) transcript() *transcript.Transcript {
	t := transcript.New(rangeDomain)
	t.AppendU64("batch", uint64(len(d.Commitments)))
	for i := range d.Commitments {
		t.AppendMessage("commitment", d.Commitments[i][:])
		t.AppendU64("bits", uint64(d.BitLengths[i]))
	}
	return t
}

func (d *BatchedRangeData) Type() ProofType { return ProofTypeBatchedRange }

func (d *BatchedRangeData) totalBits() int {
	var n int
	for _, b := range d.BitLengths {
		n += int(b)
	}
	return n
}

func (d *BatchedRangeData) Verify() error {
	if len(d.Commitments) == 0 || len(d.Commitments) != len(d.BitLengths) || len(d.Commitments) > maxRangeBatch {
		return ErrProofVerification
	}
	for _, b := range d.BitLengths {
		if b == 0 || b > maxRangeBitLength {
			return ErrProofVerification
		}
	}
	if len(d.Proof) != d.totalBits()*RangeProofBitSize {
		return ErrProofVerification
	}

	type bitProof struct {
		C          *edwards25519.Point
		e0, z0, z1 *edwards25519.Scalar
	}
	parsed := make([][]bitProof, len(d.Commitments))
	t := d.transcript()
	off := 0
	for j, n := range d.BitLengths {
		target, err := elgamal.DecodePoint(d.Commitments[j][:])
		if err != nil {
			return ErrProofVerification
		}
		parsed[j] = make([]bitProof, n)
		sum := edwards25519.NewIdentityPoint()
		for i := int(n) - 1; i >= 0; i-- {
			chunk := d.Proof[off+i*RangeProofBitSize : off+(i+1)*RangeProofBitSize]
			var bp bitProof
			if bp.C, err = elgamal.DecodePoint(chunk[0:32]); err != nil {
				return ErrProofVerification
			}
			if bp.e0, err = elgamal.DecodeScalar(chunk[32:64]); err != nil {
				return ErrProofVerification
			}
			if bp.z0, err = elgamal.DecodeScalar(chunk[64:96]); err != nil {
				return ErrProofVerification
			}
			if bp.z1, err = elgamal.DecodeScalar(chunk[96:128]); err != nil {
				return ErrProofVerification
			}
			parsed[j][i] = bp
			sum.Add(sum, sum)
			sum.Add(sum, bp.C)
		}
		if !pointsEqual(sum, target) {
			return ErrProofVerification
		}
		for i := 0; i < int(n); i++ {
			t.AppendPoint("bit-commitment", parsed[j][i].C)
		}
		off += int(n) * RangeProofBitSize
	}
	seed := t.ChallengeBytes("ring-seed")

	H, G := elgamal.PedersenH(), elgamal.PedersenG()
	for j := range parsed {
		for i, bp := range parsed[j] {
			X1 := new(edwards25519.Point).Subtract(bp.C, G)
			R0 := ringCommit(bp.z0, bp.e0, bp.C, H)
			e1 := ringChallenge(seed, j, i, R0)
			R1 := ringCommit(bp.z1, e1, X1, H)
			if ringChallenge(seed, j, i, R1).Equal(bp.e0) != 1 {
				return ErrProofVerification
			}
		}
	}
	return nil
}

// Bytes encodes count || commitments || bit lengths || proof.
func (d *BatchedRangeData) Bytes() []byte {
	out := make([]byte, 0, 1+len(d.Commitments)*(elgamal.PointSize+1)+len(d.Proof))
	out = append(out, byte(len(d.Commitments)))
	for i := range d.Commitments {
		out = append(out, d.Commitments[i][:]...)
	}
	out = append(out, d.BitLengths...)
	return append(out, d.Proof...)
}

func DecodeBatchedRangeData(raw []byte) (*BatchedRangeData, error) {
	if len(raw) < 1 {
		return nil, ErrInvalidProofData
	}
	n := int(raw[0])
	if n == 0 || n > maxRangeBatch {
		return nil, ErrInvalidProofData
	}
	head := 1 + n*(elgamal.PointSize+1)
	if len(raw) < head {
		return nil, ErrInvalidProofData
	}
	d := &BatchedRangeData{
		Commitments: make([][elgamal.PointSize]byte, n),
		BitLengths:  make([]uint8, n),
	}
	off := 1
	for i := 0; i < n; i++ {
		copy(d.Commitments[i][:], raw[off:off+elgamal.PointSize])
		off += elgamal.PointSize
	}
	copy(d.BitLengths, raw[off:off+n])
	off += n
	d.Proof = append([]byte(nil), raw[off:]...)
	if len(d.Proof) != d.totalBits()*RangeProofBitSize {
		return nil, ErrInvalidProofData
	}
	return d, nil
}
