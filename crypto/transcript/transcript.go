// Package transcript implements a labelled Fiat-Shamir transcript. Every
// message is framed by its label and length, and each challenge is folded
// back into the state so later challenges depend on earlier ones.
package transcript

import (
	"encoding/binary"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"
)

type Transcript struct {
	state []byte
}

// New starts a transcript bound to a protocol label.
func New(label string) *Transcript {
	t := &Transcript{state: make([]byte, 0, 512)}
	t.AppendMessage("dom-sep", []byte(label))
	return t
}

// Clone forks the transcript; the fork does not affect the original.
func (t *Transcript) Clone() *Transcript {
	state := make([]byte, len(t.state), cap(t.state))
	copy(state, t.state)
	return &Transcript{state: state}
}

func (t *Transcript) AppendMessage(label string, msg []byte) {
	t.state = appendFrame(t.state, []byte(label))
	t.state = appendFrame(t.state, msg)
}

func (t *Transcript) AppendU64(label string, v uint64) {
	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], v)
	t.AppendMessage(label, word[:])
}

func (t *Transcript) AppendPoint(label string, p *edwards25519.Point) {
	t.AppendMessage(label, p.Bytes())
}

// ChallengeBytes squeezes 64 bytes and absorbs them.
func (t *Transcript) ChallengeBytes(label string) [64]byte {
	h := sha3.New512()
	h.Write(t.state)
	h.Write([]byte("challenge"))
	h.Write([]byte(label))
	var out [64]byte
	copy(out[:], h.Sum(nil))
	t.AppendMessage(label, out[:])
	return out
}

// ChallengeScalar squeezes a uniformly distributed scalar.
func (t *Transcript) ChallengeScalar(label string) *edwards25519.Scalar {
	wide := t.ChallengeBytes(label)
	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		panic(err) // unreachable: input is always 64 bytes
	}
	return s
}

func appendFrame(dst, msg []byte) []byte {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(msg)))
	dst = append(dst, n[:]...)
	return append(dst, msg...)
}
