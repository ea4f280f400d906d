package elgamal

import (
	"sync"

	"filippo.io/edwards25519"
)

// babyStepBits fixes the baby-step table at 2^16 entries, enough for the
// 16-bit low half of a pending balance to resolve without giant steps.
const babyStepBits = 16

var (
	babyStepOnce  sync.Once
	babyStepTable map[[PointSize]byte]uint64
	giantStep     *edwards25519.Point
)

func loadBabySteps() {
	babyStepOnce.Do(func() {
		n := uint64(1) << babyStepBits
		table := make(map[[PointSize]byte]uint64, n)
		acc := edwards25519.NewIdentityPoint()
		g := edwards25519.NewGeneratorPoint()
		for i := uint64(0); i < n; i++ {
			table[EncodePoint(acc)] = i
			acc.Add(acc, g)
		}
		babyStepTable = table
		// acc now holds n*G.
		giantStep = new(edwards25519.Point).Negate(acc)
	})
}

// SolveDiscreteLog finds m in [0, maxAmount] with m*G == point using
// baby-step giant-step. It returns false when no such m exists.
func SolveDiscreteLog(point *edwards25519.Point, maxAmount uint64) (uint64, bool) {
	loadBabySteps()
	n := uint64(1) << babyStepBits
	cur := new(edwards25519.Point).Set(point)
	maxJ := maxAmount / n
	for j := uint64(0); j <= maxJ; j++ {
		if i, ok := babyStepTable[EncodePoint(cur)]; ok {
			if m := j*n + i; m <= maxAmount {
				return m, true
			}
			return 0, false
		}
		cur.Add(cur, giantStep)
	}
	return 0, false
}
