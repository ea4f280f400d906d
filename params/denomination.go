package params

// These are the multipliers for native denominations.
// Example: to get the lamport value of an amount in whole units, use
//
//	amount * params.SOL
const (
	Lamport = 1
	SOL     = 1_000_000_000

	// MicroLamportsPerLamport scales compute unit prices, which are quoted
	// in micro-lamports.
	MicroLamportsPerLamport = 1_000_000
)
