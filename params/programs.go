package params

import "github.com/tos-network/ctoken/common"

// Well-known program addresses.
var (
	SystemProgramID        = mustAddress("11111111111111111111111111111111")
	TokenProgramID         = mustAddress("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgram = mustAddress("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	ProofProgramID         = mustAddress("ZkE1Gama1Proof11111111111111111111111111111")
	ComputeBudgetProgramID = mustAddress("ComputeBudget111111111111111111111111111111")
	MemoProgramID          = mustAddress("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
)

func mustAddress(s string) common.Address {
	a, err := common.Base58ToAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}
