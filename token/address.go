package token

import (
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/params"
	"lukechampine.com/blake3"
)

var associatedAccountDomain = []byte("ctoken/associated-token-account")

// DeriveAccountAddress returns the associated token account of owner for
// mint. It is a pure function of its inputs.
func DeriveAccountAddress(owner, mint common.Address) common.Address {
	h := blake3.New(32, nil)
	h.Write(associatedAccountDomain)
	h.Write(owner[:])
	h.Write(params.TokenProgramID[:])
	h.Write(mint[:])
	return common.BytesToAddress(h.Sum(nil))
}
