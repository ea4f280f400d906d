package ledger

import (
	"context"
	"fmt"

	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/params"
	"github.com/tos-network/ctoken/token"
)

// The helpers below mutate state directly, outside any bundle. They back
// the faucet endpoints and test setup.

// Airdrop credits lamports to addr, creating a system account if needed.
func (l *Ledger) Airdrop(ctx context.Context, addr common.Address, lamports uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := newOverlay(dbReader{l.db})
	rec, err := st.account(addr)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &accountRecord{Owner: params.SystemProgramID}
	}
	if rec.Lamports+lamports < rec.Lamports {
		return fmt.Errorf("ledger: airdrop overflows balance of %v", addr)
	}
	rec.Lamports += lamports
	st.set(addr, rec)
	if err := st.commit(l.db); err != nil {
		return err
	}
	l.advance(addr[:])
	l.log.Info("Airdrop", "to", addr, "lamports", lamports)
	return nil
}

// CreateMint installs a mint at address mint. With confidential set the
// mint carries the confidential transfer extension and authority approves
// accounts unless autoApprove is set.
func (l *Ledger) CreateMint(ctx context.Context, mint, authority common.Address, decimals uint8, confidential, autoApprove bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := newOverlay(dbReader{l.db})
	existing, err := st.account(mint)
	if err != nil {
		return err
	}
	if existing != nil {
		return token.ErrAccountAlreadyInUse
	}
	m := &token.Mint{MintAuthority: &authority, Decimals: decimals, IsInitialized: true}
	var ext *token.ConfidentialMint
	if confidential {
		ext = &token.ConfidentialMint{Authority: authority, AutoApproveNewAccounts: autoApprove}
	}
	data := token.PackMintWithExtension(m, ext)
	st.set(mint, &accountRecord{Owner: params.TokenProgramID, Lamports: params.RentExemptMinimum(uint64(len(data))), Data: data})
	if err := st.commit(l.db); err != nil {
		return err
	}
	l.advance(mint[:])
	l.log.Info("Created mint", "mint", mint, "decimals", decimals, "confidential", confidential, "autoApprove", autoApprove)
	return nil
}

// MintTo adds amount to the public balance of the token account dest.
func (l *Ledger) MintTo(ctx context.Context, mint, dest common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := newOverlay(dbReader{l.db})
	mrec, err := st.account(mint)
	if err != nil {
		return err
	}
	if mrec == nil {
		return token.ErrAccountNotFound
	}
	m, err := token.UnpackMint(mrec.Data)
	if err != nil {
		return err
	}
	rec, err := st.account(dest)
	if err != nil {
		return err
	}
	if rec == nil {
		return token.ErrAccountNotFound
	}
	acc, err := token.UnpackAccount(rec.Data)
	if err != nil {
		return err
	}
	if acc.Mint != mint {
		return token.ErrMintMismatch
	}
	if ext, err := token.GetConfidentialAccount(rec.Data); err == nil && !ext.AllowNonConfidentialCredits {
		return token.ErrNonConfidentialCreditsDisabled
	}
	acc.Amount += amount
	m.Supply += amount
	copy(rec.Data, acc.Pack())
	copy(mrec.Data, m.Pack())
	st.set(dest, rec)
	st.set(mint, mrec)
	if err := st.commit(l.db); err != nil {
		return err
	}
	l.advance(dest[:])
	return nil
}
