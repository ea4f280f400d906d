package ledgerclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tos-network/ctoken/accounts/wallet"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/confidential"
	"github.com/tos-network/ctoken/core/submitter"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/internal/ledgerapi"
	"github.com/tos-network/ctoken/ledger"
)

type requestLog struct {
	mu  sync.Mutex
	ids []string
}

func (r *requestLog) wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.ids = append(r.ids, req.Header.Get(requestIDHeader))
		r.mu.Unlock()
		h.ServeHTTP(w, req)
	})
}

func newClient(t *testing.T) (*Client, *requestLog) {
	t.Helper()
	l, err := ledger.Open(ledger.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	s, err := ledgerapi.New(l, ledgerapi.Config{Faucet: true})
	require.NoError(t, err)
	rl := new(requestLog)
	srv := httptest.NewServer(rl.wrap(s.Handler()))
	t.Cleanup(srv.Close)
	return Dial(srv.URL + "/"), rl
}

func TestClientErrors(t *testing.T) {
	c, rl := newClient(t)
	ctx := context.Background()

	_, err := c.GetAccount(ctx, common.Address{0x42})
	require.ErrorIs(t, err, types.ErrAccountNotFound)

	_, err = c.ConfirmBundle(ctx, common.Signature{0x01})
	require.ErrorIs(t, err, types.ErrBundleNotFound)

	_, err = c.SendBundle(ctx, &types.Bundle{FeePayer: common.Address{1}})
	require.ErrorIs(t, err, types.ErrEmptyBundle)

	require.Len(t, rl.ids, 3)
	for _, id := range rl.ids {
		_, err := uuid.Parse(id)
		require.NoError(t, err)
	}
	require.NotEqual(t, rl.ids[0], rl.ids[1])
}

func TestConfidentialFlowOverHTTP(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	payer, err := wallet.New()
	require.NoError(t, err)
	authority, err := wallet.New()
	require.NoError(t, err)
	owner, err := wallet.New()
	require.NoError(t, err)
	mint := common.Address{0x3d}

	require.NoError(t, c.Airdrop(ctx, payer.PublicKey(), 10_000_000_000))
	require.NoError(t, c.CreateMint(ctx, mint, authority.PublicKey(), 6, true, true))

	m, err := confidential.New(confidential.Config{
		Backend:   c,
		FeePayer:  payer,
		Submitter: submitter.Config{RequestsPerSecond: 1000, ConfirmPollInterval: time.Millisecond},
	})
	require.NoError(t, err)

	acct, err := m.CreateAndConfigure(ctx, owner, mint)
	require.NoError(t, err)
	require.Equal(t, confidential.Configured, acct.State)

	require.NoError(t, c.MintTo(ctx, mint, acct.Address, 5_000))
	require.NoError(t, m.Deposit(ctx, acct, owner, 1_200))
	applied, err := m.ApplyPendingBalance(ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(1_200), applied)

	b, err := m.Balances(ctx, acct, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(3_800), b.Public)
	require.Equal(t, uint64(1_200), b.Available)
	require.Equal(t, uint64(0), b.Pending)
	require.NotZero(t, b.Slot)
}
