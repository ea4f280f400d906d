// Package ledgerclient talks to a ledger served by ledgerapi. A Client
// satisfies submitter.Backend.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/internal/ledgerapi"
)

const requestIDHeader = "X-Request-ID"

type Client struct {
	base string
	http *http.Client
}

// Dial returns a client for the ledger at endpoint, e.g.
// "http://127.0.0.1:8899". No request is made.
func Dial(endpoint string) *Client {
	return NewClient(endpoint, &http.Client{Timeout: 15 * time.Second})
}

func NewClient(endpoint string, hc *http.Client) *Client {
	return &Client{base: strings.TrimRight(endpoint, "/"), http: hc}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		enc, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(enc)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set(requestIDHeader, uuid.New().String())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var er ledgerapi.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			er.Error = resp.Status
		}
		return ledgerapi.DecodeError(resp.StatusCode, er)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ledgerclient: %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) LatestCheckpoint(ctx context.Context) (common.Hash, error) {
	var resp ledgerapi.CheckpointResponse
	if err := c.do(ctx, http.MethodGet, "/v1/checkpoint", nil, &resp); err != nil {
		return common.Hash{}, err
	}
	return resp.Checkpoint, nil
}

func bundleRequest(b *types.Bundle) (*ledgerapi.BundleRequest, error) {
	raw, err := types.EncodeBundle(b)
	if err != nil {
		return nil, err
	}
	return &ledgerapi.BundleRequest{Bundle: raw}, nil
}

func (c *Client) SendBundle(ctx context.Context, b *types.Bundle) (common.Signature, error) {
	req, err := bundleRequest(b)
	if err != nil {
		return common.Signature{}, err
	}
	var resp ledgerapi.BundleResponse
	if err := c.do(ctx, http.MethodPost, "/v1/bundles", req, &resp); err != nil {
		return b.ID(), err
	}
	return resp.ID, nil
}

func (c *Client) ConfirmBundle(ctx context.Context, id common.Signature) (*types.Receipt, error) {
	receipt := new(types.Receipt)
	if err := c.do(ctx, http.MethodGet, "/v1/bundles/"+id.String(), nil, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (c *Client) SimulateBundle(ctx context.Context, b *types.Bundle) (*types.ResourceEstimate, error) {
	req, err := bundleRequest(b)
	if err != nil {
		return nil, err
	}
	est := new(types.ResourceEstimate)
	if err := c.do(ctx, http.MethodPost, "/v1/bundles/simulate", req, est); err != nil {
		return nil, err
	}
	return est, nil
}

func (c *Client) GetAccount(ctx context.Context, addr common.Address) (*types.AccountInfo, error) {
	var resp ledgerapi.AccountResponse
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+addr.String(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Info(), nil
}

func (c *Client) RentExemptMinimum(ctx context.Context, size uint64) (uint64, error) {
	var resp ledgerapi.RentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/rent/"+strconv.FormatUint(size, 10), nil, &resp); err != nil {
		return 0, err
	}
	return uint64(resp.Lamports), nil
}

// Faucet endpoints. The server only serves them when started with the
// faucet enabled.

func (c *Client) Airdrop(ctx context.Context, addr common.Address, lamports uint64) error {
	return c.do(ctx, http.MethodPost, "/v1/airdrop", &ledgerapi.AirdropRequest{
		Address:  addr,
		Lamports: hexutil.Uint64(lamports),
	}, nil)
}

func (c *Client) CreateMint(ctx context.Context, mint, authority common.Address, decimals uint8, confidential, autoApprove bool) error {
	return c.do(ctx, http.MethodPost, "/v1/mints", &ledgerapi.CreateMintRequest{
		Mint:         mint,
		Authority:    authority,
		Decimals:     decimals,
		Confidential: confidential,
		AutoApprove:  autoApprove,
	}, nil)
}

func (c *Client) MintTo(ctx context.Context, mint, dest common.Address, amount uint64) error {
	return c.do(ctx, http.MethodPost, "/v1/mints/"+mint.String()+"/mint-to", &ledgerapi.MintToRequest{
		Destination: dest,
		Amount:      hexutil.Uint64(amount),
	}, nil)
}
