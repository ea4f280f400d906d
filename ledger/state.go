package ledger

import (
	"errors"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/tos-network/ctoken/common"
	"github.com/tos-network/ctoken/core/types"
	"github.com/tos-network/ctoken/tosdb"
)

var accountPrefix = []byte("a")

// accountRecord is the persisted form of a ledger account.
type accountRecord struct {
	Owner    common.Address
	Lamports uint64
	Data     []byte
}

func (r *accountRecord) copy() *accountRecord {
	return &accountRecord{Owner: r.Owner, Lamports: r.Lamports, Data: common.CopyBytes(r.Data)}
}

func (r *accountRecord) info(addr common.Address) *types.AccountInfo {
	return &types.AccountInfo{Address: addr, Owner: r.Owner, Lamports: r.Lamports, Data: common.CopyBytes(r.Data)}
}

func accountKey(addr common.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr[:]...)
}

// accountReader returns a private copy of an account, or nil if absent.
type accountReader interface {
	account(addr common.Address) (*accountRecord, error)
}

type dbReader struct {
	db tosdb.KeyValueReader
}

func (r dbReader) account(addr common.Address) (*accountRecord, error) {
	raw, err := r.db.Get(accountKey(addr))
	if errors.Is(err, tosdb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := new(accountRecord)
	if err := rlp.DecodeBytes(raw, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// overlay buffers account writes on top of a parent reader. Bundles execute
// against an overlay that is merged into its parent only on success.
type overlay struct {
	parent accountReader
	dirty  map[common.Address]*accountRecord
	order  []common.Address
}

func newOverlay(parent accountReader) *overlay {
	return &overlay{parent: parent, dirty: make(map[common.Address]*accountRecord)}
}

func (o *overlay) account(addr common.Address) (*accountRecord, error) {
	if rec, ok := o.dirty[addr]; ok {
		return rec.copy(), nil
	}
	return o.parent.account(addr)
}

func (o *overlay) set(addr common.Address, rec *accountRecord) {
	if _, ok := o.dirty[addr]; !ok {
		o.order = append(o.order, addr)
	}
	o.dirty[addr] = rec.copy()
}

// mergeInto replays the buffered writes onto dst.
func (o *overlay) mergeInto(dst *overlay) {
	for _, addr := range o.order {
		dst.set(addr, o.dirty[addr])
	}
}

// commit writes the buffered accounts to db in one batch.
func (o *overlay) commit(db tosdb.Batcher) error {
	batch := db.NewBatch()
	for _, addr := range o.order {
		enc, err := rlp.EncodeToBytes(o.dirty[addr])
		if err != nil {
			return err
		}
		if err := batch.Put(accountKey(addr), enc); err != nil {
			return err
		}
	}
	return batch.Write()
}
