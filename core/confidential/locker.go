package confidential

import (
	"sync"

	"github.com/tos-network/ctoken/common"
)

// AccountLocker hands out one mutex per account address. Entries are
// dropped once nobody holds or waits on them.
type AccountLocker struct {
	mu    sync.Mutex
	locks map[common.Address]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func NewAccountLocker() *AccountLocker {
	return &AccountLocker{locks: make(map[common.Address]*accountLock)}
}

// Lock blocks until addr is free and returns the matching unlock.
func (l *AccountLocker) Lock(addr common.Address) (unlock func()) {
	l.mu.Lock()
	lk, ok := l.locks[addr]
	if !ok {
		lk = new(accountLock)
		l.locks[addr] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		if lk.refs--; lk.refs == 0 {
			delete(l.locks, addr)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of addresses currently locked or waited on.
func (l *AccountLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
