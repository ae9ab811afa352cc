package testhelpers

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// FakeTx records commit and rollback calls. Any other pgx.Tx method panics,
// so unit tests only use it with mocked repositories.
type FakeTx struct {
	pgx.Tx

	mu         sync.Mutex
	CommitErr  error
	Committed  bool
	RolledBack bool
}

func (tx *FakeTx) Commit(context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.CommitErr != nil {
		return tx.CommitErr
	}
	tx.Committed = true
	return nil
}

func (tx *FakeTx) Rollback(context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.Committed {
		return pgx.ErrTxClosed
	}
	tx.RolledBack = true
	return nil
}

// FakeTxManager hands out the same FakeTx on every BeginTx.
type FakeTxManager struct {
	Tx       *FakeTx
	BeginErr error
}

func NewFakeTxManager() *FakeTxManager {
	return &FakeTxManager{Tx: &FakeTx{}}
}

func (m *FakeTxManager) BeginTx(context.Context) (pgx.Tx, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	return m.Tx, nil
}
