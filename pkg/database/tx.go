package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

type txState struct {
	tx    *gorm.DB
	hooks []func()
}

// Transactor runs a function inside a database transaction carried on the
// context. Repositories pick it up through Conn, so a service can compose
// several repository calls into one atomic unit without passing *gorm.DB around.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction commits when fn returns nil and rolls back otherwise.
// A nested call joins the outer transaction. Hooks registered with
// AfterCommit run once the outermost transaction has committed.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if active(ctx) != nil {
		return fn(ctx)
	}

	state := &txState{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.tx = tx
		return fn(context.WithValue(ctx, txKey{}, state))
	})
	// contexts captured by hooks fall back to the pool from here on
	state.tx = nil
	if err != nil {
		return err
	}

	for _, hook := range state.hooks {
		hook()
	}
	return nil
}

func active(ctx context.Context) *txState {
	if state, ok := ctx.Value(txKey{}).(*txState); ok && state.tx != nil {
		return state
	}
	return nil
}

// Conn returns the transaction bound to ctx, or db scoped to ctx.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state := active(ctx); state != nil {
		return state.tx
	}
	return db.WithContext(ctx)
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	return active(ctx) != nil
}

// AfterCommit defers fn until the surrounding transaction commits. It is
// dropped on rollback. Without an open transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if state := active(ctx); state != nil {
		state.hooks = append(state.hooks, fn)
		return
	}
	fn()
}
