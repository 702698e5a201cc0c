package database

import (
	"context"
	"errors"
	"fmt"
)

// Transactor scopes work to a database transaction carried in the context.
// A transaction already present in the context is joined rather than nested;
// only the scope that began it commits or rolls back.
type Transactor struct {
	conn Connection
}

// NewTransactor creates a Transactor for conn.
func NewTransactor(conn Connection) *Transactor {
	return &Transactor{conn: conn}
}

// Begin starts a transaction and stores it in the context.
// If a transaction already exists in the context, it reuses it.
func (t *Transactor) Begin(ctx context.Context) (context.Context, error) {
	if info, ok := TxInfoFromContext(ctx); ok {
		return WithTx(ctx, info.Tx, false), nil
	}

	tx, err := t.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return WithTx(ctx, tx, true), nil
}

// Commit commits the transaction if this scope owns it.
func (t *Transactor) Commit(ctx context.Context) error {
	info, ok := TxInfoFromContext(ctx)
	if !ok {
		return errors.New("no transaction in context")
	}
	if !info.Owned {
		return nil
	}
	return info.Tx.Commit(ctx)
}

// Rollback rolls back the transaction if this scope owns it.
func (t *Transactor) Rollback(ctx context.Context) error {
	info, ok := TxInfoFromContext(ctx)
	if !ok {
		return errors.New("no transaction in context")
	}
	if !info.Owned {
		return nil
	}
	return info.Tx.Rollback(ctx)
}

// InTx runs fn inside a transaction and commits when fn succeeds.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, err := t.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(txCtx); err != nil {
		if rbErr := t.Rollback(txCtx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := t.Commit(txCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
