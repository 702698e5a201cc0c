package database

import "context"

type txKey struct{}

// TxInfo is the transaction carried by a context. Owned is true only for the
// scope that began it; joined scopes neither commit nor roll back.
type TxInfo struct {
	Tx    Transaction
	Owned bool
}

// WithTx stores tx in ctx.
func WithTx(ctx context.Context, tx Transaction, owned bool) context.Context {
	return context.WithValue(ctx, txKey{}, TxInfo{Tx: tx, Owned: owned})
}

// TxInfoFromContext returns the transaction carried by ctx, if any.
func TxInfoFromContext(ctx context.Context) (TxInfo, bool) {
	info, ok := ctx.Value(txKey{}).(TxInfo)
	if !ok || info.Tx == nil {
		return TxInfo{}, false
	}
	return info, true
}

// ExecutorFromContext returns the transaction carried by ctx, or conn when
// there is none, so storage code runs the same inside and outside a Transactor.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if info, ok := TxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return conn
}
