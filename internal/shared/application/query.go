package application

import "context"

// Query reads aggregates without changing them. Handlers still load inside a
// unit of work so repeated reads share one identity map.
type Query interface {
	QueryName() string
}

// QueryHandler answers one query type.
type QueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

// Ask runs query through h and classifies the outcome like a command.
func Ask[Q Query, R any](ctx context.Context, h QueryHandler[Q, R], query Q) CommandResult {
	return ToCommandResult(h.Handle(ctx, query))
}
