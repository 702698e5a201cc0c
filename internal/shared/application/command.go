package application

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// Command represents a command that modifies system state.
type Command interface {
	CommandName() string
}

// CommandHandler handles a command whose only outcome is an error.
type CommandHandler[C Command] interface {
	Handle(ctx context.Context, cmd C) error
}

// ResultHandler handles a command that reports what it wrote.
type ResultHandler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// Execute runs cmd through h and classifies the outcome.
func Execute[C Command, R any](ctx context.Context, h ResultHandler[C, R], cmd C) CommandResult {
	return ToCommandResult(h.Handle(ctx, cmd))
}

// ExecuteOnly runs cmd through h and classifies the outcome.
func ExecuteOnly[C Command](ctx context.Context, h CommandHandler[C], cmd C) CommandResult {
	if err := h.Handle(ctx, cmd); err != nil {
		return NewErrorResult(err)
	}
	return NewSuccessResult(nil)
}

// ErrorClass is the client-facing category of a failed command.
type ErrorClass string

const (
	ClassNone       ErrorClass = ""
	ClassBadRequest ErrorClass = "bad_request"
	ClassConflict   ErrorClass = "conflict"
	ClassInternal   ErrorClass = "internal"
)

// Classify maps persistence errors to client-facing categories.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, domain.ErrContractViolation):
		return ClassInternal
	case errors.Is(err, domain.ErrAggregateNotFound),
		errors.Is(err, domain.ErrDuplicateKey),
		errors.Is(err, domain.ErrCouldNotRestore):
		return ClassBadRequest
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return ClassConflict
	default:
		return ClassInternal
	}
}

// CommandResult represents the result of a command execution.
type CommandResult struct {
	Success bool
	Error   error
	Class   ErrorClass
	Data    any
}

// NewSuccessResult creates a successful command result.
func NewSuccessResult(data any) CommandResult {
	return CommandResult{Success: true, Data: data}
}

// NewErrorResult creates a failed command result.
func NewErrorResult(err error) CommandResult {
	return CommandResult{Success: false, Error: err, Class: Classify(err)}
}

// ToCommandResult converts the outcome of a handler into a CommandResult.
func ToCommandResult(data any, err error) CommandResult {
	if err != nil {
		return NewErrorResult(err)
	}
	return NewSuccessResult(data)
}
