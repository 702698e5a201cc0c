package commands

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/keystone/internal/numbers/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// AddValueCommand adds one or more values to an existing number.
type AddValueCommand struct {
	ID     string
	Values []int
}

func (AddValueCommand) CommandName() string { return "numbers.add_value" }

// AddValueResult contains the number after the values were added.
type AddValueResult struct {
	ID      string
	Value   int
	Version sharedDomain.Version
}

// AddValueHandler handles the AddValueCommand.
type AddValueHandler struct {
	numbers Repositories
	manager *application.Manager
}

var _ application.ResultHandler[AddValueCommand, *AddValueResult] = (*AddValueHandler)(nil)

// NewAddValueHandler creates a new AddValueHandler.
func NewAddValueHandler(numbers Repositories, manager *application.Manager) *AddValueHandler {
	return &AddValueHandler{numbers: numbers, manager: manager}
}

// Handle executes the AddValueCommand.
func (h *AddValueHandler) Handle(ctx context.Context, cmd AddValueCommand) (*AddValueResult, error) {
	var number *domain.Number
	err := application.WithUnitOfWork(ctx, h.manager, func(ctx context.Context, uow *application.UnitOfWork) error {
		repo, err := h.numbers.For(uow)
		if err != nil {
			return err
		}

		number, err = repo.GetByID(ctx, cmd.ID)
		if errors.Is(err, sharedDomain.ErrAggregateNotFound) {
			return ErrNumberNotFound
		}
		if err != nil {
			return err
		}

		for _, v := range cmd.Values {
			if err := number.Add(v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AddValueResult{ID: number.ID(), Value: number.Value(), Version: number.Version()}, nil
}
