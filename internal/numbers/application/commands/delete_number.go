package commands

import (
	"context"

	"github.com/felixgeelhaar/keystone/internal/shared/application"
)

// DeleteNumberCommand removes a number. Soft deletion keeps the stream and
// appends a tombstone.
type DeleteNumberCommand struct {
	ID   string
	Soft bool
}

func (DeleteNumberCommand) CommandName() string { return "numbers.delete" }

// DeleteNumberHandler handles the DeleteNumberCommand.
type DeleteNumberHandler struct {
	numbers Repositories
	manager *application.Manager
}

var _ application.CommandHandler[DeleteNumberCommand] = (*DeleteNumberHandler)(nil)

// NewDeleteNumberHandler creates a new DeleteNumberHandler.
func NewDeleteNumberHandler(numbers Repositories, manager *application.Manager) *DeleteNumberHandler {
	return &DeleteNumberHandler{numbers: numbers, manager: manager}
}

// Handle executes the DeleteNumberCommand.
func (h *DeleteNumberHandler) Handle(ctx context.Context, cmd DeleteNumberCommand) error {
	return application.WithUnitOfWork(ctx, h.manager, func(ctx context.Context, uow *application.UnitOfWork) error {
		repo, err := h.numbers.For(uow)
		if err != nil {
			return err
		}

		number, err := repo.GetByIDOrNil(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if number == nil {
			return ErrNumberNotFound
		}

		number.EnableSoftDelete(cmd.Soft)
		_, err = repo.Remove(ctx, number)
		return err
	})
}
