package commands

import (
	"context"

	"github.com/felixgeelhaar/keystone/internal/numbers/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/google/uuid"
)

// CreateNumberCommand contains the data needed to create a number.
// Values are added right after creation, in the same unit of work.
type CreateNumberCommand struct {
	ID      string // generated when empty
	Initial int
	Values  []int
}

func (CreateNumberCommand) CommandName() string { return "numbers.create" }

// CreateNumberResult contains the result of creating a number.
type CreateNumberResult struct {
	ID      string
	Value   int
	Version sharedDomain.Version
}

// CreateNumberHandler handles the CreateNumberCommand.
type CreateNumberHandler struct {
	numbers Repositories
	manager *application.Manager
}

var _ application.ResultHandler[CreateNumberCommand, *CreateNumberResult] = (*CreateNumberHandler)(nil)

// NewCreateNumberHandler creates a new CreateNumberHandler.
func NewCreateNumberHandler(numbers Repositories, manager *application.Manager) *CreateNumberHandler {
	return &CreateNumberHandler{numbers: numbers, manager: manager}
}

// Handle executes the CreateNumberCommand.
func (h *CreateNumberHandler) Handle(ctx context.Context, cmd CreateNumberCommand) (*CreateNumberResult, error) {
	id := cmd.ID
	if id == "" {
		id = uuid.NewString()
	}

	var number *domain.Number
	err := application.WithUnitOfWork(ctx, h.manager, func(ctx context.Context, uow *application.UnitOfWork) error {
		repo, err := h.numbers.For(uow)
		if err != nil {
			return err
		}

		number, err = domain.NewNumber(id, cmd.Initial)
		if err != nil {
			return err
		}
		for _, v := range cmd.Values {
			if err := number.Add(v); err != nil {
				return err
			}
		}
		_, err = repo.Add(ctx, number)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &CreateNumberResult{ID: number.ID(), Value: number.Value(), Version: number.Version()}, nil
}
