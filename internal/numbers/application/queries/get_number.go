package queries

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/keystone/internal/numbers/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/application"
)

// ErrNumberNotFound is returned when a number is not found.
var ErrNumberNotFound = errors.New("number not found")

// Repositories resolves the number repository of a unit of work.
type Repositories interface {
	For(uow *application.UnitOfWork) (domain.Repository, error)
}

// GetNumberQuery contains the parameters for getting a single number.
type GetNumberQuery struct {
	ID string
}

func (GetNumberQuery) QueryName() string { return "numbers.get" }

// NumberDTO is the read model of a number.
type NumberDTO struct {
	ID        string `json:"id"`
	Value     int    `json:"value"`
	Additions int    `json:"additions"`
	Version   uint64 `json:"version"`
}

// GetNumberHandler handles the GetNumberQuery.
type GetNumberHandler struct {
	numbers Repositories
	manager *application.Manager
}

var _ application.QueryHandler[GetNumberQuery, *NumberDTO] = (*GetNumberHandler)(nil)

// NewGetNumberHandler creates a new GetNumberHandler.
func NewGetNumberHandler(numbers Repositories, manager *application.Manager) *GetNumberHandler {
	return &GetNumberHandler{numbers: numbers, manager: manager}
}

// Handle executes the GetNumberQuery. Loading never writes, so the unit of
// work completes with nothing to flush.
func (h *GetNumberHandler) Handle(ctx context.Context, query GetNumberQuery) (*NumberDTO, error) {
	var dto *NumberDTO
	err := application.WithUnitOfWork(ctx, h.manager, func(ctx context.Context, uow *application.UnitOfWork) error {
		repo, err := h.numbers.For(uow)
		if err != nil {
			return err
		}

		number, err := repo.GetByIDOrNil(ctx, query.ID)
		if err != nil {
			return err
		}
		if number == nil {
			return ErrNumberNotFound
		}

		dto = &NumberDTO{
			ID:        number.ID(),
			Value:     number.Value(),
			Additions: number.Additions(),
			Version:   uint64(number.Version()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}
