package commands

import (
	"errors"

	"github.com/felixgeelhaar/keystone/internal/numbers/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/application"
)

// ErrNumberNotFound is returned when no live number has the requested id.
var ErrNumberNotFound = errors.New("number not found")

// Repositories resolves the number repository of a unit of work.
type Repositories interface {
	For(uow *application.UnitOfWork) (domain.Repository, error)
}
