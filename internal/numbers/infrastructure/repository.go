package infrastructure

import (
	"github.com/felixgeelhaar/keystone/internal/numbers/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/persistence"
)

// Numbers hands out the number repository of a unit of work.
type Numbers struct {
	storage  persistence.Storage[string]
	strategy persistence.SerializationStrategy[string, *domain.Number]
}

// NewNumbers creates a provider writing to storage with the given strategy.
func NewNumbers(storage persistence.Storage[string], strategy persistence.SerializationStrategy[string, *domain.Number]) *Numbers {
	return &Numbers{storage: storage, strategy: strategy}
}

// NewStrategy builds the serialization strategy for numbers.
func NewStrategy(kind persistence.StrategyKind, snapshotThreshold int) (persistence.SerializationStrategy[string, *domain.Number], error) {
	return persistence.NewStrategy[string](kind, persistence.Factory[*domain.Number](domain.Empty), snapshotThreshold)
}

// NewRecordCodec returns the codec durable storages use for number records.
func NewRecordCodec() persistence.RecordCodec[string] {
	registry := sharedDomain.NewRegistry()
	domain.RegisterSchemas(registry)
	return persistence.NewRecordCodec[string](persistence.StringKeys{}, registry)
}

// For returns the number repository enlisted in uow.
func (n *Numbers) For(uow *application.UnitOfWork) (domain.Repository, error) {
	repo, err := n.Tracked(uow)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// Tracked is For with access to tracking state.
func (n *Numbers) Tracked(uow *application.UnitOfWork) (*persistence.Repository[string, *domain.Number], error) {
	return persistence.RepositoryFor(uow, domain.AggregateType, n.storage, n.strategy)
}

// Strategy returns the configured strategy kind.
func (n *Numbers) Strategy() persistence.StrategyKind {
	return n.strategy.Kind()
}
