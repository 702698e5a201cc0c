package persistence_test

import (
	"context"
	"sync"
	"testing"

	"github.com/felixgeelhaar/keystone/internal/shared/application"
	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/persistence"
	"github.com/stretchr/testify/require"
)

const accountType = "account"

type account struct {
	domain.BaseAggregateRoot[string]
	owner   string
	balance int
}

type accountOpened struct {
	domain.Created
	Owner string `json:"owner"`
}

func (accountOpened) SchemaName() string { return "account.opened" }

type deposited struct {
	Amount int `json:"amount"`
}

func (deposited) SchemaName() string { return "account.deposited" }

type accountSnapshot struct {
	Owner   string `json:"owner"`
	Balance int    `json:"balance"`
}

func (accountSnapshot) SchemaName() string { return "account.snapshot.v2" }

func (s accountSnapshot) RestoreAggregate() (any, error) {
	a := emptyAccount()
	a.owner = s.Owner
	a.balance = s.Balance
	return a, nil
}

// legacyAccountSnapshot predates owners.
type legacyAccountSnapshot struct {
	Balance int `json:"balance"`
}

func (legacyAccountSnapshot) SchemaName() string { return "account.snapshot.v1" }

func (s legacyAccountSnapshot) UpgradeToNext() (domain.Schema, error) {
	return accountSnapshot{Owner: "unknown", Balance: s.Balance}, nil
}

func (s legacyAccountSnapshot) RestoreAggregate() (any, error) {
	return accountSnapshot{Owner: "unknown", Balance: s.Balance}.RestoreAggregate()
}

// foreignSnapshot restores something that is not an account.
type foreignSnapshot struct{}

func (foreignSnapshot) SchemaName() string             { return "ledger.snapshot" }
func (foreignSnapshot) RestoreAggregate() (any, error) { return "ledger", nil }

// ringSnapshot and ringSnapshotNext upgrade into each other forever.
type ringSnapshot struct{}

func (ringSnapshot) SchemaName() string                    { return "account.snapshot.ring" }
func (ringSnapshot) UpgradeToNext() (domain.Schema, error) { return ringSnapshotNext{}, nil }
func (ringSnapshot) RestoreAggregate() (any, error)        { return emptyAccount(), nil }

type ringSnapshotNext struct{}

func (ringSnapshotNext) SchemaName() string                    { return "account.snapshot.ring.next" }
func (ringSnapshotNext) UpgradeToNext() (domain.Schema, error) { return ringSnapshot{}, nil }
func (ringSnapshotNext) RestoreAggregate() (any, error)        { return emptyAccount(), nil }

var accountHandlers = func() *domain.EventHandlers[*account] {
	h := domain.NewEventHandlers[*account](accountType)
	domain.Handle(h, func(a *account, e accountOpened) { a.owner = e.Owner })
	domain.Handle(h, func(a *account, e deposited) { a.balance += e.Amount })
	return h
}()

func openAccount(t *testing.T, id, owner string) *account {
	t.Helper()
	a := &account{BaseAggregateRoot: domain.NewBaseAggregateRoot(accountType, id)}
	require.NoError(t, domain.Raise(a, accountHandlers, accountOpened{Owner: owner}))
	return a
}

func emptyAccount() *account {
	return &account{BaseAggregateRoot: domain.RehydrateBaseAggregateRoot[string](accountType)}
}

func (a *account) Apply(e domain.Event) error { return accountHandlers.Apply(a, e) }

func (a *account) TakeSnapshot() (domain.Snapshot, error) {
	return accountSnapshot{Owner: a.owner, Balance: a.balance}, nil
}

func (a *account) deposit(t *testing.T, amount int) {
	t.Helper()
	require.NoError(t, domain.Raise(a, accountHandlers, deposited{Amount: amount}))
}

func accountRegistry() *domain.Registry {
	r := domain.NewRegistry()
	domain.Register[accountOpened](r)
	domain.Register[deposited](r)
	domain.Register[accountSnapshot](r)
	domain.Register[legacyAccountSnapshot](r)
	return r
}

type recordingSink struct {
	mu        sync.Mutex
	envelopes []domain.Envelope
}

func (s *recordingSink) Deliver(_ context.Context, envelopes []domain.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, envelopes...)
	return nil
}

func (s *recordingSink) Envelopes() []domain.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Envelope(nil), s.envelopes...)
}

type harness struct {
	storage  *persistence.MemoryStorage[string]
	strategy persistence.SerializationStrategy[string, *account]
	sink     *recordingSink
	manager  *application.Manager
}

func newHarness(strategy persistence.SerializationStrategy[string, *account]) *harness {
	sink := &recordingSink{}
	return &harness{
		storage:  persistence.NewMemoryStorage[string](),
		strategy: strategy,
		sink:     sink,
		manager:  application.NewManager(application.WithEventSink(sink)),
	}
}

func (h *harness) accounts(t *testing.T, uow *application.UnitOfWork) *persistence.Repository[string, *account] {
	t.Helper()
	repo, err := persistence.RepositoryFor(uow, accountType, persistence.Storage[string](h.storage), h.strategy)
	require.NoError(t, err)
	return repo
}

// run executes fn in a fresh unit of work and completes it.
func (h *harness) run(t *testing.T, fn func(ctx context.Context, repo *persistence.Repository[string, *account])) error {
	t.Helper()
	return application.WithUnitOfWork(context.Background(), h.manager, func(ctx context.Context, uow *application.UnitOfWork) error {
		fn(ctx, h.accounts(t, uow))
		return nil
	})
}
