package persistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/keystone/internal/shared/application"
	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) SelectByID(ctx context.Context, id string) (*domain.DataSet[string], error) {
	args := m.Called(ctx, id)
	ds, _ := args.Get(0).(*domain.DataSet[string])
	return ds, args.Error(1)
}

func (m *mockStorage) Flush(ctx context.Context, changes domain.ChangeSet[string]) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

func TestRepository_AddAndFlush(t *testing.T) {
	t.Run("snapshots strategy writes one snapshot", func(t *testing.T) {
		h := newHarness(persistence.Snapshots[string, *account]())

		err := h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			a := openAccount(t, "acc-1", "ada")
			a.deposit(t, 5)
			added, err := repo.Add(ctx, a)
			require.NoError(t, err)
			assert.True(t, added)
		})
		require.NoError(t, err)

		ds, err := h.storage.SelectByID(context.Background(), "acc-1")
		require.NoError(t, err)
		require.NotNil(t, ds)
		require.NotNil(t, ds.Snapshot)
		assert.Empty(t, ds.Events)
		assert.Equal(t, domain.Version(2), ds.Snapshot.Version)
		assert.Equal(t, accountSnapshot{Owner: "ada", Balance: 5}, ds.Snapshot.Payload)
		assert.Equal(t, 1, h.storage.Flushes())
	})

	t.Run("events strategy appends every event", func(t *testing.T) {
		h := newHarness(persistence.Events[string, *account](emptyAccount))

		err := h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			a := openAccount(t, "acc-1", "ada")
			a.deposit(t, 5)
			_, err := repo.Add(ctx, a)
			require.NoError(t, err)
		})
		require.NoError(t, err)

		ds, err := h.storage.SelectByID(context.Background(), "acc-1")
		require.NoError(t, err)
		require.NotNil(t, ds)
		assert.Nil(t, ds.Snapshot)
		require.Len(t, ds.Events, 2)
		assert.Equal(t, domain.Version(1), ds.Events[0].Version)
		assert.Equal(t, domain.Version(2), ds.Events[1].Version)
	})
}

func TestRepository_ReleasesEventsAfterFlush(t *testing.T) {
	h := newHarness(persistence.Snapshots[string, *account]())

	err := h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		a := openAccount(t, "acc-1", "ada")
		a.deposit(t, 5)
		_, err := repo.Add(ctx, a)
		require.NoError(t, err)
	})
	require.NoError(t, err)

	envelopes := h.sink.Envelopes()
	require.Len(t, envelopes, 2)
	assert.Equal(t, "account.opened", envelopes[0].RoutingKey())

	dep := envelopes[1]
	assert.Equal(t, accountType, dep.AggregateType)
	assert.Equal(t, "acc-1", dep.AggregateID)
	assert.Equal(t, domain.Version(2), dep.Version)
	assert.Equal(t, deposited{Amount: 5}, dep.Event)
	assert.Equal(t, envelopes[0].Metadata.CorrelationID, dep.Metadata.CorrelationID)
}

func TestRepository_RoundTripPerStrategy(t *testing.T) {
	strategies := map[string]persistence.SerializationStrategy[string, *account]{
		"snapshots":             persistence.Snapshots[string, *account](),
		"events":                persistence.Events[string, *account](emptyAccount),
		"events with snapshots": persistence.EventsWithSnapshotThreshold[string, *account](emptyAccount, 2),
	}

	for name, strategy := range strategies {
		t.Run(name, func(t *testing.T) {
			h := newHarness(strategy)

			require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
				a := openAccount(t, "acc-1", "ada")
				a.deposit(t, 5)
				_, err := repo.Add(ctx, a)
				require.NoError(t, err)
			}))

			require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
				a, err := repo.GetByID(ctx, "acc-1")
				require.NoError(t, err)
				a.deposit(t, 7)
				a.deposit(t, 1)
			}))

			require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
				a, err := repo.GetByID(ctx, "acc-1")
				require.NoError(t, err)
				assert.Equal(t, "acc-1", a.AggregateID())
				assert.Equal(t, "ada", a.owner)
				assert.Equal(t, 13, a.balance)
				assert.Equal(t, domain.Version(4), a.Version())
				assert.Equal(t, domain.Version(4), a.PersistedVersion())
				assert.False(t, a.IsNew())
				assert.False(t, a.HasChanges())
			}))
		})
	}
}

func TestRepository_IdentityMap(t *testing.T) {
	h := newHarness(persistence.Snapshots[string, *account]())
	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
		require.NoError(t, err)
	}))

	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		first, err := repo.GetByID(ctx, "acc-1")
		require.NoError(t, err)
		second, err := repo.GetByIDOrNil(ctx, "acc-1")
		require.NoError(t, err)
		assert.Same(t, first, second)
	}))
}

func TestRepository_Absent(t *testing.T) {
	h := newHarness(persistence.Snapshots[string, *account]())

	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		a, err := repo.GetByIDOrNil(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, a)

		_, err = repo.GetByID(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrAggregateNotFound)
		var aggErr *domain.AggregateError
		require.ErrorAs(t, err, &aggErr)
		assert.Equal(t, accountType, aggErr.AggregateType)

		removed, err := repo.RemoveByID(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, removed)
		assert.False(t, repo.RequiresFlush())
	}))
	assert.Equal(t, 0, h.storage.Flushes())
}

func TestRepository_RestoreFailures(t *testing.T) {
	tests := []struct {
		name     string
		strategy persistence.SerializationStrategy[string, *account]
		stored   *domain.DataSet[string]
	}{
		{
			name:     "empty data set",
			strategy: persistence.Snapshots[string, *account](),
			stored:   &domain.DataSet[string]{AggregateID: "acc-1"},
		},
		{
			name:     "snapshot upgrade cycle",
			strategy: persistence.Snapshots[string, *account](),
			stored: &domain.DataSet[string]{
				AggregateID: "acc-1",
				Snapshot:    ptr(domain.NewSnapshotRecord[string]("acc-1", 2, ringSnapshot{})),
			},
		},
		{
			name:     "snapshot of another aggregate type",
			strategy: persistence.Snapshots[string, *account](),
			stored: &domain.DataSet[string]{
				AggregateID: "acc-1",
				Snapshot:    ptr(domain.NewSnapshotRecord[string]("acc-1", 1, foreignSnapshot{})),
			},
		},
		{
			name:     "snapshot only for the events strategy",
			strategy: persistence.Events[string, *account](emptyAccount),
			stored: &domain.DataSet[string]{
				AggregateID: "acc-1",
				Snapshot:    ptr(domain.NewSnapshotRecord[string]("acc-1", 1, accountSnapshot{Owner: "ada"})),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := new(mockStorage)
			storage.On("SelectByID", mock.Anything, "acc-1").Return(tt.stored, nil)
			manager := application.NewManager()

			err := application.WithUnitOfWork(context.Background(), manager, func(ctx context.Context, uow *application.UnitOfWork) error {
				repo, err := persistence.RepositoryFor[string, *account](uow, accountType, storage, tt.strategy)
				require.NoError(t, err)

				a, err := repo.GetByIDOrNil(ctx, "acc-1")
				assert.Nil(t, a)
				require.ErrorIs(t, err, domain.ErrCouldNotRestore)
				assert.NotErrorIs(t, err, domain.ErrAggregateNotFound)

				_, err = repo.GetByID(ctx, "acc-1")
				require.ErrorIs(t, err, domain.ErrCouldNotRestore)
				var aggErr *domain.AggregateError
				require.ErrorAs(t, err, &aggErr)
				assert.Equal(t, "load", aggErr.Op)
				assert.Equal(t, persistence.StateNull, repo.State("acc-1"))
				return err
			})

			require.ErrorIs(t, err, domain.ErrCouldNotRestore)
			assert.Equal(t, application.ClassBadRequest, application.Classify(err))
			storage.AssertExpectations(t)
		})
	}
}

func TestRepository_Add(t *testing.T) {
	t.Run("same instance twice", func(t *testing.T) {
		h := newHarness(persistence.Snapshots[string, *account]())
		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			a := openAccount(t, "acc-1", "ada")
			added, err := repo.Add(ctx, a)
			require.NoError(t, err)
			assert.True(t, added)

			added, err = repo.Add(ctx, a)
			require.NoError(t, err)
			assert.False(t, added)
		}))
		assert.Equal(t, 1, h.storage.Len())
	})

	t.Run("other instance with tracked id", func(t *testing.T) {
		h := newHarness(persistence.Snapshots[string, *account]())
		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
			require.NoError(t, err)

			added, err := repo.Add(ctx, openAccount(t, "acc-1", "bob"))
			require.ErrorIs(t, err, domain.ErrDuplicateKey)
			assert.False(t, added)
		}))
	})

	t.Run("id already stored", func(t *testing.T) {
		h := newHarness(persistence.Snapshots[string, *account]())
		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
			require.NoError(t, err)
		}))

		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			_, err := repo.Add(ctx, openAccount(t, "acc-1", "bob"))
			require.ErrorIs(t, err, domain.ErrDuplicateKey)
		}))
	})

	t.Run("nil aggregate", func(t *testing.T) {
		h := newHarness(persistence.Snapshots[string, *account]())
		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			_, err := repo.Add(ctx, nil)
			require.ErrorIs(t, err, domain.ErrContractViolation)
		}))
	})
}

func TestRepository_TrackingStates(t *testing.T) {
	h := newHarness(persistence.Snapshots[string, *account]())
	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		_, err := repo.Add(ctx, openAccount(t, "stored", "ada"))
		require.NoError(t, err)
	}))

	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		assert.Equal(t, persistence.StateNull, repo.State("fresh"))

		fresh := openAccount(t, "fresh", "bob")
		_, err := repo.Add(ctx, fresh)
		require.NoError(t, err)
		assert.Equal(t, persistence.StateAdded, repo.State("fresh"))

		removed, err := repo.Remove(ctx, fresh)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, persistence.StateNull, repo.State("fresh"))

		stored, err := repo.GetByID(ctx, "stored")
		require.NoError(t, err)
		assert.Equal(t, persistence.StateUnmodified, repo.State("stored"))
		assert.False(t, repo.RequiresFlush())

		stored.deposit(t, 3)
		assert.Equal(t, persistence.StateModified, repo.State("stored"))
		assert.True(t, repo.RequiresFlush())

		removed, err = repo.Remove(ctx, stored)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, persistence.StateRemoved, repo.State("stored"))

		removed, err = repo.Remove(ctx, stored)
		require.NoError(t, err)
		assert.False(t, removed)

		again, err := repo.GetByIDOrNil(ctx, "stored")
		require.NoError(t, err)
		assert.Nil(t, again)
	}))

	assert.Equal(t, 0, h.storage.Len())
}

func TestRepository_RemoveForeignInstance(t *testing.T) {
	h := newHarness(persistence.Snapshots[string, *account]())
	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
		require.NoError(t, err)

		removed, err := repo.Remove(ctx, openAccount(t, "acc-1", "ada"))
		require.NoError(t, err)
		assert.False(t, removed)

		removed, err = repo.Remove(ctx, nil)
		require.NoError(t, err)
		assert.False(t, removed)
	}))
	assert.Equal(t, 1, h.storage.Len())
}

func TestRepository_UntouchedAggregatesAreNotWritten(t *testing.T) {
	h := newHarness(persistence.Snapshots[string, *account]())
	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
		require.NoError(t, err)
	}))
	require.Equal(t, 1, h.storage.Flushes())

	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		_, err := repo.GetByID(ctx, "acc-1")
		require.NoError(t, err)
	}))
	assert.Equal(t, 1, h.storage.Flushes())
}

func TestRepository_ConcurrencyConflict(t *testing.T) {
	h := newHarness(persistence.Events[string, *account](emptyAccount))
	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
		require.NoError(t, err)
	}))
	released := len(h.sink.Envelopes())

	ctxA, scopeA := h.manager.Begin(context.Background())
	defer scopeA.Dispose(ctxA)
	ctxB, scopeB := h.manager.Begin(context.Background())
	defer scopeB.Dispose(ctxB)

	repoA := h.accounts(t, scopeA.UnitOfWork())
	repoB := h.accounts(t, scopeB.UnitOfWork())

	a, err := repoA.GetByID(ctxA, "acc-1")
	require.NoError(t, err)
	b, err := repoB.GetByID(ctxB, "acc-1")
	require.NoError(t, err)

	a.deposit(t, 1)
	b.deposit(t, 2)

	require.NoError(t, scopeA.Complete(ctxA))
	err = scopeB.Complete(ctxB)
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	assert.Len(t, h.sink.Envelopes(), released+1)
	assert.True(t, b.HasChanges())
}

func TestRepository_HardAndSoftDelete(t *testing.T) {
	t.Run("hard delete removes the data set", func(t *testing.T) {
		h := newHarness(persistence.Snapshots[string, *account]())
		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
			require.NoError(t, err)
		}))

		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			removed, err := repo.RemoveByID(ctx, "acc-1")
			require.NoError(t, err)
			assert.True(t, removed)
		}))

		assert.Equal(t, 0, h.storage.Len())
		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			added, err := repo.Add(ctx, openAccount(t, "acc-1", "bob"))
			require.NoError(t, err)
			assert.True(t, added)
		}))
	})

	t.Run("soft delete keeps a tombstone", func(t *testing.T) {
		h := newHarness(persistence.Events[string, *account](emptyAccount))
		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
			require.NoError(t, err)
		}))

		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			a, err := repo.GetByID(ctx, "acc-1")
			require.NoError(t, err)
			a.EnableSoftDelete(true)
			_, err = repo.Remove(ctx, a)
			require.NoError(t, err)
		}))

		ds, err := h.storage.SelectByID(context.Background(), "acc-1")
		require.NoError(t, err)
		require.NotNil(t, ds)
		assert.True(t, ds.IsTombstoned())

		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			a, err := repo.GetByIDOrNil(ctx, "acc-1")
			require.NoError(t, err)
			assert.Nil(t, a)

			_, err = repo.Add(ctx, openAccount(t, "acc-1", "bob"))
			require.ErrorIs(t, err, domain.ErrDuplicateKey)
		}))
	})

	t.Run("flag value at flush time wins", func(t *testing.T) {
		h := newHarness(persistence.Snapshots[string, *account]())
		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
			require.NoError(t, err)
		}))

		require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
			a, err := repo.GetByID(ctx, "acc-1")
			require.NoError(t, err)
			a.EnableSoftDelete(true)
			_, err = repo.Remove(ctx, a)
			require.NoError(t, err)
			a.EnableSoftDelete(false)
		}))

		assert.Equal(t, 0, h.storage.Len())
	})
}

func TestRepository_StorageFailure(t *testing.T) {
	storage := new(mockStorage)
	storage.On("SelectByID", mock.Anything, "acc-1").Return(nil, nil)
	storage.On("Flush", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	sink := &recordingSink{}
	manager := application.NewManager(application.WithEventSink(sink))
	var a *account

	err := application.WithUnitOfWork(context.Background(), manager, func(ctx context.Context, uow *application.UnitOfWork) error {
		repo, err := persistence.RepositoryFor[string, *account](uow, accountType, storage, persistence.Snapshots[string, *account]())
		if err != nil {
			return err
		}
		a = openAccount(t, "acc-1", "ada")
		_, err = repo.Add(ctx, a)
		return err
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, sink.Envelopes())
	assert.True(t, a.HasChanges())
	assert.True(t, a.IsNew())
	storage.AssertExpectations(t)
}

// flakyStorage reads from the memory storage but refuses every write.
type flakyStorage struct {
	*persistence.MemoryStorage[string]
	err error
}

func (s *flakyStorage) Flush(context.Context, domain.ChangeSet[string]) error {
	return s.err
}

func TestRepository_FailedSoftDeleteKeepsAggregate(t *testing.T) {
	h := newHarness(persistence.Events[string, *account](emptyAccount))
	require.NoError(t, h.run(t, func(ctx context.Context, repo *persistence.Repository[string, *account]) {
		_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
		require.NoError(t, err)
	}))
	released := len(h.sink.Envelopes())

	storage := &flakyStorage{MemoryStorage: h.storage, err: errors.New("disk full")}
	var a *account
	err := application.WithUnitOfWork(context.Background(), h.manager, func(ctx context.Context, uow *application.UnitOfWork) error {
		repo, err := persistence.RepositoryFor[string, *account](uow, accountType, storage, h.strategy)
		if err != nil {
			return err
		}
		a, err = repo.GetByID(ctx, "acc-1")
		if err != nil {
			return err
		}
		a.EnableSoftDelete(true)
		_, err = repo.Remove(ctx, a)
		return err
	})

	require.ErrorContains(t, err, "disk full")
	require.NotNil(t, a)
	assert.False(t, a.IsDeleted())
	assert.False(t, a.HasChanges())
	assert.Equal(t, domain.Version(1), a.Version())
	assert.Len(t, h.sink.Envelopes(), released)

	ds, err := h.storage.SelectByID(context.Background(), "acc-1")
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.False(t, ds.IsTombstoned())
}

func TestRepository_ChangeSetOrder(t *testing.T) {
	storage := new(mockStorage)
	for _, id := range []string{"c", "a", "b"} {
		storage.On("SelectByID", mock.Anything, id).Return(nil, nil)
	}
	var captured domain.ChangeSet[string]
	storage.On("Flush", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(domain.ChangeSet[string]) }).
		Return(nil)

	manager := application.NewManager()
	err := application.WithUnitOfWork(context.Background(), manager, func(ctx context.Context, uow *application.UnitOfWork) error {
		repo, err := persistence.RepositoryFor[string, *account](uow, accountType, storage, persistence.Snapshots[string, *account]())
		require.NoError(t, err)
		for _, id := range []string{"c", "a", "b"} {
			_, err := repo.Add(ctx, openAccount(t, id, id))
			require.NoError(t, err)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, accountType, captured.AggregateType)
	require.Len(t, captured.Inserts, 3)
	assert.Equal(t, "c", captured.Inserts[0].AggregateID)
	assert.Equal(t, "a", captured.Inserts[1].AggregateID)
	assert.Equal(t, "b", captured.Inserts[2].AggregateID)
	assert.Empty(t, captured.Updates)
	assert.Empty(t, captured.Deletes)
}

func TestRepository_SharedAcrossNestedScopes(t *testing.T) {
	h := newHarness(persistence.Snapshots[string, *account]())

	outerCtx, outer := h.manager.Begin(context.Background())
	defer outer.Dispose(outerCtx)
	outerRepo := h.accounts(t, outer.UnitOfWork())

	innerCtx, inner := h.manager.Begin(outerCtx)
	require.False(t, inner.IsOwner())
	innerRepo := h.accounts(t, inner.UnitOfWork())
	assert.Same(t, outerRepo, innerRepo)

	_, err := innerRepo.Add(innerCtx, openAccount(t, "acc-1", "ada"))
	require.NoError(t, err)
	require.NoError(t, inner.Complete(innerCtx))
	inner.Dispose(innerCtx)

	assert.Equal(t, 0, h.storage.Len())
	require.NoError(t, outer.Complete(outerCtx))
	assert.Equal(t, 1, h.storage.Len())
}

func TestRepository_FlushTwice(t *testing.T) {
	h := newHarness(persistence.Snapshots[string, *account]())
	ctx, scope := h.manager.Begin(context.Background())
	defer scope.Dispose(ctx)

	repo := h.accounts(t, scope.UnitOfWork())
	_, err := repo.Add(ctx, openAccount(t, "acc-1", "ada"))
	require.NoError(t, err)

	require.NoError(t, repo.Flush(ctx))
	assert.False(t, repo.RequiresFlush())
	require.ErrorIs(t, repo.Flush(ctx), domain.ErrContractViolation)
}

func TestRepository_UseAfterComplete(t *testing.T) {
	h := newHarness(persistence.Snapshots[string, *account]())
	ctx, scope := h.manager.Begin(context.Background())
	defer scope.Dispose(ctx)

	repo := h.accounts(t, scope.UnitOfWork())
	require.NoError(t, scope.Complete(ctx))

	_, err := repo.GetByIDOrNil(ctx, "acc-1")
	require.ErrorIs(t, err, domain.ErrContractViolation)
}
