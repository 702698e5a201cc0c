package domain

import sharedDomain "github.com/felixgeelhaar/keystone/internal/shared/domain"

// NumberSnapshot is the current snapshot schema.
type NumberSnapshot struct {
	Value     int `json:"value"`
	Additions int `json:"additions"`
}

func (NumberSnapshot) SchemaName() string { return "number.snapshot.v2" }

// RestoreAggregate builds a number holding the snapshot state.
func (s NumberSnapshot) RestoreAggregate() (any, error) {
	n := Empty()
	n.value = s.Value
	n.additions = s.Additions
	return n, nil
}

// NumberSnapshotV1 was written before additions were counted.
type NumberSnapshotV1 struct {
	Value int `json:"value"`
}

func (NumberSnapshotV1) SchemaName() string { return "number.snapshot.v1" }

// UpgradeToNext converts to NumberSnapshot with an unknown addition count.
func (s NumberSnapshotV1) UpgradeToNext() (sharedDomain.Schema, error) {
	return NumberSnapshot{Value: s.Value}, nil
}

// RestoreAggregate restores through the upgraded schema.
func (s NumberSnapshotV1) RestoreAggregate() (any, error) {
	return NumberSnapshot{Value: s.Value}.RestoreAggregate()
}

// RegisterSchemas makes every number payload decodable by r.
func RegisterSchemas(r *sharedDomain.Registry) {
	sharedDomain.Register[NumberCreated](r)
	sharedDomain.Register[ValueAdded](r)
	sharedDomain.Register[NumberSnapshot](r)
	sharedDomain.Register[NumberSnapshotV1](r)
}
