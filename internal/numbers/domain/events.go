package domain

import sharedDomain "github.com/felixgeelhaar/keystone/internal/shared/domain"

// NumberCreated starts a number's stream.
type NumberCreated struct {
	sharedDomain.Created
	Value int `json:"value"`
}

func (NumberCreated) SchemaName() string { return "number.created" }

// ValueAdded is recorded for every value added to a number.
type ValueAdded struct {
	Value int `json:"value"`
}

func (ValueAdded) SchemaName() string { return "number.value_added" }
