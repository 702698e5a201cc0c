package persistence

import (
	"reflect"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
)

// TrackingState is the lifecycle tag a Repository keeps per aggregate id.
type TrackingState int

const (
	StateNull TrackingState = iota
	StateUnmodified
	StateAdded
	StateModified
	StateRemoved
)

func (s TrackingState) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateUnmodified:
		return "unmodified"
	case StateAdded:
		return "added"
	case StateModified:
		return "modified"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

type entry[K comparable, A domain.AggregateRoot[K]] struct {
	aggregate A
	state     TrackingState
}

// current folds mutations made after loading into the Modified state.
func (e *entry[K, A]) current() TrackingState {
	if e.state == StateUnmodified && e.aggregate.HasChanges() {
		return StateModified
	}
	return e.state
}

func sameInstance[A any](a, b A) bool {
	return any(a) == any(b)
}

func isNil[A any](a A) bool {
	v := reflect.ValueOf(any(a))
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
