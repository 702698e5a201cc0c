package domain

import "fmt"

// MaxUpgradeChain bounds the number of upgrade steps applied to one payload.
const MaxUpgradeChain = 32

// Upgrader is implemented by payloads superseded by a newer schema.
type Upgrader interface {
	Schema
	UpgradeToNext() (Schema, error)
}

// UpgradeToLatest walks the upgrade chain of s until it reaches a payload
// that is not superseded. A chain that revisits a schema name, or that is
// longer than MaxUpgradeChain, fails with ErrCouldNotRestore.
func UpgradeToLatest(s Schema) (Schema, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: record has no payload", ErrCouldNotRestore)
	}

	origin := s.SchemaName()
	seen := map[string]struct{}{origin: {}}
	current := s

	for steps := 0; ; steps++ {
		up, ok := current.(Upgrader)
		if !ok {
			return current, nil
		}
		if steps >= MaxUpgradeChain {
			return nil, fmt.Errorf("%w: upgrade chain from %s exceeds %d steps", ErrCouldNotRestore, origin, MaxUpgradeChain)
		}

		next, err := up.UpgradeToNext()
		if err != nil {
			return nil, fmt.Errorf("%w: upgrading %s: %v", ErrCouldNotRestore, current.SchemaName(), err)
		}
		if next == nil {
			return nil, fmt.Errorf("%w: %s upgraded to nothing", ErrCouldNotRestore, current.SchemaName())
		}

		name := next.SchemaName()
		if _, cycle := seen[name]; cycle {
			return nil, fmt.Errorf("%w: upgrade cycle from %s back to %s", ErrCouldNotRestore, current.SchemaName(), name)
		}
		seen[name] = struct{}{}
		current = next
	}
}
