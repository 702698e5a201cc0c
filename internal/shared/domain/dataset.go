package domain

// DataSet is the persisted form of one aggregate: an optional snapshot and
// the ordered events written after it. A nil *DataSet means the aggregate is
// absent; an empty one cannot be restored.
type DataSet[K comparable] struct {
	AggregateID K
	// ExpectedVersion is the version storage must still hold for an update to apply.
	ExpectedVersion Version
	Snapshot        *Record[K]
	Events          []Record[K]
}

// IsEmpty reports whether the set carries neither snapshot nor events.
func (d DataSet[K]) IsEmpty() bool {
	return d.Snapshot == nil && len(d.Events) == 0
}

// LatestVersion returns the highest version held by the set.
func (d DataSet[K]) LatestVersion() Version {
	var v Version
	if d.Snapshot != nil {
		v = d.Snapshot.Version
	}
	for _, e := range d.Events {
		if e.Version > v {
			v = e.Version
		}
	}
	return v
}

// IsTombstoned reports whether the newest record is the deletion marker.
func (d DataSet[K]) IsTombstoned() bool {
	if n := len(d.Events); n > 0 && (d.Snapshot == nil || d.Events[n-1].Version >= d.Snapshot.Version) {
		return d.Events[n-1].IsTombstone()
	}
	return d.Snapshot != nil && d.Snapshot.IsTombstone()
}

// ChangeSet is the write batch produced by one repository flush.
type ChangeSet[K comparable] struct {
	AggregateType string
	Inserts       []DataSet[K]
	Updates       []DataSet[K]
	Deletes       []K
}

// IsEmpty reports whether the change set writes nothing.
func (c ChangeSet[K]) IsEmpty() bool {
	return len(c.Inserts) == 0 && len(c.Updates) == 0 && len(c.Deletes) == 0
}

// Len returns the number of aggregates touched by the change set.
func (c ChangeSet[K]) Len() int {
	return len(c.Inserts) + len(c.Updates) + len(c.Deletes)
}
