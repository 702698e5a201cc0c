package sqlstore

import (
	"fmt"

	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/migrations"
)

type queries struct {
	lockStream     string
	selectStream   string
	selectSnapshot string
	selectEvents   string
	insertStream   string
	updateStream   string
	upsertSnapshot string
	insertEvent    string
	deleteEvents   string
	deleteSnapshot string
	deleteStream   string
}

func buildQueries(driver database.Driver, t migrations.Tables) queries {
	q := queries{
		selectStream: fmt.Sprintf(
			`SELECT version FROM %s WHERE aggregate_type = ? AND aggregate_id = ?`, t.Streams),
		selectSnapshot: fmt.Sprintf(
			`SELECT version, schema_name, payload, recorded_at FROM %s WHERE aggregate_type = ? AND aggregate_id = ?`, t.Snapshots),
		selectEvents: fmt.Sprintf(
			`SELECT version, event_id, schema_name, payload, recorded_at FROM %s
			 WHERE aggregate_type = ? AND aggregate_id = ? AND version > ?
			 ORDER BY version`, t.Events),
		insertStream: fmt.Sprintf(
			`INSERT INTO %s (aggregate_type, aggregate_id, version, updated_at) VALUES (?, ?, ?, ?)`, t.Streams),
		updateStream: fmt.Sprintf(
			`UPDATE %s SET version = ?, updated_at = ? WHERE aggregate_type = ? AND aggregate_id = ? AND version = ?`, t.Streams),
		upsertSnapshot: fmt.Sprintf(
			`INSERT INTO %s (aggregate_type, aggregate_id, version, schema_name, payload, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (aggregate_type, aggregate_id) DO UPDATE SET
			   version = excluded.version,
			   schema_name = excluded.schema_name,
			   payload = excluded.payload,
			   recorded_at = excluded.recorded_at`, t.Snapshots),
		insertEvent: fmt.Sprintf(
			`INSERT INTO %s (aggregate_type, aggregate_id, version, event_id, schema_name, payload, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`, t.Events),
		deleteEvents: fmt.Sprintf(
			`DELETE FROM %s WHERE aggregate_type = ? AND aggregate_id = ?`, t.Events),
		deleteSnapshot: fmt.Sprintf(
			`DELETE FROM %s WHERE aggregate_type = ? AND aggregate_id = ?`, t.Snapshots),
		deleteStream: fmt.Sprintf(
			`DELETE FROM %s WHERE aggregate_type = ? AND aggregate_id = ?`, t.Streams),
	}

	// Writers update the stream row first, so a shared lock on it keeps the
	// snapshot and event reads that follow at the same version. SQLite read
	// transactions already see one snapshot.
	q.lockStream = q.selectStream
	if driver == database.DriverPostgres {
		q.lockStream += ` FOR SHARE`
	}

	for _, p := range []*string{
		&q.lockStream, &q.selectStream, &q.selectSnapshot, &q.selectEvents,
		&q.insertStream, &q.updateStream, &q.upsertSnapshot, &q.insertEvent,
		&q.deleteEvents, &q.deleteSnapshot, &q.deleteStream,
	} {
		*p = driver.Rebind(*p)
	}
	return q
}
