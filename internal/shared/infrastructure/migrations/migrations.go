package migrations

import (
	"context"
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/database"
	"github.com/lib/pq"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationsFS embed.FS

// DefaultTablePrefix is prepended to every aggregate store table.
const DefaultTablePrefix = "keystone_"

var validPrefix = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Tables holds the quoted names of the aggregate store tables.
type Tables struct {
	Streams   string
	Snapshots string
	Events    string
}

// TableNames returns the quoted table names for prefix.
func TableNames(prefix string) (Tables, error) {
	if prefix == "" {
		prefix = DefaultTablePrefix
	}
	if !validPrefix.MatchString(prefix) {
		return Tables{}, fmt.Errorf("invalid table prefix %q", prefix)
	}
	return Tables{
		Streams:   pq.QuoteIdentifier(prefix + "streams"),
		Snapshots: pq.QuoteIdentifier(prefix + "snapshots"),
		Events:    pq.QuoteIdentifier(prefix + "events"),
	}, nil
}

func (t Tables) replacer() *strings.Replacer {
	return strings.NewReplacer(
		"{{streams}}", t.Streams,
		"{{snapshots}}", t.Snapshots,
		"{{events}}", t.Events,
	)
}

// Files returns the up migrations of driver in execution order.
func Files(driver database.Driver) ([]string, error) {
	if !driver.IsValid() {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	entries, err := migrationsFS.ReadDir(driver.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)
	return upFiles, nil
}

// Run executes all migrations for the connection's driver in order.
// Every statement is idempotent, so Run may be called on every start.
func Run(ctx context.Context, conn database.Connection, tables Tables) error {
	driver := conn.Driver()
	files, err := Files(driver)
	if err != nil {
		return err
	}

	replacer := tables.replacer()
	for _, file := range files {
		migration, err := migrationsFS.ReadFile(driver.String() + "/" + file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		if _, err := conn.Exec(ctx, replacer.Replace(string(migration))); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	return nil
}
