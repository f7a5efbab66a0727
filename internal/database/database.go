package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver
)

// Open connects to the store described by databaseURL and prepares its schema.
//
// Supported forms:
//
//	memory://                      in-process, non-persistent
//	sqlite://<path>, file:<path>   embedded SQLite database
//	postgres://..., postgresql://  PostgreSQL with JSONB documents
func Open(ctx context.Context, databaseURL string) (Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "memory://"):
		log.Info().Msg("Using in-memory document store")
		return NewMemoryStore(), nil

	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		db, err := connect(ctx, "pgx", databaseURL)
		if err != nil {
			return nil, err
		}
		return newMigrated(ctx, db, postgresDialect)

	case strings.HasPrefix(databaseURL, "sqlite://"), strings.HasPrefix(databaseURL, "file:"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err := connect(ctx, "sqlite", sqliteDSN(path))
		if err != nil {
			return nil, err
		}
		if isMemoryPath(path) {
			// Every connection to :memory: is a separate database.
			db.SetMaxOpenConns(1)
		}
		return newMigrated(ctx, db, sqliteDialect)
	}

	return nil, fmt.Errorf("unsupported DATABASE_URL scheme in %q", redact(databaseURL))
}

func newMigrated(ctx context.Context, db *sql.DB, d *dialect) (Store, error) {
	if err := migrate(ctx, db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Str("dialect", d.name).Msg("Document store ready")
	return newSQLStore(db, d), nil
}

// connect creates a new database connection pool and verifies it.
func connect(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", driver, err)
	}
	return db, nil
}

// migrate runs the SQL statements to set up the database schema.
func migrate(ctx context.Context, db *sql.DB, d *dialect) error {
	for _, c := range Collections {
		for _, stmt := range d.schema(string(c)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
		}
	}
	return nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	// Writers take the lock up front so read-modify-write updates never
	// fail with SQLITE_BUSY halfway through a transaction.
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func isMemoryPath(path string) bool {
	return strings.HasPrefix(path, ":memory:") || strings.Contains(path, "mode=memory")
}

// redact hides credentials before a connection string reaches a log or error.
func redact(databaseURL string) string {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return databaseURL
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return databaseURL
}
