package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/isdelr/shelf-api/internal/models"
)

// dialect holds the statements that differ between SQLite and PostgreSQL.
// Table names are always one of Collections, never caller input.
type dialect struct {
	name string

	schema func(table string) []string

	findByID  string
	findOne   string
	findAll   string
	insert    string
	delete    string
	update    string // empty when updates need a read-modify-write transaction
	selectDoc string // used by the read-modify-write path

	fieldArg    func(field string) string
	maintenance []string
}

var sqliteDialect = &dialect{
	name: "sqlite",
	schema: func(table string) []string {
		return []string{
			`CREATE TABLE IF NOT EXISTS ` + table + ` (
				id TEXT NOT NULL PRIMARY KEY,
				doc TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
		}
	},
	findByID:  `SELECT id, doc FROM %s WHERE id = ?`,
	findOne:   `SELECT id, doc FROM %s WHERE json_extract(doc, ?) = ? ORDER BY rowid LIMIT 1`,
	findAll:   `SELECT id, doc FROM %s ORDER BY rowid`,
	insert:    `INSERT INTO %s (id, doc) VALUES (?, ?)`,
	delete:    `DELETE FROM %s WHERE id = ?`,
	selectDoc: `SELECT doc FROM %s WHERE id = ?`,
	fieldArg:  func(field string) string { return "$." + field },
	maintenance: []string{
		`PRAGMA optimize`,
		`PRAGMA wal_checkpoint(TRUNCATE)`,
	},
}

var postgresDialect = &dialect{
	name: "postgres",
	schema: func(table string) []string {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS ` + table + ` (
				seq BIGSERIAL,
				id TEXT NOT NULL PRIMARY KEY,
				doc JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
		}
		if table == string(Users) {
			stmts = append(stmts, `CREATE INDEX IF NOT EXISTS users_email_idx ON users ((doc->>'email'))`)
		}
		return stmts
	},
	findByID: `SELECT id, doc::text FROM %s WHERE id = $1`,
	// ->> stringifies numbers and booleans, so the type check keeps lookups
	// string-only like the other stores.
	findOne:  `SELECT id, doc::text FROM %s WHERE doc->>$1::text = $2 AND jsonb_typeof(doc->$1::text) = 'string' ORDER BY seq LIMIT 1`,
	findAll:  `SELECT id, doc::text FROM %s ORDER BY seq`,
	insert:   `INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`,
	delete:   `DELETE FROM %s WHERE id = $1`,
	// JSONB concatenation replaces top-level keys, which is exactly a field set.
	update:   `UPDATE %s SET doc = doc || $1::jsonb WHERE id = $2`,
	fieldArg: func(field string) string { return field },
	maintenance: []string{
		`ANALYZE users`,
		`ANALYZE books`,
	},
}

// SQLStore keeps documents as JSON in one table per collection.
type SQLStore struct {
	db *sql.DB
	d  *dialect
}

func newSQLStore(db *sql.DB, d *dialect) *SQLStore {
	return &SQLStore{db: db, d: d}
}

// scanDocument is a helper to scan a document from a row or rows object.
func scanDocument(scanner interface{ Scan(...any) error }) (models.Document, error) {
	var id string
	var raw []byte
	if err := scanner.Scan(&id, &raw); err != nil {
		return nil, err
	}
	return decodeStored(id, raw)
}

func (s *SQLStore) FindByID(ctx context.Context, c Collection, id string) (models.Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	id, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(s.d.findByID, c), id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find %s %s: %w", c, id, err)
	}
	return doc, nil
}

func (s *SQLStore) FindOne(ctx context.Context, c Collection, field, value string) (models.Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	if err := checkField(field); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(s.d.findOne, c), s.d.fieldArg(field), value)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find %s by %s: %w", c, field, err)
	}
	return doc, nil
}

func (s *SQLStore) FindAll(ctx context.Context, c Collection) ([]models.Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(s.d.findAll, c))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c, err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *SQLStore) Insert(ctx context.Context, c Collection, doc models.Document) (string, error) {
	if err := checkCollection(c); err != nil {
		return "", err
	}
	raw, err := json.Marshal(doc.WithoutID())
	if err != nil {
		return "", err
	}

	id := NewID()
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.d.insert, c), id, string(raw)); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", c, err)
	}
	return id, nil
}

func (s *SQLStore) Update(ctx context.Context, c Collection, id string, set models.Document) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	id, err := ParseID(id)
	if err != nil {
		return err
	}
	if s.d.update == "" {
		return s.updateInTx(ctx, c, id, set)
	}

	raw, err := json.Marshal(set.WithoutID())
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(s.d.update, c), string(raw), id)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", c, id, err)
	}
	return requireAffected(res)
}

// updateInTx merges the field set in Go for dialects without a shallow JSON merge.
func (s *SQLStore) updateInTx(ctx context.Context, c Collection, id string, set models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx, fmt.Sprintf(s.d.selectDoc, c), id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load %s %s: %w", c, id, err)
	}

	merged, err := mergeFields(raw, set)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET doc = ? WHERE id = ?", c), string(merged), id); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", c, id, err)
	}
	return tx.Commit()
}

func (s *SQLStore) Delete(ctx context.Context, c Collection, id string) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	id, err := ParseID(id)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(s.d.delete, c), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", c, id, err)
	}
	return requireAffected(res)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Maintain runs the dialect's housekeeping statements.
func (s *SQLStore) Maintain(ctx context.Context) error {
	for _, stmt := range s.d.maintenance {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s maintenance %q: %w", s.d.name, stmt, err)
		}
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
