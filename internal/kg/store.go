package kg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kuitang/kgportal-e2e/internal/errs"
)

// Schema is the node table. aliases holds the '|'-joined alias list.
const Schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id TEXT PRIMARY KEY,
	label TEXT NOT NULL DEFAULT '',
	aliases TEXT NOT NULL DEFAULT '',
	pos TEXT NOT NULL DEFAULT '',
	datasource TEXT NOT NULL,
	other TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(label);
`

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 100

// Store keeps nodes in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the node database at dsn. ":memory:" gives a private
// in-memory store.
func Open(dsn string) (*Store, error) {
	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open node database: %w", err)
	}
	// One connection keeps ":memory:" a single database.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping node database: %w", err)
	}
	if err := applyFastSQLitePragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply fast SQLite pragmas: %w", err)
	}
	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize node schema: %w", err)
	}
	return &Store{db: sqlDB}, nil
}

// OpenInMemory opens an empty in-memory store.
func OpenInMemory() (*Store, error) {
	return Open(":memory:")
}

func applyFastSQLitePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces nodes in one transaction.
func (s *Store) Put(ctx context.Context, nodes ...Node) error {
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			return errs.Wrap(errs.InvalidArgument, fmt.Sprintf("node %q", n.ID), err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO nodes (id, label, aliases, pos, datasource, other)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare put: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		if _, err := stmt.ExecContext(ctx, n.ID, n.Label, strings.Join(n.Aliases, aliasSeparator), n.Pos, n.Datasource, n.Other); err != nil {
			return fmt.Errorf("put node %q: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns the node with id, or an errs.NotFound error.
func (s *Store) Get(ctx context.Context, id string) (Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, aliases, pos, datasource, other
		FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Node{}, errs.New(errs.NotFound, fmt.Sprintf("node %q not found", id))
	}
	if err != nil {
		return Node{}, fmt.Errorf("get node %q: %w", id, err)
	}
	return n, nil
}

// Search returns nodes whose label or any alias contains text, ignoring case,
// ordered by label then id. Empty text matches every node. limit <= 0 means
// DefaultSearchLimit. Text containing the alias separator never matches an alias.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]Node, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	text = strings.TrimSpace(text)
	matchAliases := !strings.Contains(text, aliasSeparator)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, aliases, pos, datasource, other
		FROM nodes
		WHERE instr(kg_fold(label), kg_fold(?)) > 0
		   OR (? AND instr(kg_fold(aliases), kg_fold(?)) > 0)
		ORDER BY label, id
		LIMIT ?`, text, matchAliases, text, limit)
	if err != nil {
		return nil, fmt.Errorf("search nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Count returns the number of stored nodes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(sc scanner) (Node, error) {
	var n Node
	var aliases string
	if err := sc.Scan(&n.ID, &n.Label, &aliases, &n.Pos, &n.Datasource, &n.Other); err != nil {
		return Node{}, err
	}
	n.Aliases = splitAliases(aliases)
	return n, nil
}
