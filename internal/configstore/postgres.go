package configstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/filterdetect"
	"go.uber.org/zap"
)

// PgQuerier is the subset of pgxpool.Pool used to read nodes. pgxmock pools satisfy it.
type PgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgBeginner starts transactions for seeding.
type PgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore reads nodes from a table
// (node_path TEXT, entry_name TEXT, position INT, properties JSONB).
type PostgresStore struct {
	db    PgQuerier
	table string
}

// NewPostgresStore creates a store reading table through db.
func NewPostgresStore(db PgQuerier, table string) *PostgresStore {
	return &PostgresStore{db: db, table: table}
}

func selectNodeSQL(table, placeholder string) string {
	return fmt.Sprintf(
		"SELECT entry_name, properties FROM %s WHERE node_path = %s ORDER BY position, entry_name",
		table, placeholder)
}

// OpenNode implements filterdetect.ConfigurationProvider. A node without rows is not found.
func (s *PostgresStore) OpenNode(ctx context.Context, nodePath string) (filterdetect.NodeAccess, error) {
	rows, err := s.db.Query(ctx, selectNodeSQL(s.table, "$1"), nodePath)
	if err != nil {
		return nil, filterdetect.NewStoreUnavailableError("failed to query configuration node", err).
			WithDetail("node_path", nodePath)
	}
	defer rows.Close()

	node := NewNode(nodePath)
	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, filterdetect.NewStoreUnavailableError("failed to scan configuration row", err)
		}
		if err := addJSONEntry(node, name, raw); err != nil {
			return nil, filterdetect.NewInvalidDocumentError(s.table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, filterdetect.NewStoreUnavailableError("error iterating configuration rows", err)
	}

	if node.Len() == 0 {
		return nil, filterdetect.NewNodeNotFoundError(nodePath).WithDetail("table", s.table)
	}
	zap.S().Debugw("loaded configuration node from postgres", "table", s.table, "node_path", nodePath, "entry_count", node.Len())
	return node, nil
}

func addJSONEntry(node *Node, name string, raw []byte) error {
	props := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &props); err != nil {
			return fmt.Errorf("entry %q: invalid properties: %w", name, err)
		}
	}
	return node.Add(name, props)
}

// CreateTableSQL returns the DDL of the configuration table. It is valid for Postgres and DuckDB
// when jsonType is JSONB or JSON respectively.
func CreateTableSQL(table, jsonType string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    node_path  TEXT    NOT NULL,
    entry_name TEXT    NOT NULL,
    position   INTEGER NOT NULL,
    properties %s      NOT NULL,
    PRIMARY KEY (node_path, entry_name)
)`, table, jsonType)
}

// SeedPostgres creates table if needed and replaces the rows of every given node in one transaction.
func SeedPostgres(ctx context.Context, db PgBeginner, table string, nodes []*Node) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, CreateTableSQL(table, "JSONB")); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (node_path, entry_name, position, properties) VALUES ($1, $2, $3, $4)", table)
	for _, n := range nodes {
		var tag pgconn.CommandTag
		if tag, err = tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE node_path = $1", table), n.Path); err != nil {
			return fmt.Errorf("clear node %s: %w", n.Path, err)
		}
		zap.S().Debugw("cleared configuration node", "node_path", n.Path, "rows", tag.RowsAffected())
		for i, e := range n.Entries() {
			var props []byte
			if props, err = json.Marshal(e.Properties); err != nil {
				return fmt.Errorf("marshal entry %s: %w", e.Name, err)
			}
			if _, err = tx.Exec(ctx, insert, n.Path, e.Name, i, props); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.Name, err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	return nil
}
