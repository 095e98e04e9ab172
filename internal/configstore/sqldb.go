package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"
	"github.com/lychee-technology/filterdetect"
	"go.uber.org/zap"
)

// Drivers accepted by SQLStore.
const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
)

// SQLStore reads nodes through database/sql, using lib/pq or the DuckDB driver.
// The table layout matches PostgresStore; properties hold JSON text.
type SQLStore struct {
	db     *sql.DB
	driver string
	table  string
}

// OpenSQLStore opens dsn with driver. For duckdb an empty dsn means an in-memory database.
func OpenSQLStore(ctx context.Context, driver, dsn, table string) (*SQLStore, error) {
	if driver != DriverPostgres && driver != DriverDuckDB {
		return nil, filterdetect.NewFilterError(filterdetect.ErrorTypeConfiguration, filterdetect.ErrCodeUnsupportedDriver,
			"unsupported sql driver").WithDetail("driver", driver)
	}
	if driver == DriverDuckDB && dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverDuckDB {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return NewSQLStore(db, driver, table), nil
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, driver, table string) *SQLStore {
	return &SQLStore{db: db, driver: driver, table: table}
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) placeholder() string {
	if s.driver == DriverDuckDB {
		return "?"
	}
	return "$1"
}

// OpenNode implements filterdetect.ConfigurationProvider. A node without rows is not found.
func (s *SQLStore) OpenNode(ctx context.Context, nodePath string) (filterdetect.NodeAccess, error) {
	rows, err := s.db.QueryContext(ctx, selectNodeSQL(s.table, s.placeholder()), nodePath)
	if err != nil {
		return nil, filterdetect.NewStoreUnavailableError("failed to query configuration node", err).
			WithDetail("node_path", nodePath).WithDetail("driver", s.driver)
	}
	defer rows.Close()

	node := NewNode(nodePath)
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, filterdetect.NewStoreUnavailableError("failed to scan configuration row", err)
		}
		if err := addJSONEntry(node, name, []byte(raw)); err != nil {
			return nil, filterdetect.NewInvalidDocumentError(s.table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, filterdetect.NewStoreUnavailableError("error iterating configuration rows", err)
	}

	if node.Len() == 0 {
		return nil, filterdetect.NewNodeNotFoundError(nodePath).WithDetail("table", s.table)
	}
	zap.S().Debugw("loaded configuration node", "driver", s.driver, "table", s.table, "node_path", nodePath, "entry_count", node.Len())
	return node, nil
}

// Seed creates the table if needed and replaces the rows of every given node in one transaction.
// Properties are stored as JSON text.
func (s *SQLStore) Seed(ctx context.Context, nodes []*Node) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, CreateTableSQL(s.table, "TEXT")); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE node_path = %s", s.table, s.placeholder())
	insert := fmt.Sprintf("INSERT INTO %s (node_path, entry_name, position, properties) VALUES (%s)",
		s.table, s.placeholders(4))
	for _, n := range nodes {
		if _, err = tx.ExecContext(ctx, del, n.Path); err != nil {
			return fmt.Errorf("clear node %s: %w", n.Path, err)
		}
		for i, e := range n.Entries() {
			var props []byte
			if props, err = json.Marshal(e.Properties); err != nil {
				return fmt.Errorf("marshal entry %s: %w", e.Name, err)
			}
			if _, err = tx.ExecContext(ctx, insert, n.Path, e.Name, i, string(props)); err != nil {
				return fmt.Errorf("insert entry %s: %w", e.Name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) placeholders(n int) string {
	out := make([]string, n)
	for i := range out {
		if s.driver == DriverDuckDB {
			out[i] = "?"
		} else {
			out[i] = fmt.Sprintf("$%d", i+1)
		}
	}
	return strings.Join(out, ", ")
}
