package database

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/xiagw/mysql-export/pkg/predicate"
)

const (
	EngineMyISAM = "MyISAM"
	EngineInnoDB = "InnoDB"
)

// Querier is the subset of *sql.DB the catalog and maintenance code use.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Table is one catalog row.
type Table struct {
	Name   string
	Engine string
}

// Buckets splits the selected base tables by the maintenance they need.
type Buckets struct {
	// Compact holds MyISAM tables, which get OPTIMIZE TABLE.
	Compact []Table
	// Analyze holds InnoDB tables, which get ANALYZE TABLE.
	Analyze []Table
}

// Catalog reads information_schema for one schema.
type Catalog struct {
	DB     Querier
	Schema string
}

func NewCatalog(db Querier, schema string) *Catalog {
	return &Catalog{DB: db, Schema: schema}
}

// Classify runs one query per engine bucket. Empty buckets are fine.
func (c *Catalog) Classify(ctx context.Context, pred predicate.Predicate) (Buckets, error) {
	var (
		b   Buckets
		err error
	)
	if b.Compact, err = c.tablesByEngine(ctx, pred, EngineMyISAM); err != nil {
		return Buckets{}, err
	}
	if b.Analyze, err = c.tablesByEngine(ctx, pred, EngineInnoDB); err != nil {
		return Buckets{}, err
	}
	log.Debugf("classified %d %s and %d %s table(s) in %s", len(b.Compact), EngineMyISAM, len(b.Analyze), EngineInnoDB, c.Schema)
	return b, nil
}

// DumpTables lists base tables and views matching the predicate.
func (c *Catalog) DumpTables(ctx context.Context, pred predicate.Predicate) ([]Table, error) {
	query := fmt.Sprintf(`SELECT TABLE_NAME, COALESCE(ENGINE, '') FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ? AND TABLE_TYPE IN ('BASE TABLE', 'VIEW') AND %s
ORDER BY TABLE_NAME`, pred)
	return c.query(ctx, "list dump tables", query, c.Schema)
}

func (c *Catalog) tablesByEngine(ctx context.Context, pred predicate.Predicate, engine string) ([]Table, error) {
	query := fmt.Sprintf(`SELECT TABLE_NAME, ENGINE FROM information_schema.TABLES
WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE' AND ENGINE = ? AND %s
ORDER BY TABLE_NAME`, pred)
	return c.query(ctx, "list "+engine+" tables", query, c.Schema, engine)
}

func (c *Catalog) query(ctx context.Context, op, query string, args ...interface{}) ([]Table, error) {
	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &CatalogQueryError{Op: op, Err: err}
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Name, &t.Engine); err != nil {
			return nil, &CatalogQueryError{Op: op, Err: err}
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &CatalogQueryError{Op: op, Err: err}
	}
	return tables, nil
}

// Names returns the table names in order.
func Names(tables []Table) []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}
