package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Maintainer runs per-engine table maintenance before a dump.
type Maintainer struct {
	DB Querier
}

// Optimize compacts the physical layout of the given tables.
func (m Maintainer) Optimize(ctx context.Context, tables []string) error {
	return m.run(ctx, "OPTIMIZE TABLE", tables)
}

// Analyze refreshes index statistics of the given tables.
func (m Maintainer) Analyze(ctx context.Context, tables []string) error {
	return m.run(ctx, "ANALYZE TABLE", tables)
}

func (m Maintainer) run(ctx context.Context, op string, tables []string) error {
	if len(tables) == 0 {
		return nil
	}
	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = QuoteIdentifier(t)
	}
	stmt := op + " " + strings.Join(quoted, ", ")
	log.Debugf("running %s on %d table(s)", op, len(tables))

	rows, err := m.DB.QueryContext(ctx, stmt)
	if err != nil {
		return &MaintenanceError{Op: op, Tables: tables, Err: err}
	}
	defer rows.Close()

	// result set is Table, Op, Msg_type, Msg_text
	var failures []string
	for rows.Next() {
		var table, kind, msgType, msgText sql.NullString
		if err := rows.Scan(&table, &kind, &msgType, &msgText); err != nil {
			return &MaintenanceError{Op: op, Tables: tables, Err: err}
		}
		if strings.EqualFold(msgType.String, "error") {
			failures = append(failures, fmt.Sprintf("%s: %s", table.String, msgText.String))
		}
	}
	if err := rows.Err(); err != nil {
		return &MaintenanceError{Op: op, Tables: tables, Err: err}
	}
	if len(failures) > 0 {
		return &MaintenanceError{Op: op, Tables: tables, Err: errors.New(strings.Join(failures, "; "))}
	}
	return nil
}

// QuoteIdentifier wraps name in backticks.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
