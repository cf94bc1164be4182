package database

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"unicode"

	log "github.com/sirupsen/logrus"
)

const (
	// max length of a single dump line, extended INSERTs can be long
	maxStatementLine = 64 * 1024 * 1024
	defaultDelimiter = ";"
)

// Restore replays the statements read from each reader, one transaction per
// reader. A statement ends at a line ending in the active delimiter, which
// DELIMITER lines change as in the mysql client. Comment lines between
// statements are skipped.
func Restore(ctx context.Context, db *sql.DB, readers []io.Reader) error {
	for i, r := range readers {
		tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("failed to restore database: %w", err)
		}
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStatementLine)
		var (
			current   strings.Builder
			count     int
			delimiter = defaultDelimiter
		)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if current.Len() == 0 {
				if strings.HasPrefix(line, "-- ") {
					continue
				}
				if d, ok := delimiterDirective(line); ok {
					delimiter = d
					continue
				}
			}
			current.WriteString(line)
			current.WriteString("\n")
			if !strings.HasSuffix(strings.TrimRightFunc(line, unicode.IsSpace), delimiter) {
				continue
			}
			// we hit a break, so we have the entire statement
			stmt := strings.TrimSuffix(strings.TrimRightFunc(current.String(), unicode.IsSpace), delimiter)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to restore database: %w", err)
			}
			current.Reset()
			count++
		}
		if err := scanner.Err(); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to read restore input: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to restore database: %w", err)
		}
		log.Debugf("applied %d statement(s) from input %d", count, i+1)
	}

	return nil
}

// delimiterDirective parses a mysql client DELIMITER line.
func delimiterDirective(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "DELIMITER") {
		return "", false
	}
	return fields[1], true
}
