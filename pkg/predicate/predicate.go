// Package predicate builds the SQL filter used to select tables from
// information_schema.TABLES.
package predicate

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Column is the catalog column every predicate filters on.
	Column = "TABLE_NAME"
	// BackupMarker marks prior backup copies, which prefix selection never picks up.
	BackupMarker = "_backup_"
)

var (
	// ErrSelection is the parent of every table selection failure.
	ErrSelection                  = errors.New("selection error")
	ErrEmptyTableList             = fmt.Errorf("%w: explicit table list is empty", ErrSelection)
	ErrMissingPrefixConfiguration = fmt.Errorf("%w: no table prefixes and no explicit table list configured", ErrSelection)
)

// Selection describes which tables to export. When Explicit is set, Tables is
// used verbatim and Prefixes are ignored.
type Selection struct {
	Tables   []string
	Explicit bool
	Prefixes []string
}

// Predicate is a boolean SQL expression over a catalog row.
type Predicate struct {
	sql      string
	explicit bool
}

func (p Predicate) String() string { return p.sql }

// Explicit reports whether the predicate came from an explicit table list.
func (p Predicate) Explicit() bool { return p.explicit }

// ParseTableList splits a comma or whitespace separated list of table names.
func ParseTableList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// Build turns a selection into a predicate.
func Build(sel Selection) (Predicate, error) {
	if sel.Explicit {
		return explicit(sel.Tables)
	}
	return prefixed(sel.Prefixes)
}

func explicit(tables []string) (Predicate, error) {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		if t = strings.TrimSpace(t); t != "" {
			names = append(names, "'"+QuoteString(t)+"'")
		}
	}
	if len(names) == 0 {
		return Predicate{}, ErrEmptyTableList
	}
	return Predicate{
		sql:      fmt.Sprintf("%s IN (%s)", Column, strings.Join(names, ",")),
		explicit: true,
	}, nil
}

func prefixed(prefixes []string) (Predicate, error) {
	clauses := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			clauses = append(clauses, fmt.Sprintf("%s LIKE '%s%%'", Column, EscapeLike(p)))
		}
	}
	if len(clauses) == 0 {
		return Predicate{}, ErrMissingPrefixConfiguration
	}
	return Predicate{
		sql: fmt.Sprintf("(%s) AND %s NOT LIKE '%%%s%%'",
			strings.Join(clauses, " OR "), Column, EscapeLike(BackupMarker)),
	}, nil
}

// QuoteString escapes s for use inside a single quoted string literal.
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// EscapeLike escapes s for use inside a single quoted LIKE pattern so that it
// only ever matches itself.
func EscapeLike(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			// the literal collapses \\\\ to \\, which LIKE reads as one backslash
			b.WriteString(`\\\\`)
		case '\'':
			b.WriteString("''")
		case '%':
			b.WriteString(`\%`)
		case '_':
			b.WriteString(`\_`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LikePrefixArg returns a LIKE pattern for use as a bound query argument,
// where no string literal escaping applies.
func LikePrefixArg(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(prefix) + "%"
}
