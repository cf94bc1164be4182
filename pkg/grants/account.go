// Package grants exports server accounts and their privileges as a replayable
// SQL script.
package grants

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiagw/mysql-export/pkg/database"
	"github.com/xiagw/mysql-export/pkg/predicate"
)

// SystemAccounts are skipped unless explicitly included.
var SystemAccounts = []string{
	"root",
	"mysql.sys",
	"mysql.session",
	"mysql.infoschema",
	"mariadb.sys",
	"debian-sys-maint",
}

// Account identifies a server account.
type Account struct {
	User string
	Host string
}

// String renders the account as 'user'@'host'.
func (a Account) String() string {
	return fmt.Sprintf("'%s'@'%s'", predicate.QuoteString(a.User), predicate.QuoteString(a.Host))
}

// Outcome is the result of inspecting one account. Err is set when its
// grants could not be read.
type Outcome struct {
	Account Account
	Grants  []string
	Err     error
}

func listQuery(opts Options) (string, []interface{}) {
	var (
		b    strings.Builder
		args []interface{}
	)
	b.WriteString("SELECT User, Host FROM mysql.user WHERE User <> ''")
	if !opts.IncludeSystem {
		b.WriteString(" AND User NOT IN (")
		for i, name := range SystemAccounts {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, name)
		}
		b.WriteString(")")
	}
	if opts.UserPrefix != "" {
		b.WriteString(" AND User LIKE ?")
		args = append(args, predicate.LikePrefixArg(opts.UserPrefix))
	}
	b.WriteString(" ORDER BY User, Host")
	return b.String(), args
}

// ListAccounts returns the accounts to export, ordered by user then host.
func ListAccounts(ctx context.Context, db database.Querier, opts Options) ([]Account, error) {
	query, args := listQuery(opts)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &database.CatalogQueryError{Op: "list accounts", Err: err}
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.User, &a.Host); err != nil {
			return nil, &database.CatalogQueryError{Op: "list accounts", Err: err}
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &database.CatalogQueryError{Op: "list accounts", Err: err}
	}
	return accounts, nil
}

// Grants returns the non-empty SHOW GRANTS lines for a, in server order.
func Grants(ctx context.Context, db database.Querier, a Account) ([]string, error) {
	op := "show grants for " + a.String()
	rows, err := db.QueryContext(ctx, "SHOW GRANTS FOR "+a.String())
	if err != nil {
		return nil, &database.CatalogQueryError{Op: op, Err: err}
	}
	defer rows.Close()

	var grants []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, &database.CatalogQueryError{Op: op, Err: err}
		}
		if line = strings.TrimSpace(line); line != "" {
			grants = append(grants, line)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &database.CatalogQueryError{Op: op, Err: err}
	}
	return grants, nil
}

// Collect inspects every account in order. A failure to read one account's
// grants is recorded in its outcome and does not stop the others.
func Collect(ctx context.Context, db database.Querier, accounts []Account) []Outcome {
	outcomes := make([]Outcome, 0, len(accounts))
	for _, a := range accounts {
		grants, err := Grants(ctx, db, a)
		outcomes = append(outcomes, Outcome{Account: a, Grants: grants, Err: err})
	}
	return outcomes
}
