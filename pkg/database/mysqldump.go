package database

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const defaultMysqldump = "mysqldump"

// Mysqldump runs the external mysqldump binary.
type Mysqldump struct {
	// Binary defaults to mysqldump on PATH.
	Binary    string
	ExtraArgs []string
}

// Args returns the command line, without the password, for dumping the given
// tables of conn.Database.
func (m Mysqldump) Args(conn Connection, tables []string) []string {
	args := []string{
		"--single-transaction",
		"--routines",
		"--triggers",
		"--skip-dump-date",
		"--host", conn.Host,
		"--port", strconv.Itoa(conn.Port),
		"--user", conn.User,
	}
	args = append(args, m.ExtraArgs...)
	args = append(args, conn.Database)
	return append(args, tables...)
}

// Dump writes the dump of tables to w. The password travels in MYSQL_PWD so it
// never shows up in the process list.
func (m Mysqldump) Dump(ctx context.Context, conn Connection, tables []string, w io.Writer) error {
	bin := m.Binary
	if bin == "" {
		bin = defaultMysqldump
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, m.Args(conn, tables)...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+conn.Pass)
	cmd.Stdout = w
	cmd.Stderr = &stderr

	log.Debugf("running %s for %d table(s) of %s (arguments hidden)", bin, len(tables), conn.Database)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("mysqldump failed: %w: %s", err, msg)
		}
		return fmt.Errorf("mysqldump failed: %w", err)
	}
	return nil
}
