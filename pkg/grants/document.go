package grants

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	binlogOff     = "SET @OLD_SQL_LOG_BIN=@@SESSION.SQL_LOG_BIN;\nSET SESSION SQL_LOG_BIN=0;\n\n"
	binlogRestore = "SET SESSION SQL_LOG_BIN=@OLD_SQL_LOG_BIN;\n"
)

// WriteDocument renders the outcomes as a SQL script. Binary logging is
// switched off for the whole script and restored at the end, whatever the
// outcomes contain.
func WriteDocument(w io.Writer, outcomes []Outcome) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(binlogOff)
	for _, o := range outcomes {
		fmt.Fprintf(bw, "-- Account %s\n", o.Account)
		fmt.Fprintf(bw, "CREATE USER IF NOT EXISTS %s;\n", o.Account)
		if o.Err == nil {
			for _, g := range o.Grants {
				bw.WriteString(strings.TrimSuffix(g, ";"))
				bw.WriteString(";\n")
			}
		}
		bw.WriteString("\n")
	}
	bw.WriteString(binlogRestore)
	return bw.Flush()
}

// WriteWarnings logs one warning per failed outcome and returns how many there were.
func WriteWarnings(logger logrus.FieldLogger, outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		logger.WithField("account", o.Account.String()).WithError(o.Err).Warn("grants not exported")
		n++
	}
	return n
}
