package grants

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/xiagw/mysql-export/pkg/database"
)

const warningLogSuffix = ".log"

// Options narrows the set of exported accounts.
type Options struct {
	// UserPrefix keeps only users whose name starts with it.
	UserPrefix string
	// IncludeSystem keeps root and the vendor maintenance accounts.
	IncludeSystem bool
}

// Result summarizes an export.
type Result struct {
	Artifact   string
	WarningLog string // empty when no warning was logged
	Outcomes   []Outcome
}

// Failed counts accounts whose grants could not be read.
func (r *Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// WarningLogPath returns the side log used for an artifact.
func WarningLogPath(artifact string) string {
	return artifact + warningLogSuffix
}

// Export writes the accounts and grants of the server behind db to output.
// Only a failure to stage the output or to list accounts is fatal. The
// document is staged next to output and renamed over it once complete, so a
// failed run leaves a previous artifact untouched.
func Export(ctx context.Context, db database.Querier, output string, opts Options) (*Result, error) {
	f, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*")
	if err != nil {
		return nil, fmt.Errorf("unable to create %s: %w", output, err)
	}
	staged := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(staged)
		}
	}()

	accounts, err := ListAccounts(ctx, db, opts)
	if err != nil {
		return nil, err
	}
	result := &Result{Artifact: output}
	logPath := WarningLogPath(output)
	if len(accounts) == 0 {
		log.Info("no accounts matched, nothing exported")
		if err := commit(f, output); err != nil {
			return nil, err
		}
		committed = true
		if err := os.Remove(logPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warnf("unable to remove stale warning log %s: %v", logPath, err)
		}
		return result, nil
	}
	log.Debugf("exporting %d account(s)", len(accounts))

	result.Outcomes = Collect(ctx, db, accounts)
	for _, o := range result.Outcomes {
		if o.Err != nil {
			log.Warnf("skipping grants for %s: %v", o.Account, o.Err)
		}
	}

	if err := WriteDocument(f, result.Outcomes); err != nil {
		return nil, fmt.Errorf("unable to write %s: %w", output, err)
	}
	if err := commit(f, output); err != nil {
		return nil, err
	}
	committed = true

	if used, err := writeWarningLog(logPath, result.Outcomes); err != nil {
		log.Warnf("unable to write warning log %s: %v", logPath, err)
	} else if used {
		result.WarningLog = logPath
	}
	return result, nil
}

// commit closes the staged file and moves it over output.
func commit(f *os.File, output string) error {
	if err := f.Chmod(0o644); err != nil {
		return fmt.Errorf("unable to set mode on %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to close %s: %w", output, err)
	}
	if err := os.Rename(f.Name(), output); err != nil {
		return fmt.Errorf("unable to move staged file to %s: %w", output, err)
	}
	return nil
}

// writeWarningLog projects failed outcomes into a log file next to the
// artifact and removes the file again when it stayed empty.
func writeWarningLog(path string, outcomes []Outcome) (bool, error) {
	f, err := os.Create(path)
	if err != nil {
		return false, err
	}
	logger := log.New()
	logger.SetOutput(f)
	logger.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	WriteWarnings(logger, outcomes)

	info, statErr := f.Stat()
	if err := f.Close(); err != nil {
		return false, err
	}
	if statErr != nil {
		return false, statErr
	}
	if info.Size() == 0 {
		return false, os.Remove(path)
	}
	return true, nil
}
