package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	credentialsSuffix      = ".credentials"
	defaultCredentialsFile = ".credentials"
)

var (
	// ErrConfiguration is the parent of every resolution failure. All of them
	// happen before any network call.
	ErrConfiguration       = errors.New("configuration error")
	ErrMissingCredentials  = fmt.Errorf("%w: missing credentials file", ErrConfiguration)
	ErrMissingDatabaseName = fmt.Errorf("%w: missing database name", ErrConfiguration)
)

// ResolveOptions describes the sources to merge.
type ResolveOptions struct {
	// ConfigName selects .{ConfigName}.credentials; empty means the unnamed file.
	ConfigName string
	// ConfigDir is where credentials files live.
	ConfigDir string
	// Overrides holds values explicitly given on the command line.
	Overrides Profile
	// RequirePassword prompts when no layer supplied a password.
	RequirePassword bool
	Prompter        PasswordPrompter
	// OptionalDatabase allows a profile without a database, for server wide work.
	OptionalDatabase bool
}

// CredentialsPath returns the credentials file for a configuration name.
func CredentialsPath(dir, name string) string {
	if name == "" {
		return filepath.Join(dir, defaultCredentialsFile)
	}
	return filepath.Join(dir, "."+name+credentialsSuffix)
}

// DefaultConfigDir is the directory holding the running executable.
func DefaultConfigDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// Resolve builds the profile for this invocation from defaults, the
// credentials file and the command line overrides, in that order.
func Resolve(opts ResolveOptions) (Profile, error) {
	base := Defaults()
	// a named configuration backs up the schema it is named after, unless told otherwise
	base.Database = opts.ConfigName

	path := CredentialsPath(opts.ConfigDir, opts.ConfigName)
	file, err := LoadCredentials(path)
	switch {
	case err == nil:
		log.Debugf("loaded credentials from %s", path)
	case errors.Is(err, os.ErrNotExist) && opts.ConfigName == "":
		log.Debugf("no default credentials file at %s", path)
	default:
		return Profile{}, fmt.Errorf("%w %s: %v", ErrMissingCredentials, path, err)
	}

	p := Merge(base, file, opts.Overrides)
	if p.Database == "" && !opts.OptionalDatabase {
		return Profile{}, ErrMissingDatabaseName
	}

	if opts.RequirePassword && p.Password == "" {
		prompter := opts.Prompter
		if prompter == nil {
			prompter = TerminalPrompter{}
		}
		pass, err := prompter.Password(fmt.Sprintf("Enter password for %s@%s: ", p.User, p.Host))
		if err != nil {
			return Profile{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		p.Password = pass
	}
	return p, nil
}

// LoadCredentials reads a credentials file of key = value lines.
func LoadCredentials(path string) (Profile, error) {
	if _, err := os.Stat(path); err != nil {
		return Profile{}, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		return Profile{}, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	p := Profile{
		Host:     unquote(v.GetString("host")),
		User:     unquote(v.GetString("user")),
		Password: unquote(v.GetString("password")),
		Database: unquote(v.GetString("database")),
		Prefixes: SplitList(unquote(v.GetString("prefixes"))),
	}
	if raw := unquote(v.GetString("port")); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &p.Port); err != nil {
			return Profile{}, fmt.Errorf("invalid port %q in %s", raw, path)
		}
	}
	return p, nil
}

// SplitList splits a comma or whitespace separated list, dropping empty entries.
func SplitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
