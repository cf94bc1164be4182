package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrompter struct {
	password string
	err      error
	calls    int
}

func (s *stubPrompter) Password(string) (string, error) {
	s.calls++
	return s.password, s.err
}

func writeCredentials(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(CredentialsPath(dir, name), []byte(content), 0o600))
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	writeCredentials(t, dir, "shop", `host = file-host
port = 3307
user = file-user
password = file-pass
database = shop_db
prefixes = wp_, shop_
`)

	p, err := Resolve(ResolveOptions{
		ConfigName: "shop",
		ConfigDir:  dir,
		Overrides: Profile{
			Host:     "cli-host",
			Port:     3310,
			User:     "cli-user",
			Password: "cli-pass",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cli-host", p.Host)
	assert.Equal(t, 3310, p.Port)
	assert.Equal(t, "cli-user", p.User)
	assert.Equal(t, "cli-pass", p.Password)
	assert.Equal(t, "shop_db", p.Database)
	assert.Equal(t, []string{"wp_", "shop_"}, p.Prefixes)
}

func TestResolveFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeCredentials(t, dir, "shop", "host=\"db.internal\"\nuser='backup'\npassword=secret\n")

	p, err := Resolve(ResolveOptions{ConfigName: "shop", ConfigDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "db.internal", p.Host)
	assert.Equal(t, defaultPort, p.Port, "port falls back to the built-in default")
	assert.Equal(t, "backup", p.User)
	assert.Equal(t, "secret", p.Password)
	assert.Equal(t, "shop", p.Database, "configuration name supplies the database name")
}

func TestResolveDefaultsOnly(t *testing.T) {
	p, err := Resolve(ResolveOptions{
		ConfigDir: t.TempDir(),
		Overrides: Profile{Database: "app"},
	})
	require.NoError(t, err)
	assert.Equal(t, Defaults().Host, p.Host)
	assert.Equal(t, Defaults().Port, p.Port)
	assert.Equal(t, Defaults().User, p.User)
	assert.Equal(t, "app", p.Database)
}

func TestResolveUnnamedFile(t *testing.T) {
	dir := t.TempDir()
	writeCredentials(t, dir, "", "database = reports\n")

	p, err := Resolve(ResolveOptions{ConfigDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "reports", p.Database)
}

func TestResolveMissingDatabaseName(t *testing.T) {
	_, err := Resolve(ResolveOptions{ConfigDir: t.TempDir()})
	require.ErrorIs(t, err, ErrMissingDatabaseName)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolveMissingNamedCredentials(t *testing.T) {
	_, err := Resolve(ResolveOptions{ConfigName: "absent", ConfigDir: t.TempDir()})
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolvePromptsForMissingPassword(t *testing.T) {
	prompter := &stubPrompter{password: "typed"}
	p, err := Resolve(ResolveOptions{
		ConfigDir:       t.TempDir(),
		Overrides:       Profile{Database: "app"},
		RequirePassword: true,
		Prompter:        prompter,
	})
	require.NoError(t, err)
	assert.Equal(t, "typed", p.Password)
	assert.Equal(t, 1, prompter.calls)
}

func TestResolveDoesNotPromptWhenPasswordKnown(t *testing.T) {
	prompter := &stubPrompter{password: "typed"}
	p, err := Resolve(ResolveOptions{
		ConfigDir:       t.TempDir(),
		Overrides:       Profile{Database: "app", Password: "given"},
		RequirePassword: true,
		Prompter:        prompter,
	})
	require.NoError(t, err)
	assert.Equal(t, "given", p.Password)
	assert.Zero(t, prompter.calls)
}

func TestResolvePromptFailure(t *testing.T) {
	prompter := &stubPrompter{err: errors.New("not a terminal")}
	_, err := Resolve(ResolveOptions{
		ConfigDir:       t.TempDir(),
		Overrides:       Profile{Database: "app"},
		RequirePassword: true,
		Prompter:        prompter,
	})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadCredentialsInvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".bad.credentials")
	require.NoError(t, os.WriteFile(path, []byte("port = abc\n"), 0o600))

	_, err := LoadCredentials(path)
	assert.Error(t, err)
}

func TestMergeCopiesPrefixes(t *testing.T) {
	src := []string{"a_"}
	p := Merge(Profile{Prefixes: src})
	p.Prefixes[0] = "changed"
	assert.Equal(t, "a_", src[0])
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList(" a, b\tc ,"))
	assert.Nil(t, SplitList(" , "))
}

func TestResolveOptionalDatabase(t *testing.T) {
	p, err := Resolve(ResolveOptions{ConfigDir: t.TempDir(), OptionalDatabase: true})
	require.NoError(t, err)
	assert.Empty(t, p.Database)
}
