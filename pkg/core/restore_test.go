package core

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiagw/mysql-export/pkg/compression"
	"github.com/xiagw/mysql-export/pkg/storage/credentials"
)

const grantsScript = "CREATE USER IF NOT EXISTS 'app'@'%';\nGRANT SELECT ON shop.* TO 'app'@'%';\n"

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := (&compression.GzipCompressor{}).Compress(f)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestRestoreCompressedArtifact(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "grants.sql.gz")
	writeGzip(t, artifact, grantsScript)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE USER IF NOT EXISTS 'app'@'%'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("GRANT SELECT ON shop.* TO 'app'@'%'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, Restore(context.Background(), db, artifact, credentials.Creds{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRestoreChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "shop.sql")
	require.NoError(t, os.WriteFile(artifact, []byte(grantsScript), 0o644))
	require.NoError(t, writeManifest(filepath.Join(dir, ManifestName("shop.sql")), &Manifest{SHA256: "0000"}))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = Restore(context.Background(), db, artifact, credentials.Creds{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing is replayed")
}

func TestRestoreDumpedArtifact(t *testing.T) {
	target := t.TempDir()
	opts, _, _, dumper := dumpOptions(t, target)
	dumper.output = grantsScript
	_, err := Dump(context.Background(), opts)
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE USER")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("GRANT SELECT")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, Restore(context.Background(), db, filepath.Join(target, "shop.sql.gz"), credentials.Creds{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
