package core

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/xiagw/mysql-export/pkg/compression"
	"github.com/xiagw/mysql-export/pkg/database"
	"github.com/xiagw/mysql-export/pkg/storage"
	"github.com/xiagw/mysql-export/pkg/storage/credentials"
)

// Restore pulls a dump or grants artifact from target and replays it into db.
// The compression format is taken from the file name. When a manifest sits
// next to the artifact, its checksum must match.
func Restore(ctx context.Context, db *sql.DB, target string, creds credentials.Creds) error {
	log.Info("beginning restore")

	u, err := storage.ParseURL(target)
	if err != nil {
		return fmt.Errorf("invalid target url: %w", err)
	}
	log.Debugf("restore target: %#v", u)
	store, err := storage.ForURL(u)
	if err != nil {
		return err
	}

	tmpdir, err := os.MkdirTemp("", "restore")
	if err != nil {
		return fmt.Errorf("unable to create temporary working directory: %w", err)
	}
	defer os.RemoveAll(tmpdir)

	name := path.Base(u.Path)
	local := filepath.Join(tmpdir, name)
	copied, err := store.Pull(creds, *u, local)
	if err != nil {
		return fmt.Errorf("failed to pull target %s: %w", target, err)
	}
	log.Debugf("completed copying %d bytes", copied)

	if err := verifyManifest(store, creds, *u, tmpdir, local); err != nil {
		return err
	}

	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("unable to read the temporary download file: %w", err)
	}
	defer f.Close()

	cr, err := compression.Detect(name).Uncompress(f)
	if err != nil {
		return fmt.Errorf("unable to create an uncompressor: %w", err)
	}
	if c, ok := cr.(io.Closer); ok {
		defer c.Close()
	}
	if err := database.Restore(ctx, db, []io.Reader{cr}); err != nil {
		return err
	}
	log.Infof("restored %s", target)
	return nil
}

func verifyManifest(store storage.Storage, creds credentials.Creds, u url.URL, dir, local string) error {
	mu := u
	mu.Path = ManifestName(u.Path)
	mpath := filepath.Join(dir, ManifestName(filepath.Base(local)))
	if _, err := store.Pull(creds, mu, mpath); err != nil {
		log.Debugf("no manifest next to %s, skipping checksum verification", u.Path)
		return nil
	}
	m, err := ReadManifest(mpath)
	if err != nil {
		return err
	}
	if err := m.Verify(local); err != nil {
		return err
	}
	log.Debugf("artifact matches manifest checksum %s", m.SHA256)
	return nil
}
