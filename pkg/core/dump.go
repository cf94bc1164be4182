package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xiagw/mysql-export/pkg/compression"
	"github.com/xiagw/mysql-export/pkg/database"
	"github.com/xiagw/mysql-export/pkg/predicate"
	"github.com/xiagw/mysql-export/pkg/sqlfilter"
	"github.com/xiagw/mysql-export/pkg/storage"
)

const previousSuffix = ".previous"

var ErrNoTables = fmt.Errorf("%w: no tables match the selection", predicate.ErrSelection)

// Dump runs one export: select, maintain, dump, compress, then rotate and push
// to every target.
func Dump(ctx context.Context, opts DumpOptions) (*DumpResult, error) {
	started := time.Now()
	log.Infof("beginning dump of %s", opts.DBConn.Database)

	pred, err := predicate.Build(opts.Selection)
	if err != nil {
		return nil, err
	}
	log.Debugf("table predicate: %s", pred)

	buckets, err := opts.Catalog.Classify(ctx, pred)
	if err != nil {
		return nil, err
	}

	var warnings []error
	if opts.SkipMaintenance {
		log.Info("skipping table maintenance")
	} else {
		warnings = maintain(ctx, opts.Maintainer, buckets)
	}

	tables, err := opts.Catalog.DumpTables(ctx, pred)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNoTables
	}
	names := database.Names(tables)

	compressor := opts.Compressor
	if compressor == nil {
		compressor = &compression.GzipCompressor{}
	}

	tmpdir, err := os.MkdirTemp(opts.WorkDir, "mysql-export")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary working directory: %w", err)
	}
	defer os.RemoveAll(tmpdir)

	raw := filepath.Join(tmpdir, opts.DBConn.Database+".sql")
	if err := dumpTo(ctx, opts.Dumper, opts.DBConn, names, raw); err != nil {
		return nil, err
	}

	artifact := opts.DBConn.Database + ".sql" + compressor.Extension()
	staged := filepath.Join(tmpdir, artifact)
	if err := compressFile(raw, staged, compressor, opts.StripCompat); err != nil {
		return nil, err
	}

	manifest, err := buildManifest(staged, started)
	if err != nil {
		return nil, err
	}
	manifest.Database = opts.DBConn.Database
	manifest.Artifact = artifact
	manifest.Compression = compressionName(compressor)
	manifest.Tables = names
	for _, w := range warnings {
		manifest.Warnings = append(manifest.Warnings, w.Error())
	}
	manifestName := ManifestName(artifact)
	if err := writeManifest(filepath.Join(tmpdir, manifestName), manifest); err != nil {
		return nil, err
	}

	for _, target := range opts.Targets {
		if err := publish(opts, target, tmpdir, artifact, manifestName); err != nil {
			return nil, err
		}
	}

	log.Infof("dumped %d table(s) of %s to %d target(s) in %s", len(names), opts.DBConn.Database, len(opts.Targets), time.Since(started).Round(time.Millisecond))
	return &DumpResult{Artifact: artifact, Manifest: manifest, Warnings: warnings}, nil
}

// maintain compacts the MyISAM bucket and refreshes statistics on the InnoDB
// bucket. Failures are returned as warnings.
func maintain(ctx context.Context, m Maintainer, buckets database.Buckets) []error {
	var warnings []error
	steps := []struct {
		op     string
		tables []database.Table
		run    func(context.Context, []string) error
	}{
		{"OPTIMIZE", buckets.Compact, m.Optimize},
		{"ANALYZE", buckets.Analyze, m.Analyze},
	}
	for _, step := range steps {
		if len(step.tables) == 0 {
			log.Infof("no tables need %s TABLE, skipping", step.op)
			continue
		}
		log.Debugf("running %s TABLE on %d table(s)", step.op, len(step.tables))
		if err := step.run(ctx, database.Names(step.tables)); err != nil {
			log.Warnf("%v; continuing with the dump", err)
			warnings = append(warnings, err)
		}
	}
	return warnings
}

func dumpTo(ctx context.Context, d Dumper, conn database.Connection, tables []string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create staging file: %w", err)
	}
	if err := d.Dump(ctx, conn, tables, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func compressFile(src, dst string, c compression.Compressor, strip bool) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("unable to create artifact: %w", err)
	}
	defer out.Close()

	cw, err := c.Compress(out)
	if err != nil {
		return fmt.Errorf("unable to create compressor: %w", err)
	}
	if strip {
		_, err = sqlfilter.New().Copy(cw, in)
	} else {
		_, err = io.Copy(cw, in)
	}
	if err != nil {
		cw.Close()
		return fmt.Errorf("failed to compress dump: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to compress dump: %w", err)
	}
	return out.Close()
}

// publish rotates the existing artifact and manifest at target to .previous,
// then pushes the new ones.
func publish(opts DumpOptions, target, dir string, files ...string) error {
	u, err := storage.ParseURL(target)
	if err != nil {
		return fmt.Errorf("invalid target url %s: %w", target, err)
	}
	store, err := storage.ForURL(u)
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := store.Rename(opts.Creds, *u, name, name+previousSuffix); err != nil {
			return fmt.Errorf("failed to rotate %s at %s: %w", name, target, err)
		}
		copied, err := store.Push(opts.Creds, *u, name, filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to push %s to %s: %w", name, target, err)
		}
		log.Debugf("pushed %d bytes of %s to %s", copied, name, target)
	}
	return nil
}

func compressionName(c compression.Compressor) string {
	if ext := strings.TrimPrefix(c.Extension(), "."); ext != "" {
		return ext
	}
	return "none"
}

