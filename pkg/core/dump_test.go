package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiagw/mysql-export/pkg/compression"
	"github.com/xiagw/mysql-export/pkg/database"
	"github.com/xiagw/mysql-export/pkg/predicate"
)

type fakeCatalog struct {
	buckets database.Buckets
	tables  []database.Table
	calls   int
}

func (f *fakeCatalog) Classify(ctx context.Context, pred predicate.Predicate) (database.Buckets, error) {
	f.calls++
	return f.buckets, nil
}

func (f *fakeCatalog) DumpTables(ctx context.Context, pred predicate.Predicate) ([]database.Table, error) {
	f.calls++
	return f.tables, nil
}

type fakeMaintainer struct {
	optimized, analyzed [][]string
	optimizeErr         error
}

func (f *fakeMaintainer) Optimize(ctx context.Context, tables []string) error {
	f.optimized = append(f.optimized, tables)
	return f.optimizeErr
}

func (f *fakeMaintainer) Analyze(ctx context.Context, tables []string) error {
	f.analyzed = append(f.analyzed, tables)
	return nil
}

type fakeDumper struct {
	output string
	tables []string
}

func (f *fakeDumper) Dump(ctx context.Context, conn database.Connection, tables []string, w io.Writer) error {
	f.tables = tables
	_, err := io.WriteString(w, f.output)
	return err
}

func dumpOptions(t *testing.T, target string) (DumpOptions, *fakeCatalog, *fakeMaintainer, *fakeDumper) {
	t.Helper()
	catalog := &fakeCatalog{
		buckets: database.Buckets{
			Analyze: []database.Table{{Name: "wp_posts", Engine: database.EngineInnoDB}},
		},
		tables: []database.Table{
			{Name: "wp_posts", Engine: database.EngineInnoDB},
			{Name: "wp_recent"},
		},
	}
	maintainer := &fakeMaintainer{}
	dumper := &fakeDumper{output: "CREATE TABLE wp_posts (id int);\n"}
	return DumpOptions{
		Targets:    []string{target},
		DBConn:     database.Connection{Database: "shop"},
		Selection:  predicate.Selection{Prefixes: []string{"wp_"}},
		Compressor: &compression.GzipCompressor{},
		Catalog:    catalog,
		Maintainer: maintainer,
		Dumper:     dumper,
		WorkDir:    t.TempDir(),
	}, catalog, maintainer, dumper
}

func readArtifact(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r, err := compression.Detect(path).Uncompress(f)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestDump(t *testing.T) {
	target := t.TempDir()
	opts, _, maintainer, dumper := dumpOptions(t, target)

	res, err := Dump(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "shop.sql.gz", res.Artifact)
	assert.Empty(t, res.Warnings)

	assert.Empty(t, maintainer.optimized, "no MyISAM tables, OPTIMIZE must not run")
	assert.Equal(t, [][]string{{"wp_posts"}}, maintainer.analyzed)
	assert.Equal(t, []string{"wp_posts", "wp_recent"}, dumper.tables)

	assert.Equal(t, dumper.output, readArtifact(t, filepath.Join(target, "shop.sql.gz")))

	m, err := ReadManifest(filepath.Join(target, "shop.sql.gz.manifest.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "shop", m.Database)
	assert.Equal(t, "gz", m.Compression)
	assert.Equal(t, []string{"wp_posts", "wp_recent"}, m.Tables)
	assert.NoError(t, m.Verify(filepath.Join(target, "shop.sql.gz")))
}

func TestDumpMaintenanceFailureIsWarning(t *testing.T) {
	opts, catalog, maintainer, _ := dumpOptions(t, t.TempDir())
	catalog.buckets.Compact = []database.Table{{Name: "wp_log", Engine: database.EngineMyISAM}}
	maintainer.optimizeErr = &database.MaintenanceError{Op: "OPTIMIZE", Tables: []string{"wp_log"}, Err: errors.New("access denied")}

	res, err := Dump(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	var merr *database.MaintenanceError
	assert.ErrorAs(t, res.Warnings[0], &merr)
	assert.Len(t, maintainer.analyzed, 1, "statistics refresh still runs")
	assert.Len(t, res.Manifest.Warnings, 1)
}

func TestDumpSkipMaintenance(t *testing.T) {
	opts, catalog, maintainer, _ := dumpOptions(t, t.TempDir())
	catalog.buckets.Compact = []database.Table{{Name: "wp_log", Engine: database.EngineMyISAM}}
	opts.SkipMaintenance = true

	_, err := Dump(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, maintainer.optimized)
	assert.Empty(t, maintainer.analyzed)
}

func TestDumpNoTables(t *testing.T) {
	opts, catalog, _, _ := dumpOptions(t, t.TempDir())
	catalog.tables = nil

	_, err := Dump(context.Background(), opts)
	require.ErrorIs(t, err, ErrNoTables)
	assert.ErrorIs(t, err, predicate.ErrSelection)
}

func TestDumpSelectionErrorBeforeQuery(t *testing.T) {
	opts, catalog, _, _ := dumpOptions(t, t.TempDir())
	opts.Selection = predicate.Selection{}

	_, err := Dump(context.Background(), opts)
	require.ErrorIs(t, err, predicate.ErrMissingPrefixConfiguration)
	assert.Zero(t, catalog.calls)
}

func TestDumpRotationKeepsOnePrevious(t *testing.T) {
	target := t.TempDir()
	for _, content := range []string{"-- run 1\n", "-- run 2\n", "-- run 3\n"} {
		opts, _, _, dumper := dumpOptions(t, target)
		dumper.output = content
		_, err := Dump(context.Background(), opts)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	var previous []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), previousSuffix) {
			previous = append(previous, e.Name())
		}
	}
	assert.ElementsMatch(t, []string{"shop.sql.gz.previous", "shop.sql.gz.manifest.yaml.previous"}, previous)
	assert.Equal(t, "-- run 3\n", readArtifact(t, filepath.Join(target, "shop.sql.gz")))

	prev, err := os.ReadFile(filepath.Join(target, "shop.sql.gz.previous"))
	require.NoError(t, err)
	r, err := (&compression.GzipCompressor{}).Uncompress(bytes.NewReader(prev))
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "-- run 2\n", string(data))
}

func TestDumpStripCompat(t *testing.T) {
	target := t.TempDir()
	opts, _, _, dumper := dumpOptions(t, target)
	opts.Compressor = &compression.NoCompressor{}
	opts.StripCompat = true
	dumper.output = "/*!40101 SET NAMES utf8mb4 */;\n/*!80016 DEFAULT ENCRYPTION='N' */;\n"

	res, err := Dump(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "shop.sql", res.Artifact)
	assert.Equal(t, "none", res.Manifest.Compression)
	data, err := os.ReadFile(filepath.Join(target, "shop.sql"))
	require.NoError(t, err)
	assert.Equal(t, " SET NAMES utf8mb4 ;\n/*!80016 DEFAULT ENCRYPTION='N' */;\n", string(data))
}

func TestDumpFailureLeavesTargetUntouched(t *testing.T) {
	target := t.TempDir()
	opts, _, _, _ := dumpOptions(t, target)
	opts.Dumper = failingDumper{}

	_, err := Dump(context.Background(), opts)
	require.Error(t, err)
	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingDumper struct{}

func (failingDumper) Dump(context.Context, database.Connection, []string, io.Writer) error {
	return errors.New("mysqldump failed: exit status 2")
}
