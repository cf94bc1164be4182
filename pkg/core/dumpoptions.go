package core

import (
	"context"
	"io"

	"github.com/xiagw/mysql-export/pkg/compression"
	"github.com/xiagw/mysql-export/pkg/database"
	"github.com/xiagw/mysql-export/pkg/predicate"
	"github.com/xiagw/mysql-export/pkg/storage/credentials"
)

// Catalog lists and classifies the tables of one schema.
type Catalog interface {
	Classify(ctx context.Context, pred predicate.Predicate) (database.Buckets, error)
	DumpTables(ctx context.Context, pred predicate.Predicate) ([]database.Table, error)
}

// Maintainer runs engine specific table maintenance.
type Maintainer interface {
	Optimize(ctx context.Context, tables []string) error
	Analyze(ctx context.Context, tables []string) error
}

// Dumper writes a logical dump of tables to w.
type Dumper interface {
	Dump(ctx context.Context, conn database.Connection, tables []string, w io.Writer) error
}

type DumpOptions struct {
	// Targets are URLs or local paths, each receiving the artifact and its manifest.
	Targets         []string
	DBConn          database.Connection
	Selection       predicate.Selection
	Creds           credentials.Creds
	Compressor      compression.Compressor
	Catalog         Catalog
	Maintainer      Maintainer
	Dumper          Dumper
	SkipMaintenance bool
	// StripCompat unwraps pre-8.0 versioned comments while compressing.
	StripCompat bool
	// WorkDir holds the staging files; empty means the system temp dir.
	WorkDir string
}

// DumpResult describes a completed dump.
type DumpResult struct {
	Artifact string
	Manifest *Manifest
	// Warnings are the non-fatal maintenance failures.
	Warnings []error
}
