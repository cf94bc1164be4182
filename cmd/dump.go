package cmd

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiagw/mysql-export/pkg/compression"
	"github.com/xiagw/mysql-export/pkg/core"
	"github.com/xiagw/mysql-export/pkg/database"
	"github.com/xiagw/mysql-export/pkg/predicate"
)

const defaultCompression = "gzip"

func dumpCmd() (*cobra.Command, error) {
	var v *viper.Viper
	var cmd = &cobra.Command{
		Use:     "dump [config-name]",
		Aliases: []string{"backup"},
		Short:   "dump selected tables of a database",
		Long: `Dump the tables of one database to one or more target locations.
		Tables are picked either from an explicit --tables list, or by name prefix,
		in which case tables containing "_backup_" are left out. Before dumping,
		MyISAM tables are optimized and InnoDB tables analyzed; failures there are
		only warnings. The artifact at each target is first moved to <name>.previous.`,
		Args: cobra.MaximumNArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Debug("starting dump")
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			targets := v.GetStringSlice("target")
			if len(targets) == 0 {
				return errors.New("must provide at least one target")
			}
			compressor, err := compression.GetCompressor(v.GetString("compression"))
			if err != nil {
				return err
			}

			profile, err := resolve(name, false, v.GetStringSlice("prefix"))
			if err != nil {
				return err
			}
			selection := predicate.Selection{Prefixes: profile.Prefixes}
			if cmd.Flags().Changed("tables") {
				selection.Explicit = true
				selection.Tables = predicate.ParseTableList(v.GetString("tables"))
			}

			ctx := context.Background()
			conn := profile.Connection()
			db, err := database.Open(ctx, conn)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := core.Dump(ctx, core.DumpOptions{
				Targets:         targets,
				DBConn:          conn,
				Selection:       selection,
				Creds:           creds,
				Compressor:      compressor,
				Catalog:         database.NewCatalog(db, conn.Database),
				Maintainer:      database.Maintainer{DB: db},
				Dumper:          database.Mysqldump{Binary: v.GetString("mysqldump"), ExtraArgs: v.GetStringSlice("mysqldump-arg")},
				SkipMaintenance: v.GetBool("skip-maintenance"),
				StripCompat:     v.GetBool("strip-compat"),
				WorkDir:         tmpDir,
			})
			if err != nil {
				return err
			}
			if len(res.Warnings) > 0 {
				log.Warnf("dump of %s completed with %d warning(s)", conn.Database, len(res.Warnings))
			}
			log.Info("Backup complete")
			return nil
		},
	}

	v = viper.New()
	v.SetEnvPrefix("db_dump")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	// target - where the backup is to be saved
	flags.StringSlice("target", []string{"."}, `full URL target to where the backups should be saved. Should be a directory. Accepts multiple targets. Supports three formats:
Local: a path, or a "file:///" URL, will dump to a local directory.
SMB: If it is a URL of the format smb://hostname/share/path/ then it will connect via SMB.
S3: If it is a URL of the format s3://bucketname/path then it will connect via S3 protocol.`)

	// table selection
	flags.String("tables", "", "explicit comma separated list of tables to dump; prefixes and the backup marker are ignored when set")
	flags.StringSlice("prefix", []string{}, "table name prefixes to dump, overrides the prefixes from the credentials file")

	// compression
	flags.String("compression", defaultCompression, "Compression to use. Supported are: `gzip`, `zstd`, `xz`, `none`")

	flags.Bool("skip-maintenance", false, "do not run OPTIMIZE TABLE and ANALYZE TABLE before dumping")
	flags.Bool("strip-compat", false, "unwrap versioned /*!NNNNN */ comments older than MySQL 8.0 in the dump")

	// dump program
	flags.String("mysqldump", "", "path to the mysqldump binary, defaults to mysqldump on PATH")
	flags.StringSlice("mysqldump-arg", []string{}, "extra argument passed to mysqldump, may be repeated")

	return cmd, nil
}
