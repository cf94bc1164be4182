package cmd

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiagw/mysql-export/pkg/core"
	"github.com/xiagw/mysql-export/pkg/database"
)

func restoreCmd() (*cobra.Command, error) {
	var v *viper.Viper
	var cmd = &cobra.Command{
		Use:   "restore",
		Short: "restore a dump or grants export",
		Long: `Replay a dump or grants export from a given location into the server.
		The compression is taken from the file name suffix. If a manifest was pushed
		next to the file, its checksum must match.`,
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Debug("starting restore")
			target := v.GetString("target")

			profile, err := resolve("", true, nil)
			if err != nil {
				return err
			}
			ctx := context.Background()
			db, err := database.Open(ctx, profile.Connection())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := core.Restore(ctx, db, target, creds); err != nil {
				return err
			}
			log.Info("Restore complete")
			return nil
		},
	}
	// target - where the backup is
	v = viper.New()
	v.SetEnvPrefix("db_restore")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	flags.String("target", "", "full URL target to the backup that you wish to restore")
	if err := cmd.MarkFlagRequired("target"); err != nil {
		return nil, err
	}

	return cmd, nil
}
