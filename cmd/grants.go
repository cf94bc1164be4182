package cmd

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiagw/mysql-export/pkg/database"
	"github.com/xiagw/mysql-export/pkg/grants"
)

func grantsCmd() (*cobra.Command, error) {
	var v *viper.Viper
	var cmd = &cobra.Command{
		Use:   "grants <output-path>",
		Short: "export user accounts and their grants",
		Long: `Export every account of the server as CREATE USER IF NOT EXISTS plus its
		grants, wrapped so that replaying the file does not reach the binary log.
		Accounts whose grants cannot be read are still created; the failure is
		recorded in <output-path>.log, which only exists when something failed.`,
		Args: cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Debug("starting grants export")
			output := args[0]

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

			res, err := grants.Export(ctx, db, output, grants.Options{
				UserPrefix:    v.GetString("user-prefix"),
				IncludeSystem: v.GetBool("include-system"),
			})
			if err != nil {
				return err
			}
			if failed := res.Failed(); failed > 0 {
				log.Warnf("grants of %d account(s) could not be read, see %s", failed, res.WarningLog)
			}
			log.Infof("exported %d account(s) to %s", len(res.Outcomes), output)
			return nil
		},
	}

	v = viper.New()
	v.SetEnvPrefix("db_grants")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	flags.String("user-prefix", "", "only export users whose name starts with this prefix")
	flags.Bool("include-system", false, "also export root and the built-in maintenance accounts")

	return cmd, nil
}
