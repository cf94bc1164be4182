package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xiagw/mysql-export/pkg/config"
	"github.com/xiagw/mysql-export/pkg/storage/credentials"
)

type subCommand func() (*cobra.Command, error)

var subCommands = []subCommand{dumpCmd, grantsCmd, restoreCmd, stripCmd}

var (
	// overrides holds only the connection settings given explicitly on the
	// command line or through DB_* variables.
	overrides  config.Profile
	configName string
	configDir  string
	tmpDir     string
	creds      credentials.Creds
)

func rootCmd() (*cobra.Command, error) {
	var (
		v   *viper.Viper
		cmd *cobra.Command
	)
	cmd = &cobra.Command{
		Use:   "mysql-export",
		Short: "export tables and account grants from a mysql-compatible database",
		Long: `Export selected tables and the account grants of a mysql-compatible database.
		Connection settings are merged from built-in defaults, a credentials file
		(.<config>.credentials next to the executable, or the one in --config-dir)
		and the command line, with the command line winning.

		In addition to the provided command-line flag options and environment variables,
		when using s3-storage, supports the standard AWS options:

		AWS_ACCESS_KEY_ID: AWS Key ID
		AWS_SECRET_ACCESS_KEY: AWS Secret Access Key
		AWS_DEFAULT_REGION: Region in which the bucket resides
		`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, args []string) {
			bindFlagSet(cmd.PersistentFlags(), v)

			if v.GetBool("debug") {
				log.SetLevel(log.DebugLevel)
			}

			overrides = changedProfile(cmd.PersistentFlags(), v)
			configName = v.GetString("config")
			configDir = v.GetString("config-dir")
			if configDir == "" {
				configDir = config.DefaultConfigDir()
			}
			tmpDir = v.GetString("tmp")

			creds = credentials.Creds{
				AWSEndpoint:  v.GetString("aws-endpoint-url"),
				AWSRegion:    v.GetString("aws-region"),
				AWSPathStyle: v.GetBool("aws-path-style"),
			}
			if user := v.GetString("smb-user"); user != "" {
				creds.SMBCredentials = fmt.Sprintf("%s%%%s", user, v.GetString("smb-pass"))
			}
		},
	}

	v = viper.New()
	v.SetEnvPrefix("db")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	pflags := cmd.PersistentFlags()
	pflags.String("host", "", "hostname for database server, overrides the credentials file")
	pflags.Int("port", 0, "port for database server, overrides the credentials file")
	pflags.String("user", "", "username for database server, overrides the credentials file")
	pflags.String("pass", "", "password for database server; prompted for when no source supplies one")
	pflags.String("database", "", "database to use, overrides the configuration name and credentials file")

	// credentials file selection
	pflags.String("config", "", "configuration name, reads .<config>.credentials")
	pflags.String("config-dir", "", "directory holding credentials files, defaults to the directory of the executable")

	// base of temporary directory to use
	pflags.String("tmp", os.TempDir(), "temporary directory base for working directory, defaults to OS")

	// debug via CLI or env var or default
	pflags.Bool("debug", false, "enable debug logging")

	// aws options
	pflags.String("aws-endpoint-url", "", "Specify an alternative endpoint for s3 interoperable systems e.g. Digitalocean; ignored if not using s3.")
	pflags.String("aws-region", "", "Region for s3 and s3 interoperable systems; ignored if not using s3.")
	pflags.Bool("aws-path-style", false, "Use path style addressing, as most s3 interoperable systems require; ignored if not using s3.")

	// smb options
	pflags.String("smb-user", "", "SMB username. May also be specified in --target with an smb:// url. If both specified, this variable overrides the value in the URL.")
	pflags.String("smb-pass", "", "SMB password. May also be specified in --target with an smb:// url. If both specified, this variable overrides the value in the URL.")

	for _, subCmd := range subCommands {
		if sc, err := subCmd(); err != nil {
			return nil, err
		} else {
			cmd.AddCommand(sc)
		}
	}

	return cmd, nil
}

// changedProfile collects the connection flags that were explicitly set,
// leaving everything else for lower precedence layers.
func changedProfile(flags *pflag.FlagSet, v *viper.Viper) config.Profile {
	var p config.Profile
	if flags.Changed("host") {
		p.Host = v.GetString("host")
	}
	if flags.Changed("port") {
		p.Port = v.GetInt("port")
	}
	if flags.Changed("user") {
		p.User = v.GetString("user")
	}
	if flags.Changed("pass") {
		p.Password = v.GetString("pass")
	}
	if flags.Changed("database") {
		p.Database = v.GetString("database")
	}
	return p
}

// resolve merges the connection profile for a command. name, when set,
// takes the place of --config.
func resolve(name string, optionalDatabase bool, prefixes []string) (config.Profile, error) {
	if name == "" {
		name = configName
	}
	o := overrides
	o.Prefixes = prefixes
	return config.Resolve(config.ResolveOptions{
		ConfigName:       name,
		ConfigDir:        configDir,
		Overrides:        o,
		RequirePassword:  true,
		Prompter:         config.TerminalPrompter{},
		OptionalDatabase: optionalDatabase,
	})
}

// Bind each cobra flag to its associated viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	bindFlagSet(cmd.Flags(), v)
}

func bindFlagSet(flags *pflag.FlagSet, v *viper.Viper) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Determine the naming convention of the flags when represented in the config file
		key := f.Name
		_ = v.BindPFlag(key, f)
		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(key) {
			val := v.Get(key)
			_ = flags.Set(f.Name, fmt.Sprintf("%v", val))
		}
	})
}

// Execute primary function for cobra
func Execute() {
	rootCmd, err := rootCmd()
	if err != nil {
		log.Fatal(err)
	}
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
