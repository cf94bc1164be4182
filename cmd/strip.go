package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiagw/mysql-export/pkg/compression"
	"github.com/xiagw/mysql-export/pkg/sqlfilter"
)

func stripCmd() (*cobra.Command, error) {
	var v *viper.Viper
	var cmd = &cobra.Command{
		Use:   "strip-compat <input> <output>",
		Short: "unwrap old versioned comments in a dump file",
		Long: `Rewrite a dump so that /*!NNNNN ... */ comments for versions before the
		threshold are replaced by their content, while newer ones and all other
		comments are kept. Compressed input and output are handled by file suffix.`,
		Args: cobra.ExactArgs(2),
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]
			info, err := os.Stat(in)
			if err != nil {
				return fmt.Errorf("input file not found: %w", err)
			}

			src, err := os.Open(in)
			if err != nil {
				return err
			}
			defer src.Close()

			bar := newProgressBar(info.Size(), "stripping")
			stripper := &sqlfilter.Stripper{Threshold: v.GetInt("threshold")}
			decompressor := compression.Detect(in)
			var input io.Reader = src
			if _, plain := decompressor.(*compression.NoCompressor); plain {
				stripper.Progress = func(consumed int64) { _ = bar.Set64(consumed) }
			} else {
				// the size is of the compressed file, so count compressed bytes
				reader := progressbar.NewReader(src, bar)
				input = &reader
			}
			r, err := decompressor.Uncompress(input)
			if err != nil {
				return fmt.Errorf("unable to create an uncompressor: %w", err)
			}
			if c, ok := r.(io.Closer); ok {
				defer c.Close()
			}

			dst, err := os.Create(out)
			if err != nil {
				return err
			}
			defer dst.Close()
			w, err := compression.Detect(out).Compress(dst)
			if err != nil {
				return fmt.Errorf("unable to create compressor: %w", err)
			}

			consumed, err := stripper.Copy(w, r)
			if err != nil {
				w.Close()
				return fmt.Errorf("failed to strip %s: %w", in, err)
			}
			if err := w.Close(); err != nil {
				return err
			}
			if err := dst.Close(); err != nil {
				return err
			}
			_ = bar.Finish()
			log.Infof("processed %d bytes of SQL from %s into %s", consumed, in, out)
			return nil
		},
	}

	v = viper.New()
	v.SetEnvPrefix("db_strip")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	flags.Int("threshold", sqlfilter.DefaultThreshold, "comments for versions below this are unwrapped, e.g. 80000 for MySQL 8.0")

	return cmd, nil
}

func newProgressBar(max int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
