// Package cmd implements the apk command line interface.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/apkforge/apk/internal/logger"
)

var (
	logLevel string

	log *zap.SugaredLogger

	// vip resolves flags against APK_* environment variables, so every
	// option can be set either way.
	vip = newViper()

	rootCmd = &cobra.Command{
		Use:           "apk",
		Short:         "Build and inspect APK package archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level, _ := logger.ParseLevel(logLevel)
			log = logger.New(zap.NewAtomicLevelAt(level))
		},
	}
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("APK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Execute runs the apk CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Errorw("command failed", "error", err)
		}
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
