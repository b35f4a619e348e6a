package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/precisionworks/quote-engine/internal/config"
	"github.com/precisionworks/quote-engine/pkg/constants"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	cfg      *config.Config
	logger   *zap.Logger
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "quote-engine",
	Short: "Price reconciliation engine for manufacturing quotes",
	Long: "Reconciles stock dimensions, part volume, and removal ratio as linked levers,\n" +
		"anchors pricing to material and machine-time cost, and attributes manual price\n" +
		"overrides to named variance causes.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		l, err := config.InitLogger(cfg.Log)
		if err != nil {
			return eris.Wrap(err, "init logger")
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", constants.DefaultConfigFile, "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
