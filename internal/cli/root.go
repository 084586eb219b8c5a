package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/information-sharing-networks/veogen/internal/config"
	"github.com/information-sharing-networks/veogen/internal/logger"
	"github.com/information-sharing-networks/veogen/internal/version"
	"github.com/spf13/cobra"
)

var (
	cfg       *config.Environment
	appLogger *slog.Logger
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:               "veocreator",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	SilenceUsage:      true,
	Short:             "Signed VERS Encapsulated Object (VEO) generator",
	Long:              `veocreator builds signed VERS V2 VEOs from templates and a data file, and verifies the signatures of existing VEOs`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewConfig()
		if err != nil {
			log.Printf("failed to load configuration: %v", err.Error())
			return err
		}

		level := logger.ParseLogLevel(cfg.LogLevel)
		if verbose {
			level = slog.LevelDebug
		}
		appLogger = logger.InitLogger(level, cfg.Environment)
		return nil
	},
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(keygenCmd)
}
