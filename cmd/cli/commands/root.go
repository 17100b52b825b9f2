package commands

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inferloop/tsforecast/cmd/cli/config"
	"github.com/inferloop/tsforecast/pkg/constants"
)

// App carries the loaded configuration and logger shared by every command
type App struct {
	ConfigFile string
	Verbose    bool
	LogLevel   string

	Config *config.CLIConfig
	Logger *logrus.Logger
}

// NewRootCmd builds the tsforecast-cli command tree
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "Compare forecasting algorithms on a weekly time series",
		Long: `Load or generate a univariate weekly time series, hold out the last 13 or 26
weeks, fit a selection of forecasters on the rest and rank them by accuracy.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.ConfigFile, "config", "", "config file (default is "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(NewCompareCmd(app))
	rootCmd.AddCommand(NewForecastersCmd(app))
	rootCmd.AddCommand(NewGenerateCmd(app))
	rootCmd.AddCommand(NewServeCmd(app))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func (a *App) load(logOut io.Writer) error {
	cfg, err := config.LoadConfig(a.ConfigFile)
	if err != nil {
		return err
	}

	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	if a.Verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	a.Config = cfg
	a.Logger = setupLogger(cfg.Log.Level, cfg.Log.Format, logOut)
	a.Logger.WithField("config_file", a.ConfigFile).Debug("Loaded configuration")
	return nil
}

func setupLogger(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
