// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dpsauth/internal/config"
	"github.com/xkilldash9x/dpsauth/internal/observability"
)

// app holds the state shared by every subcommand of one root command.
type app struct {
	deps    Deps
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds the dpsauth command tree with production dependencies.
func NewRootCommand() *cobra.Command {
	return newRootCommand(DefaultDeps())
}

func newRootCommand(deps Deps) *cobra.Command {
	a := &app{deps: deps, v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "dpsauth",
		Short: "dpsauth acquires and maintains a Texas DPS scheduler credential.",
		// Version is set at build time. See cmd/version.go.
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.initialize,
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().Bool("headless", false, "run Chrome without a window")
	rootCmd.PersistentFlags().String("mode", "", "login mode: manual, recorded or synthetic")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newRecordCmd(a),
		newReplayCmd(a),
		newLoginCmd(a),
		newHeadersCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// initialize runs before any subcommand, loading configuration and logging.
func (a *app) initialize(cmd *cobra.Command, _ []string) error {
	config.SetDefaults(a.v)
	if err := initializeConfig(a.v, a.cfgFile); err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "dpsauth"})
		return err
	}

	// Flags only override config when set explicitly.
	if err := a.v.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
		return err
	}
	if err := a.v.BindPFlag("auth.mode", cmd.Flags().Lookup("mode")); err != nil {
		return err
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "dpsauth"})
		return err
	}
	observability.InitializeLogger(cfg.Logger)

	a.cfg = cfg
	a.logger = observability.GetLogger()
	a.logger.Debug("Configuration loaded.", zap.String("version", Version), zap.String("mode", cfg.Auth.Mode))
	return nil
}

// initializeConfig reads the config file and DPSAUTH_ environment variables.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DPSAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}
	return nil
}

// Execute runs the command tree against ctx, logging a failure before
// returning it.
func Execute(ctx context.Context) error {
	defer observability.Sync()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		}
		return err
	}
	return nil
}
