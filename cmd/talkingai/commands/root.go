// Package commands holds the talkingai command line interface.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/koscakluka/talkingai/internal/config"
	"github.com/koscakluka/talkingai/internal/telemetry"
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:           "talkingai",
	Short:         "Talk to an LLM with your voice",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `talkingai listens to the microphone, transcribes what you say, asks an
LLM for a short reply and speaks it back. Say the termination keyword to end
the conversation.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default .env if present)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd, voicesCmd, configCmd)
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
	}
	return err
}

// loadConfig layers the flags set on cmd over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configPath, envFile, cmd.Flags())
}

// setupTelemetry routes every package's logs to w at the configured level.
func setupTelemetry(ctx context.Context, cfg *config.Config, w io.Writer) (func(context.Context) error, error) {
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		Level:        cfg.LogLevel,
		Output:       w,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	return shutdown, nil
}
