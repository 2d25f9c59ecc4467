package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Lin-Jiong-HDU/jarvis/internal/storage"
)

var (
	logLevel  string
	configDir string

	appConfig *storage.Config
)

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jarvis [utterance...]",
		Short: "Voice-driven personal assistant",
		Long: `jarvis - a personal assistant that runs desktop commands and chats.

Commands such as "run notepad" or "delete file ~/old.log" go through the
allowlist; anything outside it asks for your authorization first.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
		RunE: runUtterance,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (default ~/.jarvis)")

	cmd.AddCommand(
		getChatCommand(),
		getListenCommand(),
		getDaemonCommand(),
		getTriggerCommand(),
		getAuditCommand(),
		getPolicyCommand(),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command) error {
	var err error
	if configDir != "" {
		appConfig, err = storage.LoadConfig(configDir)
	} else {
		appConfig, err = storage.InitConfig()
	}
	if err != nil {
		return err
	}

	setupLogger(os.Stderr, effectiveLogLevel(cmd.Flags(), appConfig.Log.Level))
	return nil
}

// effectiveLogLevel prefers an explicit --log-level over the configured one.
func effectiveLogLevel(flags *pflag.FlagSet, configured string) string {
	if f := flags.Lookup("log-level"); f != nil && f.Changed {
		return f.Value.String()
	}
	return configured
}

func setupLogger(w io.Writer, level string) {
	lvl, ok := logLevelMap[strings.ToLower(level)]
	if !ok {
		lvl = slog.LevelInfo
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	slog.SetDefault(slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
	})))
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
