package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cxterm/internal/agent"
	"cxterm/internal/backend"
	"cxterm/internal/config"
	"cxterm/internal/history"
	"cxterm/internal/ui"
)

const version = "0.1.0"

var (
	// Global flags
	verbose    bool
	configPath string

	// ask flags
	noExec      bool
	autoConfirm bool
	localOnly   bool
	format      string

	// history flags
	historyLimit int

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "cx",
	Short:   "cx - ask your terminal, in plain language",
	Version: version,
	Long: `cx turns natural-language questions into shell commands.

Responses are parsed into an ordered plan, every command is classified by
risk, and nothing dangerous runs without your confirmation. Known
destructive patterns never run at all.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		zapCfg := zap.NewProductionConfig()
		level, perr := zapcore.ParseLevel(cfg.Logging.Level)
		if perr != nil {
			level = zapcore.WarnLevel
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)

		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the AI for commands and run them through the plan pipeline",
	Long: `Sends the question to the first available backend (cx daemon, Anthropic,
Gemini, then Ollama), extracts commands from the answer, and builds an
execution plan.

Single low-risk commands run immediately. Anything else is shown with
per-step risk indicators and waits for Execute, Dry-run, or Cancel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent asks and what they executed",
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Config file path")

	askCmd.Flags().BoolVarP(&noExec, "no-exec", "n", false, "Show suggested commands without executing")
	askCmd.Flags().BoolVarP(&autoConfirm, "yes", "y", false, "Skip confirmation (blocked commands still never run)")
	askCmd.Flags().BoolVar(&localOnly, "local", false, "Only use local backends (daemon, Ollama)")
	askCmd.Flags().StringVarP(&format, "format", "f", "text", "Suggestion output format: text, json, commands")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	timeout, err := time.ParseDuration(cfg.Backend.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
		} else {
			defer store.Close()
		}
	}

	chain := backend.NewChain(cfg, localOnly, logger)
	a := agent.New(chain, store, os.Stdin, os.Stdout, logger)

	return a.Ask(ctx, query, agent.Options{
		NoExecute:   noExec,
		AutoConfirm: autoConfirm,
		Format:      format,
	})
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No history yet.")
		return nil
	}

	styles := ui.DefaultStyles()
	for _, e := range entries {
		status := styles.Dim.Render("not executed")
		if e.Executed && e.Succeeded {
			status = styles.Success.Render("ok")
		} else if e.Executed {
			status = styles.Danger.Render("failed")
		}

		fmt.Printf("%s  %s  %s\n",
			styles.Dim.Render(e.CreatedAt.Local().Format("2006-01-02 15:04")),
			styles.Bold.Render(e.Query),
			status)
		for _, c := range e.Commands {
			suffix := ""
			if c.ExitCode != nil && *c.ExitCode != 0 {
				suffix = styles.Danger.Render(fmt.Sprintf(" (exit %d)", *c.ExitCode))
			}
			fmt.Printf("    %s %s%s\n", styles.Dim.Render("$"), c.Command, suffix)
		}
	}
	return nil
}
