package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"digestbot/internal/config"
	"digestbot/internal/domain"
	"digestbot/internal/report"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
	envFile    string
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "digestbot",
		Short: "digestbot: daily chat digests written by an LLM",
		Long: "digestbot fetches yesterday's chat messages, has an LLM summarize them, stores the\n" +
			"summary and posts it to a chat channel on a cron schedule.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			files := []string{filepath.Join(config.DefaultConfigDir(), ".env"), ".env"}
			if envFile != "" {
				files = []string{envFile}
			}
			return config.LoadDotEnv(files...)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json or config.yaml (default: ~/.digestbot/config.json)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default: ~/.digestbot/.env and ./.env)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(onceCmd())
	root.AddCommand(summariesCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())
	root.AddCommand(installDaemonCmd())
	root.AddCommand(uninstallDaemonCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config (or environment-only defaults when no file
// exists) and replaces the global logger with one built from it. The
// returned closer releases the log file.
func loadConfig() (*config.Config, io.Closer, error) {
	cfg, err := config.LoadOrEnv(resolveConfigPath())
	if err != nil {
		return nil, nil, err
	}
	l, closer := newLogger(cfg.General)
	logger = l
	return cfg, closer, nil
}

// newLogger builds the process logger. When logFile is set, output is
// written to both stderr and a size-rotated file.
func newLogger(gc config.GeneralConfig) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if gc.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   gc.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, rotator)
		closer = rotator
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: parseLevel(gc.LogLevel)})), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(config.ExpandPath(cfgPath)); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", cfgPath)
			}
			cfg := config.Defaults()
			// Keep secrets out of the file; they are read from the environment.
			cfg.LLM.APIKey = "${" + config.EnvHyperbolic + "}"
			cfg.Notifier.Token = "${" + config.EnvDiscordToken + "}"
			cfg.Notifier.ChannelID = "${" + config.EnvChannelID + "}"
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func onceCmd() *cobra.Command {
	var (
		date      string
		noDeliver bool
	)
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run the digest pipeline once and exit",
		Long: "Summarizes yesterday's messages (or the day given with --date), stores the summary\n" +
			"and delivers it. Exits non-zero when the run fails for a reason other than an empty day.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			defer closer.Close()

			var now func() time.Time
			if date != "" {
				day, err := time.Parse(domain.DateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				// The generator summarizes the day before "now".
				trigger := day.AddDate(0, 0, 1)
				now = func() time.Time { return trigger }
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, appOptions{Now: now, NoDeliver: noDeliver})
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.job.Run(ctx)
			fmt.Printf("run %s: outcome=%s delivered=%t\n", res.RunID, res.Outcome, res.Delivered)
			if res.Err != nil && res.Outcome != report.OutcomeNoMessages {
				return res.Err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "summarize this UTC day (YYYY-MM-DD) instead of yesterday")
	cmd.Flags().BoolVar(&noDeliver, "no-deliver", false, "store the summary without posting it")
	return cmd
}

func summariesCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "summaries",
		Short: "List recently stored summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			defer closer.Close()

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Store.ConnectTimeout()+cfg.Store.QueryTimeout())
			defer cancel()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListSummaries(ctx, limit)
			if err != nil {
				return fmt.Errorf("list summaries: %w", err)
			}
			if asJSON {
				data, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(data))
				return nil
			}
			if len(list) == 0 {
				fmt.Println("No summaries stored yet.")
				return nil
			}
			for _, s := range list {
				fmt.Printf("#%d  %s  (created %s)\n%s\n\n", s.ID, s.Date.Format(domain.DateLayout),
					s.CreatedAt.UTC().Format(time.RFC3339), s.Summary)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of summaries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. schedule.cron)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. schedule.cron \"30 6 * * *\")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.LoadRaw(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "file", cfgPath)
			return nil
		},
	})

	var asPaths bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrEnv(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			if asPaths {
				values := config.ListPaths(sanitized)
				for _, path := range config.SortedPaths(sanitized) {
					fmt.Printf("%s = %v\n", path, values[path])
				}
				return nil
			}
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asPaths, "paths", false, "print one settable path per line")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
