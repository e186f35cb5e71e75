package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"digestbot/internal/config"
	"digestbot/internal/schedule"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your digestbot installation",
		Long: `Verifies that digestbot's configuration, database, LLM backend and chat
credentials are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("digestbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			r := &doctorReport{}

			// 1. Config file (optional: environment-only deployments are fine)
			if _, err := os.Stat(config.ExpandPath(cfgPath)); errors.Is(err, fs.ErrNotExist) {
				r.warn("Config file", fmt.Sprintf("not found at %s, using defaults + environment", cfgPath))
			} else {
				r.pass("Config file", cfgPath)
			}

			// 2. Config loads and validates
			cfg, err := config.LoadOrEnv(cfgPath)
			if err != nil {
				r.fail("Config validation", err.Error())
				return r.finish()
			}
			r.pass("Config validation", "valid")

			// 3. Credentials
			if missing := config.CheckCredentials(cfg); len(missing) > 0 {
				for _, m := range missing {
					r.fail("Credentials", m)
				}
			} else {
				r.pass("Credentials", "present")
			}

			ctx := context.Background()

			// 4. Store reachable and migrated
			storeCtx, cancel := context.WithTimeout(ctx, cfg.Store.ConnectTimeout()+cfg.Store.QueryTimeout())
			st, err := openStore(storeCtx, cfg)
			if err != nil {
				r.fail("Store", err.Error())
			} else {
				r.pass("Store", fmt.Sprintf("%s reachable", st.Dialect()))
				if v, err := st.SchemaVersion(storeCtx); err != nil {
					r.fail("Schema", err.Error())
				} else if v < st.LatestSchemaVersion() {
					r.warn("Schema", fmt.Sprintf("version %d, latest is %d", v, st.LatestSchemaVersion()))
				} else {
					r.pass("Schema", fmt.Sprintf("version %d", v))
				}
				st.Close()
			}
			cancel()

			// 5. LLM backend
			sum, err := newSummarizer(cfg)
			if err != nil {
				r.fail("LLM backend", err.Error())
			} else {
				llmCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
				backend := sum.Backend()
				if err := backend.Healthy(llmCtx); err != nil {
					r.fail("LLM: "+backend.Name(), err.Error())
				} else {
					r.pass("LLM: "+backend.Name(), cfg.LLM.Model)
				}
				cancel()
			}

			// 6. Notifier credentials
			disp, err := newNotifier(cfg)
			if err != nil {
				r.fail("Notifier", err.Error())
			} else if err := disp.Check(ctx); err != nil {
				r.fail("Notifier: "+disp.Name(), err.Error())
			} else {
				r.pass("Notifier: "+disp.Name(), "destination "+cfg.Notifier.ChannelID)
			}

			// 7. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					r.warn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
				} else {
					r.pass("Log file", cfg.General.LogFile)
				}
			}

			// 8. Schedule preview
			next, err := schedule.NextTimes(cfg.Schedule.Cron, time.Now(), 3)
			if err != nil {
				r.fail("Schedule", err.Error())
			} else {
				r.pass("Schedule", cfg.Schedule.Cron+" (UTC)")
				for _, t := range next {
					fmt.Printf("         %-20s %s\n", "", t.Format(time.RFC3339))
				}
			}

			return r.finish()
		},
	}
}

type doctorReport struct {
	passed, warned, failed int
}

func (r *doctorReport) pass(check, detail string) {
	r.passed++
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func (r *doctorReport) fail(check, detail string) {
	r.failed++
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func (r *doctorReport) warn(check, detail string) {
	r.warned++
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}

func (r *doctorReport) finish() error {
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
	if r.failed > 0 {
		fmt.Printf("\nPlease fix the failed checks before running digestbot.\n")
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	if r.warned > 0 {
		fmt.Printf("\ndigestbot should work but consider fixing the warnings.\n")
	} else {
		fmt.Printf("\nAll checks passed! digestbot is ready to run.\n")
	}
	return nil
}
