package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/factorykiosk/attendance/internal/config"
	"github.com/factorykiosk/attendance/pkg/cardreader"
	"github.com/factorykiosk/attendance/pkg/clients/battery"
	"github.com/factorykiosk/attendance/pkg/clients/camera"
	"github.com/factorykiosk/attendance/pkg/core/reconcile"
	"github.com/factorykiosk/attendance/pkg/core/services"
	"github.com/factorykiosk/attendance/pkg/core/session"
	"github.com/factorykiosk/attendance/pkg/db"
	"github.com/factorykiosk/attendance/pkg/sqlite"
	"github.com/factorykiosk/attendance/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg     *config.Config
	store   *sqlite.Store
	engine  *reconcile.Engine
	gate    *session.Gate
	camera  *camera.Capturer
	battery *battery.Notifier
	logger  *zap.Logger
	loc     *time.Location
	ctx     context.Context
}

var (
	env        string
	configPath string
	app        *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kiosk",
		Short: "Factory attendance kiosk - record and report RFID punches",
		Long:  `An offline attendance kiosk: workers tap an RFID card to punch IN/OUT, administrators correct records, register cards and export timesheets.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.camera != nil {
					app.camera.Wait()
				}
				if app.store != nil {
					app.store.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "prod", "Environment name used for log files")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to kiosk_config.yaml (defaults to cwd, then home)")

	rootCmd.AddCommand(kioskCmd())
	rootCmd.AddCommand(punchCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(manualPunchCmd())
	rootCmd.AddCommand(catchupCmd())
	rootCmd.AddCommand(exportCSVCmd())
	rootCmd.AddCommand(exportMonthCmd())
	rootCmd.AddCommand(recentCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(batteryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, storage and the engines
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	app.logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting kiosk", zap.String("environment", env))

	if configPath != "" {
		app.cfg, err = config.LoadFromPath(configPath)
	} else {
		app.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded")

	app.loc, err = app.cfg.Location()
	if err != nil {
		return fmt.Errorf("failed to resolve timezone: %w", err)
	}

	policy, err := app.cfg.Policy()
	if err != nil {
		return fmt.Errorf("failed to build shift policy: %w", err)
	}
	app.engine = reconcile.NewEngine(policy, app.loc)

	app.logger.Info("Opening database", zap.String("path", app.cfg.DatabasePath))
	app.store, err = sqlite.Open(app.ctx, app.cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := app.store.RunMigrations(app.ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.logger.Debug("Migrations applied")

	app.gate = session.NewGate(
		app.cfg.Admin.PINHash,
		app.cfg.Admin.MaxAttempts,
		time.Duration(app.cfg.Admin.LockoutMinutes)*time.Minute,
		time.Duration(app.cfg.Admin.AutoLockSeconds)*time.Second,
	)

	app.camera = camera.New(app.cfg.PhotoDir, app.store, app.logger)

	app.battery = battery.NewNotifier(func(alert battery.Alert) error {
		app.logger.Warn("Battery alert",
			zap.String("subject", alert.Subject),
			zap.Int("percent", alert.Percent))
		fmt.Printf("%s\n\n%s\n", alert.Subject, alert.Body)
		return nil
	}, time.Duration(app.cfg.Battery.CooldownMinutes)*time.Minute)

	return nil
}

// requireAdmin checks the PIN through the session gate before an admin
// operation runs
func requireAdmin(pin string) error {
	if app.gate.Active() {
		app.gate.Touch()
		return nil
	}
	if err := app.gate.Unlock(pin); err != nil {
		if errors.Is(err, session.ErrLockedOut) {
			return fmt.Errorf("too many failed attempts, try again later")
		}
		return fmt.Errorf("admin unlock failed: %w", err)
	}
	return nil
}

// Command definitions

func kioskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the interactive kiosk loop reading card scans from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Tap RFID card (type digits + enter, 'exit' to stop)")

			reader := &cardreader.Reader{}
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "exit" || line == "quit" {
					return nil
				}

				uid, ok := reader.FeedLine(line)
				if !ok {
					continue
				}
				handleScan(uid)
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}
			return nil
		},
	}
}

func handleScan(uid string) {
	result, err := services.PunchCard(app.ctx, app.store, app.store, app.camera,
		app.logger, uid, app.cfg.Cooldown(), time.Now())
	switch {
	case errors.Is(err, services.ErrUnknownCard):
		fmt.Println("Unknown card")
	case errors.Is(err, services.ErrCooldown):
		fmt.Println("Please wait")
	case err != nil:
		fmt.Printf("Punch failed: %v\n", err)
	default:
		fmt.Printf("%s (%s) - %s\n", result.DisplayName, result.Code, result.Type)
	}
}

func punchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "punch <card_uid>",
		Short: "Record a single card tap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.PunchCard(app.ctx, app.store, app.store, app.camera,
				app.logger, args[0], app.cfg.Cooldown(), time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s) - %s\n", result.DisplayName, result.Code, result.Type)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the configured worker roster (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.SeedRoster(app.ctx, app.store, app.logger, app.cfg.Seeds()); err != nil {
				return err
			}
			fmt.Printf("Roster loaded (%d entries)\n", len(app.cfg.Roster))
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <code> <name> <card_uid>",
		Short: "Register a worker or reassign an existing card/code",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, _ := cmd.Flags().GetString("pin")
			if err := requireAdmin(pin); err != nil {
				return err
			}

			workerID, err := services.RegisterWorker(app.ctx, app.store, app.logger,
				args[0], args[1], args[2], time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Worker registered: id=%d code=%s\n", workerID, args[0])
			return nil
		},
	}
	cmd.Flags().String("pin", "", "Admin PIN")
	return cmd
}

func manualPunchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manual-punch <IN|OUT> <reason>",
		Short: "Insert an administrative correction punch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, _ := cmd.Flags().GetString("pin")
			if err := requireAdmin(pin); err != nil {
				return err
			}

			typ := db.PunchType(strings.ToUpper(args[0]))
			if typ != db.PunchIn && typ != db.PunchOut {
				return fmt.Errorf("punch type must be IN or OUT, got %s", args[0])
			}

			code, _ := cmd.Flags().GetString("code")
			punchID, err := services.ManualPunch(app.ctx, app.store, app.store, app.logger,
				code, typ, args[1], time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Saved %s punch (id=%d)\n", typ, punchID)
			return nil
		},
	}
	cmd.Flags().String("pin", "", "Admin PIN")
	cmd.Flags().String("code", "", "Worker code (defaults to the first worker)")
	return cmd
}

func catchupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catchup",
		Short: "Persist synthetic OUT punches for past days missing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			count, err := services.CatchUpAutoOuts(app.ctx, app.store, app.engine,
				app.logger, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("Synthesized %d OUT punches\n", count)
			return nil
		},
	}
	cmd.Flags().Int("days", 31, "How many days back to scan")
	return cmd
}

func exportCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-csv <from> <to>",
		Short: "Export the flat per-day summary as CSV (dates as YYYY-MM-DD, to exclusive)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, _ := cmd.Flags().GetString("pin")
			if err := requireAdmin(pin); err != nil {
				return err
			}

			from, err := parseLocalDate(args[0])
			if err != nil {
				return err
			}
			to, err := parseLocalDate(args[1])
			if err != nil {
				return err
			}

			path, err := services.ExportFlatCSV(app.ctx, app.store, app.store, app.engine,
				app.logger, from.UnixMilli(), to.UnixMilli(), app.cfg.ExportDir, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("CSV saved: %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("pin", "", "Admin PIN")
	return cmd
}

func exportMonthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-month <YYYY-MM>",
		Short: "Export the monthly pivot and totals workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, _ := cmd.Flags().GetString("pin")
			if err := requireAdmin(pin); err != nil {
				return err
			}

			month, err := time.Parse("2006-01", args[0])
			if err != nil {
				return fmt.Errorf("expected YYYY-MM, got %q: %w", args[0], err)
			}

			path, err := services.ExportMonthlyWorkbook(app.ctx, app.store, app.store,
				app.engine, app.logger, month.Year(), month.Month(), app.cfg.ExportDir)
			if err != nil {
				return err
			}
			fmt.Printf("Workbook saved: %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("pin", "", "Admin PIN")
	return cmd
}

func recentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent punches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			lines, err := services.RecentActivityLines(app.ctx, app.store, app.loc, limit)
			if err != nil {
				return err
			}

			fmt.Println("RECENT ATTENDANCE")
			fmt.Println()
			for _, line := range lines {
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 200, "Maximum punches to show")
	return cmd
}

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent administrative audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, _ := cmd.Flags().GetString("pin")
			if err := requireAdmin(pin); err != nil {
				return err
			}

			limit, _ := cmd.Flags().GetInt("limit")
			lines, err := services.AuditTrailLines(app.ctx, app.store, app.loc, limit)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().String("pin", "", "Admin PIN")
	cmd.Flags().Int("limit", 100, "Maximum entries to show")
	return cmd
}

func batteryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battery <percent>",
		Short: "Report the device battery level, alerting when low",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("percent must be a number: %w", err)
			}

			force, _ := cmd.Flags().GetBool("force")
			if percent <= app.cfg.Battery.AlertThresholdPercent || force {
				sent, err := app.battery.LowBattery(percent, force)
				if err != nil {
					return err
				}
				if !sent {
					fmt.Println("Alert suppressed by cooldown")
				}
			}
			fmt.Printf("Battery: %d%%\n", percent)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Send the alert even inside the cooldown window")
	return cmd
}

func parseLocalDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, app.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q: %w", s, err)
	}
	return t, nil
}
