// Package cli wires configuration, storage and the Telegram client into the
// habit-tracker commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/smith3v/tg-habit-tracker/pkg/config"
	"github.com/smith3v/tg-habit-tracker/pkg/db"
	"github.com/smith3v/tg-habit-tracker/pkg/habits"
	"github.com/smith3v/tg-habit-tracker/pkg/jobs"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"github.com/smith3v/tg-habit-tracker/pkg/notify"
)

const defaultConfigPath = "config.json"

// runtime holds what every command needs once config and database are up.
type runtime struct {
	cfg     config.Config
	loc     *time.Location
	store   *db.Store
	service *habits.Service
	now     func() time.Time
}

func NewRootCommand() *cobra.Command {
	var configPath string
	rt := &runtime{now: time.Now}

	root := &cobra.Command{
		Use:           "habit-tracker",
		Short:         "Habit tracking service with Telegram reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return rt.init(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the JSON or YAML config file")

	root.AddCommand(
		newServeCommand(rt),
		newJobCommand(rt),
		newNotifyCommand(rt),
		newUserCommand(rt),
		newHabitCommand(rt),
		newStatsCommand(rt),
	)
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		logger.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (rt *runtime) init(configPath string) error {
	if err := config.LoadConfig(configPath); err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}
	rt.cfg = config.AppConfig

	logCfg := rt.cfg.Logging
	if err := logger.Configure(logger.Options{
		Level:      logCfg.Level,
		File:       logCfg.File,
		MaxSizeMB:  logCfg.MaxSizeMB,
		MaxBackups: logCfg.MaxBackups,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	loc, err := rt.cfg.Scheduler.Location()
	if err != nil {
		return err
	}
	rt.loc = loc

	if err := db.InitDB(rt.cfg.Database); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	rt.store = db.DefaultStore()
	rt.service = habits.NewService(rt.store, habits.NewTracker(rt.store, loc, rt.now), rt.cfg.Habits.ConsistencyPolicy)
	return nil
}

// newBot builds a client for outgoing messages only. Without a token there is
// nothing to build and reminders fall back to log lines.
func (rt *runtime) newBot(opts ...bot.Option) (*bot.Bot, error) {
	if rt.cfg.Telegram.Token == "" {
		logger.Warn("telegram token is not configured; reminders will only be logged")
		return nil, nil
	}
	b, err := bot.New(rt.cfg.Telegram.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return b, nil
}

func (rt *runtime) dispatcher(b *bot.Bot) *notify.Dispatcher {
	var gateway notify.Gateway
	if b != nil {
		gateway = notify.NewTelegramGateway(b, rt.cfg.Telegram.Timeout())
	}
	return notify.NewDispatcher(gateway)
}

func (rt *runtime) runner(b *bot.Bot) *jobs.Runner {
	return jobs.NewRunner(rt.store, rt.dispatcher(b), jobs.Options{
		Location:      rt.loc,
		Now:           rt.now,
		RetentionDays: rt.cfg.Habits.RetentionDays,
	})
}

func (rt *runtime) scheduler(b *bot.Bot) (*jobs.Scheduler, *jobs.Runner, error) {
	runner := rt.runner(b)
	scheduler, err := jobs.NewScheduler(jobs.Registry(runner), rt.cfg.Scheduler)
	if err != nil {
		return nil, nil, err
	}
	return scheduler, runner, nil
}
