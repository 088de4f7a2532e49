package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"google.golang.org/api/calendar/v3"

	"gcalsync/internal/config"
	"gcalsync/internal/l10n"
	appLog "gcalsync/internal/log"
	"gcalsync/internal/reconcile"
	"gcalsync/internal/remote"
	"gcalsync/internal/store"
	"gcalsync/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

// settings adapts the loaded config to the reconciler's settings surface.
type settings struct {
	cfg *config.Config
}

func (s settings) RestrictedAccess(ctx context.Context) (bool, error) {
	return s.cfg.RestrictedAccessFlag(ctx)
}

func (s settings) DefaultReminders(ctx context.Context) ([]*calendar.EventReminder, error) {
	return s.cfg.Reminders(ctx)
}

func main() {
	appLog.Info("gcalsync starting", "version", "0.1.0-dev")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"calendar_id", conf.CalendarID,
		"task_list", conf.TaskListID,
		"sync", conf.SyncCron,
		"store_dir", conf.StoreDir,
		"listen", conf.Listen,
		"restricted_access", conf.RestrictedAccess,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	dest, err := store.Open(conf.StoreDir)
	if err != nil {
		appLog.Error("failed to open store", err, "dir", conf.StoreDir)
		os.Exit(1)
	}

	client, err := remote.NewClient(ctx, conf.Token)
	if err != nil {
		appLog.Error("failed to build remote client", err)
		os.Exit(1)
	}

	rec := reconcile.New(dest, settings{cfg: conf}, l10n.New(conf.Locale))
	srv := web.NewServer(conf)

	runSync := func() {
		start := time.Now()
		var st web.RunStatus

		events, lerr := client.ListEvents(ctx, conf.CalendarID, time.Time{})
		if lerr != nil {
			appLog.Error("event listing failed", lerr, "calendar", conf.CalendarID)
		} else {
			st.Events = rec.ReconcileEvents(ctx, events)
		}

		records, lerr := client.ListTasks(ctx, conf.TaskListID)
		if lerr != nil {
			appLog.Error("task listing failed", lerr, "tasklist", conf.TaskListID)
		} else {
			st.Tasks = rec.ReconcileTasks(ctx, records)
		}

		st.LastRun = time.Now().UTC()
		st.StoreLen = dest.Len()
		srv.SetStatus(st)
		appLog.Info("sync run finished", "took", time.Since(start).Round(time.Millisecond))
	}

	if flags.once {
		runSync()
		return
	}

	go func() {
		if serr := srv.Serve(); serr != nil {
			appLog.Error("status server stopped", serr)
			cancel()
		}
	}()

	sched := cron.New()
	if _, cerr := sched.AddFunc(conf.SyncCron, runSync); cerr != nil {
		appLog.Error("invalid sync schedule", cerr, "sync", conf.SyncCron)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	// Run once at startup so the store is populated before the first tick.
	runSync()

	<-ctx.Done()
	appLog.Info("gcalsync exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/gcalsync/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one sync cycle and exit")

	flag.Parse()
	return cfg
}
