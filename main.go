package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/hoa-assembly/assembly"
	"github.com/danielhkuo/hoa-assembly/cliparse"
	"github.com/danielhkuo/hoa-assembly/db"
	"github.com/danielhkuo/hoa-assembly/jobs"
	"github.com/danielhkuo/hoa-assembly/middleware"
	"github.com/danielhkuo/hoa-assembly/notify"
	"github.com/danielhkuo/hoa-assembly/realtime"
	"github.com/danielhkuo/hoa-assembly/reminders"
	"github.com/danielhkuo/hoa-assembly/router"
	"github.com/danielhkuo/hoa-assembly/votesync"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	dbConn, dialect, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "dialect", dialect)

	loc := cfg.Location()
	hub := realtime.NewHub()
	scheduler := reminders.NewScheduler(dbConn, dialect, loc)
	svc := assembly.NewService(dbConn, dialect,
		assembly.WithLocation(loc),
		assembly.WithBroadcaster(hub),
		assembly.WithReminderScheduler(scheduler),
	)
	svc.SetVoteBridge(votesync.NewBridge(dbConn, dialect, svc))

	dispatcher := reminders.NewDispatcher(dbConn, dialect, notify.NewSender(cfg.Email), cfg)
	worker := jobs.NewWorker(dbConn, cfg.WorkerInterval)
	reminders.Register(worker, dispatcher)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go worker.Run(ctx)
	go scheduler.Run(ctx, cfg.SweepInterval)

	handler := router.NewRouter(router.Deps{
		Service:    svc,
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Hub:        hub,
		Config:     cfg,
	})

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(handler),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when ctx is cancelled at shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "timezone", loc.String())
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
