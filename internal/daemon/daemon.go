package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"aircraft_logger/internal/config"
	"aircraft_logger/internal/database"
	"aircraft_logger/internal/records"
	"aircraft_logger/internal/scheduler"
	"aircraft_logger/internal/server"
	"aircraft_logger/internal/shell"
	"aircraft_logger/internal/tasks"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// Daemon represents the main daemon structure
type Daemon struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       *config.Config
	database  *database.DB
	records   *records.Service
	scheduler *scheduler.Scheduler
	http      *http.Server
	listener  net.Listener
	done      chan struct{}
	stopOnce  sync.Once
}

// New opens the database and builds the record service. Nothing listens
// until Start.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		database:  db,
		records:   records.NewService(db.Records()),
		scheduler: scheduler.New(ctx),
		done:      make(chan struct{}),
	}, nil
}

// Start listens on the configured address, serves the web UI and starts the
// shell refresh task. The shell origin is the address actually bound, so a
// ":0" port works.
func (d *Daemon) Start() error {
	slog.Info("Starting daemon")

	ln, err := net.Listen("tcp", d.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.cfg.ListenAddr, err)
	}
	d.listener = ln

	gin.SetMode(gin.ReleaseMode)
	network := shell.NewHTTPNetwork(30 * time.Second)
	cache, err := shell.New(shell.Config{
		Version:   d.cfg.Shell.Version,
		Origin:    "http://" + ln.Addr().String(),
		URLs:      d.cfg.Shell.URLs,
		Whitelist: d.cfg.Shell.Whitelist,
	}, d.database.ShellCache(), network)
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to create shell cache: %w", err)
	}

	var tailwind string
	if len(d.cfg.Shell.Whitelist) > 0 {
		tailwind = d.cfg.Shell.Whitelist[0]
	}

	srv, err := server.New(server.Options{
		Records:     d.records,
		MaxPictures: d.cfg.MaxPictures,
		Shell:       cache,
		Network:     network,
		Tailwind:    tailwind,
	})
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	d.http = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return d.ctx },
	}

	go func() {
		defer close(d.done)
		if err := d.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "error", err)
		}
	}()

	d.scheduler.AddTask(tasks.NewShellRefreshWithInterval(cache, d.cfg.Shell.RefreshInterval))
	d.scheduler.Start()

	n, err := d.database.Records().Count(d.ctx)
	if err != nil {
		slog.Warn("Failed to count records", "error", err)
	}
	slog.Info("Daemon started successfully", "addr", d.Addr(), "db_path", d.cfg.DBPath, "records", n)
	return nil
}

// Addr is the bound listen address, or "" before Start
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Stop gracefully stops the daemon
func (d *Daemon) Stop() error {
	var stopErr error
	d.stopOnce.Do(func() {
		slog.Info("Stopping daemon")

		if d.http != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := d.http.Shutdown(ctx); err != nil {
				slog.Error("Error shutting down HTTP server", "error", err)
				stopErr = err
			}
			cancel()
			<-d.done
		}

		d.cancel()
		d.scheduler.Stop()

		if err := d.database.Close(); err != nil {
			slog.Error("Error closing database", "error", err)
			if stopErr == nil {
				stopErr = err
			}
		}

		slog.Info("Daemon stopped")
	})
	return stopErr
}
