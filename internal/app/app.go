// Package app wires the daemon: snapshot store, bus connection, handler
// layer and the event coordinator, in the order the shutdown protocol needs.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	systemd "github.com/coreos/go-systemd/v22/daemon"

	"github.com/opensuse/bootkitd/internal/config"
	"github.com/opensuse/bootkitd/internal/db"
	"github.com/opensuse/bootkitd/internal/dbusapi"
	"github.com/opensuse/bootkitd/internal/events"
	"github.com/opensuse/bootkitd/internal/grub"
)

// App is the assembled daemon.
type App struct {
	opts config.Options
	log  *slog.Logger
}

func New(opts config.Options) *App {
	return &App{opts: opts, log: slog.Default()}
}

// Run starts the daemon and blocks until the event coordinator decides the
// process should exit. The coordinator must have fully stopped before the
// bus connection is closed, otherwise a FileChanged emission can race the
// transport teardown.
func (a *App) Run() error {
	a.log.Info("starting bootkit service")

	ctx := context.Background()

	sdb, err := db.Open(a.opts.Paths.Database)
	if err != nil {
		return err
	}
	defer sdb.Close()

	if err := db.InitSchema(ctx, sdb); err != nil {
		return err
	}
	if err := a.seedSnapshots(ctx, sdb); err != nil {
		return err
	}

	conn, err := dbusapi.Connect(a.opts.Session)
	if err != nil {
		return fmt.Errorf("failed to connect to the message bus: %w", err)
	}
	defer conn.Close()

	svc := dbusapi.NewService(conn, sdb, a.opts.Paths)
	if err := svc.Export(); err != nil {
		return err
	}
	a.log.Info("serving on the bus", "name", dbusapi.BusName, "session", a.opts.Session)

	coordinator := events.NewCoordinator(svc, svc.Activity(), a.opts)

	var signaled atomic.Bool
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		sig, ok := <-sigch
		if !ok {
			return
		}
		a.log.Info("received signal, shutting down", "signal", sig)
		signaled.Store(true)
		coordinator.Shutdown()
	}()

	_, _ = systemd.SdNotify(false, systemd.SdNotifyReady)

	runErr := coordinator.Run()

	_, _ = systemd.SdNotify(false, systemd.SdNotifyStopping)

	switch {
	case runErr != nil:
		a.log.Info("bootkitd shutdown due to error", "err", runErr)
	case signaled.Load():
		a.log.Info("bootkitd shutdown requested by signal")
	default:
		a.log.Info("bootkitd shutdown due to inactivity")
	}
	return runErr
}

// seedSnapshots stores the current on-disk configuration as the first
// snapshot when the store has never been written. Later snapshots are taken
// on every SetConfig.
func (a *App) seedSnapshots(ctx context.Context, sdb *sql.DB) error {
	count, err := db.CountSnapshots(ctx, sdb)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	file, err := grub.Load(a.opts.Paths.GrubConfig)
	if err != nil {
		return err
	}

	if _, err := db.InsertSnapshot(ctx, sdb, file.Serialize()); err != nil {
		return err
	}
	a.log.Info("seeded snapshot store from on-disk configuration", "path", a.opts.Paths.GrubConfig)
	return nil
}
