// Package events runs the daemon's two long-lived activities: watching the
// bootloader files for external modification and detecting an idle bus
// connection. Whichever finishes first decides why the daemon shuts down.
package events

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/opensuse/bootkitd/internal/config"
)

// ChangeSignaler broadcasts that a watched file changed on disk.
type ChangeSignaler interface {
	EmitFileChanged() error
}

// ActivityCounter reports inbound transport activity. Any increase between
// two reads counts as activity.
type ActivityCounter interface {
	Count() uint64
}

// Coordinator owns the shutdown latch shared by both activities. The latch
// is write-once: there is deliberately no way to clear it again.
type Coordinator struct {
	signaler ChangeSignaler
	activity ActivityCounter
	paths    config.Paths
	idleTime time.Duration
	log      *slog.Logger

	// RetryInterval bounds how long the watch loop blocks before it
	// re-checks the shutdown latch.
	RetryInterval time.Duration

	// PollInterval is how often the idle detector samples the activity
	// counter.
	PollInterval time.Duration

	shutdown atomic.Bool
}

// NewCoordinator wires the two activities. A zero idle time disables the
// idle detector entirely.
func NewCoordinator(signaler ChangeSignaler, activity ActivityCounter, opts config.Options) *Coordinator {
	return &Coordinator{
		signaler:      signaler,
		activity:      activity,
		paths:         opts.Paths,
		idleTime:      opts.IdleTime,
		log:           slog.Default(),
		RetryInterval: 250 * time.Millisecond,
		PollInterval:  100 * time.Millisecond,
	}
}

// Shutdown trips the shared latch. Both activities observe it within one
// retry or poll interval.
func (c *Coordinator) Shutdown() {
	c.shutdown.Store(true)
}

// Run watches until either activity completes, then trips the latch and
// returns. It does not wait for the losing activity; its exit is best-effort
// cleanup with no further effect once the latch is set. A nil return means
// the idle timeout expired (or the latch was tripped externally), a non-nil
// return is the watch activity's fatal error.
//
// A failure to establish the filesystem watch is an environment problem, not
// a transient fault, and aborts startup.
func (c *Coordinator) Run() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{c.paths.GrubDir, c.paths.BootDir} {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	c.log.Info("listening for config changes", "dirs", []string{c.paths.GrubDir, c.paths.BootDir})

	results := make(chan error, 2)
	go func() { results <- c.watchFiles(watcher) }()
	if c.idleTime > 0 {
		go func() { results <- c.detectIdle() }()
	}

	err = <-results
	c.Shutdown()
	return err
}

// watchFiles forwards external modifications of the watched files to the
// bus. Events read together form one batch and produce at most one signal,
// since the kernel happily reports the same write several times.
func (c *Coordinator) watchFiles(watcher *fsnotify.Watcher) error {
	retry := time.NewTicker(c.RetryInterval)
	defer retry.Stop()

	for !c.shutdown.Load() {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			batch := c.drainBatch(watcher, event)
			if !c.batchQualifies(batch) {
				continue
			}
			if err := c.signaler.EmitFileChanged(); err != nil {
				// a missed notification is a correctness issue for
				// clients, so stop instead of continuing silently
				return fmt.Errorf("failed to signal file change: %w", err)
			}
			c.log.Debug("watched file modified, signaled bus")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warn("filesystem watch error", "err", err)

		case <-retry.C:
			// wake up to re-check the shutdown latch
		}
	}
	return nil
}

// drainBatch collects the events that arrived together with first, without
// blocking.
func (c *Coordinator) drainBatch(watcher *fsnotify.Watcher, first fsnotify.Event) []fsnotify.Event {
	batch := []fsnotify.Event{first}
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return batch
			}
			batch = append(batch, event)
		default:
			return batch
		}
	}
}

// batchQualifies reports whether a batch contains a modification of the
// configuration file or its environment companion.
func (c *Coordinator) batchQualifies(batch []fsnotify.Event) bool {
	grubName := filepath.Base(c.paths.GrubConfig)
	envName := filepath.Base(c.paths.GrubEnv)

	for _, event := range batch {
		if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
			continue
		}
		name := filepath.Base(event.Name)
		if name == grubName || name == envName {
			return true
		}
	}
	return false
}

// detectIdle ends once the connection has seen no activity for the
// configured idle time. Tripping the latch is left to Run; this activity
// only reports completion.
func (c *Coordinator) detectIdle() error {
	poll := time.NewTicker(c.PollInterval)
	defer poll.Stop()

	var elapsed time.Duration
	last := c.activity.Count()

	for elapsed < c.idleTime && !c.shutdown.Load() {
		<-poll.C
		if count := c.activity.Count(); count != last {
			last = count
			elapsed = 0
		} else {
			elapsed += c.PollInterval
		}
	}

	c.log.Debug("idle limit reached, stopping")
	return nil
}
