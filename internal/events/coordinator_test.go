package events

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensuse/bootkitd/internal/config"
)

type fakeSignaler struct {
	emits atomic.Int32
	fail  bool
}

func (f *fakeSignaler) EmitFileChanged() error {
	f.emits.Add(1)
	if f.fail {
		return errors.New("connection closed")
	}
	return nil
}

type fakeActivity struct {
	count atomic.Uint64
}

func (f *fakeActivity) Count() uint64 { return f.count.Load() }

func testOptions(t *testing.T) config.Options {
	t.Helper()

	etc := t.TempDir()
	boot := t.TempDir()
	return config.Options{
		Paths: config.Paths{
			GrubConfig: filepath.Join(etc, "grub"),
			GrubDir:    etc,
			BootDir:    boot,
			BootMenu:   filepath.Join(boot, "grub.cfg"),
			GrubEnv:    filepath.Join(boot, "grubenv"),
		},
	}
}

func fastCoordinator(signaler ChangeSignaler, activity ActivityCounter, opts config.Options) *Coordinator {
	c := NewCoordinator(signaler, activity, opts)
	c.RetryInterval = 10 * time.Millisecond
	c.PollInterval = 5 * time.Millisecond
	return c
}

func TestBatchQualifiesDeduplicates(t *testing.T) {
	c := NewCoordinator(&fakeSignaler{}, &fakeActivity{}, testOptions(t))

	grubPath := c.paths.GrubConfig
	batch := []fsnotify.Event{
		{Name: grubPath, Op: fsnotify.Write},
		{Name: grubPath, Op: fsnotify.Write},
		{Name: c.paths.GrubEnv, Op: fsnotify.Write},
	}

	// several qualifying events still mean a single notification
	assert.True(t, c.batchQualifies(batch))
}

func TestBatchQualifiesIgnoresOtherFiles(t *testing.T) {
	c := NewCoordinator(&fakeSignaler{}, &fakeActivity{}, testOptions(t))

	batch := []fsnotify.Event{
		{Name: filepath.Join(c.paths.GrubDir, "useradd"), Op: fsnotify.Write},
		{Name: filepath.Join(c.paths.BootDir, "grub.cfg"), Op: fsnotify.Chmod},
	}
	assert.False(t, c.batchQualifies(batch))
}

func TestRunSignalsOnFileChange(t *testing.T) {
	opts := testOptions(t)
	signaler := &fakeSignaler{}
	c := fastCoordinator(signaler, &fakeActivity{}, opts)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	require.Eventually(t, func() bool {
		if err := os.WriteFile(opts.Paths.GrubConfig, []byte("GRUB_TIMEOUT=8\n"), 0o644); err != nil {
			return false
		}
		return signaler.emits.Load() > 0
	}, 2*time.Second, 20*time.Millisecond)

	c.Shutdown()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("coordinator did not observe the shutdown latch")
	}
}

func TestRunExitsOnShutdownWithoutFileActivity(t *testing.T) {
	c := fastCoordinator(&fakeSignaler{}, &fakeActivity{}, testOptions(t))

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	// give the watch loop a moment to start blocking
	time.Sleep(20 * time.Millisecond)
	c.Shutdown()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch activity did not exit within the retry interval")
	}
}

func TestRunStopsWhenSignalEmissionFails(t *testing.T) {
	opts := testOptions(t)
	signaler := &fakeSignaler{fail: true}
	c := fastCoordinator(signaler, &fakeActivity{}, opts)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	go func() {
		for i := 0; i < 50; i++ {
			_ = os.WriteFile(opts.Paths.GrubConfig, []byte("GRUB_TIMEOUT=8\n"), 0o644)
			time.Sleep(10 * time.Millisecond)
		}
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch activity kept running after a failed emission")
	}
}

func TestRunEndsAfterIdleTimeout(t *testing.T) {
	opts := testOptions(t)
	opts.IdleTime = 30 * time.Millisecond
	c := fastCoordinator(&fakeSignaler{}, &fakeActivity{}, opts)

	start := time.Now()
	err := c.Run()
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDetectIdleResetsOnActivity(t *testing.T) {
	opts := testOptions(t)
	opts.IdleTime = 40 * time.Millisecond
	activity := &fakeActivity{}
	c := fastCoordinator(&fakeSignaler{}, activity, opts)

	// keep the connection busy; idle must not expire while activity flows
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				activity.count.Add(1)
			case <-stop:
				return
			}
		}
	}()

	done := make(chan error, 1)
	go func() { done <- c.detectIdle() }()

	select {
	case <-done:
		t.Fatal("idle detector expired despite constant activity")
	case <-time.After(200 * time.Millisecond):
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("idle detector did not expire once activity stopped")
	}
}

func TestRunFailsWhenWatchTargetMissing(t *testing.T) {
	opts := testOptions(t)
	opts.Paths.GrubDir = filepath.Join(opts.Paths.GrubDir, "does-not-exist")
	c := NewCoordinator(&fakeSignaler{}, &fakeActivity{}, opts)

	assert.Error(t, c.Run())
}
