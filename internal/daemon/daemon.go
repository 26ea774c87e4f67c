// Package daemon hosts the sync engine: it owns the periodic sync ticker,
// the filesystem watcher that drives cache recomputation, and the UDS
// surface the CLI talks to.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hksdtp/salespulse/internal/cache"
	"github.com/hksdtp/salespulse/internal/events"
	"github.com/hksdtp/salespulse/internal/lock"
	"github.com/hksdtp/salespulse/internal/model"
	"github.com/hksdtp/salespulse/internal/store"
	tasksync "github.com/hksdtp/salespulse/internal/sync"
	"github.com/hksdtp/salespulse/internal/uds"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func parseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Daemon is the long-running salespulse engine process.
type Daemon struct {
	baseDir  string
	config   model.Config
	logLevel LogLevel
	logger   *log.Logger
	logFile  io.Closer

	fileLock *lock.FileLock
	server   *uds.Server
	watcher  *fsnotify.Watcher
	ticker   *time.Ticker

	store    *store.FileStore
	bus      *events.Bus
	notifier *notifier
	engine   *tasksync.Engine
	merger   *cache.Merger
	audit    *events.AuditLogger

	lastSyncAt atomic.Value // time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once

	forceExit atomic.Bool
}

// New creates a Daemon logging to logs/daemon.log under the data dir.
func New(baseDir string, cfg model.Config) (*Daemon, error) {
	logPath := filepath.Join(baseDir, "logs", "daemon.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open daemon log: %w", err)
	}

	return newDaemon(baseDir, cfg, logFile, logFile)
}

// newDaemon is the internal constructor for testing.
func newDaemon(baseDir string, cfg model.Config, w io.Writer, closer io.Closer) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	interval := cfg.Sync.IntervalSec
	if interval <= 0 {
		interval = 60
	}
	debounce := cfg.Watcher.DebounceMs
	if debounce <= 0 {
		debounce = 500
	}

	logger := log.New(w, "", 0)
	bus := events.NewBus()
	fileStore := store.NewFileStore(baseDir, lock.NewMutexMap())
	fileStore.SetMaxRecordBytes(cfg.Limits.MaxRecordBytes)
	notif := newNotifier(bus, time.Duration(debounce)*time.Millisecond)

	d := &Daemon{
		baseDir:  baseDir,
		config:   cfg,
		logLevel: parseLogLevel(cfg.Logging.Level),
		logger:   logger,
		logFile:  closer,
		fileLock: lock.NewFileLock(filepath.Join(baseDir, "locks", "daemon.lock")),
		server:   uds.NewServer(filepath.Join(baseDir, uds.DefaultSocketName)),
		ticker:   time.NewTicker(time.Duration(interval) * time.Second),
		store:    fileStore,
		bus:      bus,
		notifier: notif,
		engine:   tasksync.New(fileStore, notif, logger),
		merger:   cache.NewMerger(fileStore, logger),
		ctx:      ctx,
		cancel:   cancel,
	}
	d.lastSyncAt.Store(time.Time{})

	return d, nil
}

// Run starts the daemon and blocks until shutdown completes.
func (d *Daemon) Run() error {
	// Step 1: Acquire file lock
	if err := os.MkdirAll(filepath.Join(d.baseDir, "locks"), 0755); err != nil {
		return fmt.Errorf("create locks dir: %w", err)
	}
	if err := d.fileLock.TryLock(); err != nil {
		return fmt.Errorf("daemon lock: %w", err)
	}
	d.log(LogLevelInfo, "daemon starting pid=%d", os.Getpid())

	// Step 2: Audit log of published refresh signals
	audit, err := events.NewAuditLogger(
		filepath.Join(d.baseDir, "logs", "audit", "refresh.jsonl"),
		d.config.Audit.MaxLogSizeBytes,
	)
	if err != nil {
		d.cleanup()
		return fmt.Errorf("open audit log: %w", err)
	}
	d.audit = audit
	d.bus.Subscribe(events.TopicTasksRefreshed, audit.Record)
	d.bus.Subscribe(events.TopicSyncCompleted, audit.Record)

	// Step 3: Watch the task directories so external task writes (CLI,
	// other processes) recompute the cache tiers too.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.cleanup()
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	d.watcher = watcher

	tasksDir := d.store.TasksDir()
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		d.cleanup()
		return fmt.Errorf("ensure dir %s: %w", tasksDir, err)
	}
	if err := watcher.Add(tasksDir); err != nil {
		d.cleanup()
		return fmt.Errorf("watch %s: %w", tasksDir, err)
	}
	// Owner subdirectories existing at startup; new ones are added as
	// fsnotify reports their creation.
	entries, _ := os.ReadDir(tasksDir)
	for _, entry := range entries {
		if entry.IsDir() {
			if err := watcher.Add(filepath.Join(tasksDir, entry.Name())); err != nil {
				d.log(LogLevelWarn, "watch owner dir %s: %v", entry.Name(), err)
			}
		}
	}

	// Step 4: Register UDS handlers and start the server
	d.registerHandlers()
	if err := d.server.Start(); err != nil {
		d.cleanup()
		return fmt.Errorf("start UDS server: %w", err)
	}
	d.log(LogLevelInfo, "UDS server listening on %s", filepath.Join(d.baseDir, uds.DefaultSocketName))

	// Step 5: Background loops
	d.wg.Add(2)
	go d.fsnotifyLoop()
	go d.tickerLoop()

	// Step 6: Initial pass: sync everyone, then prime the cache tiers.
	d.runSyncAll()
	d.merger.Recompute()
	d.log(LogLevelInfo, "daemon ready")

	// Step 7: Wait for signals
	d.waitSignals()

	return nil
}

// fsnotifyLoop recomputes the changed owner's cache slice whenever a task
// record lands on disk, and republishes the refresh signal (debounced, so
// the engine's own publish for the same burst is not duplicated).
func (d *Daemon) fsnotifyLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handleFileEvent(event)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log(LogLevelError, "fsnotify error=%v", err)
		}
	}
}

func (d *Daemon) handleFileEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".salespulse-tmp-") {
		return
	}

	// A new owner directory: start watching it.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if filepath.Dir(event.Name) == d.store.TasksDir() {
			if err := d.watcher.Add(event.Name); err != nil {
				d.log(LogLevelWarn, "watch new owner dir %s: %v", name, err)
			}
		}
		return
	}

	if !strings.HasSuffix(name, ".yaml") {
		return
	}
	owner := filepath.Base(filepath.Dir(event.Name))
	d.log(LogLevelDebug, "fsnotify event=%s file=%s owner=%s", event.Op, event.Name, owner)

	d.merger.Recompute(owner)
	d.notifier.Publish(events.TopicTasksRefreshed, map[string]any{"owner_id": owner})
}

// tickerLoop triggers periodic syncs at the configured interval.
func (d *Daemon) tickerLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.ticker.C:
			d.log(LogLevelDebug, "periodic sync triggered")
			d.runSyncAll()
		}
	}
}

func (d *Daemon) runSyncAll() {
	totals, err := d.engine.SyncAll()
	if err != nil {
		d.log(LogLevelWarn, "sync all failed: %v", err)
		return
	}
	d.lastSyncAt.Store(time.Now().UTC())
	if totals.Created > 0 || totals.Skipped > 0 {
		d.log(LogLevelInfo, "sync all owners=%d created=%d skipped=%d duplicates=%d",
			totals.Owners, totals.Created, totals.Skipped, totals.Duplicates)
	}
}

// waitSignals blocks until a shutdown signal is received.
func (d *Daemon) waitSignals() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	d.log(LogLevelInfo, "received signal=%s, initiating graceful shutdown", sig)

	// Second signal → force exit
	go func() {
		<-sigCh
		d.log(LogLevelWarn, "received second signal, forcing exit")
		d.forceExit.Store(true)
		os.Exit(1)
	}()

	d.Shutdown()
}

// Shutdown performs graceful shutdown (idempotent via sync.Once).
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		d.log(LogLevelInfo, "shutdown started")

		// 1. Stop accepting new work
		d.cancel()

		// 2. Stop producers
		d.ticker.Stop()
		if d.watcher != nil {
			d.watcher.Close()
		}
		if d.server != nil {
			d.server.Stop()
		}

		// 3. Drain in-flight with timeout
		timeout := d.config.Daemon.ShutdownTimeoutSec
		if timeout <= 0 {
			timeout = 30
		}

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			d.log(LogLevelInfo, "all goroutines drained")
		case <-time.After(time.Duration(timeout) * time.Second):
			d.log(LogLevelWarn, "shutdown timeout after %ds, some operations may be incomplete", timeout)
		}

		// 4. Cleanup
		d.cleanup()
		d.log(LogLevelInfo, "daemon stopped")
	})
}

// cleanup releases resources.
func (d *Daemon) cleanup() {
	os.Remove(filepath.Join(d.baseDir, uds.DefaultSocketName))
	d.fileLock.Unlock()
	if d.audit != nil {
		d.audit.Close()
	}
	if d.logFile != nil {
		d.logFile.Close()
	}
}

func (d *Daemon) log(level LogLevel, format string, args ...any) {
	if level < d.logLevel {
		return
	}
	levelStr := "INFO"
	switch level {
	case LogLevelDebug:
		levelStr = "DEBUG"
	case LogLevelWarn:
		levelStr = "WARN"
	case LogLevelError:
		levelStr = "ERROR"
	}
	msg := fmt.Sprintf(format, args...)
	d.logger.Printf("%s %s daemon: %s", time.Now().Format(time.RFC3339), levelStr, msg)
}
