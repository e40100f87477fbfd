package backup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	filePrefix = "tutorledger-backup-"
	fileSuffix = ".json"

	// fileTimeLayout sorts lexically in time order.
	fileTimeLayout = "20060102T150405Z"

	runTimeout = 2 * time.Minute
)

// SchedulerOptions configures periodic backups.
type SchedulerOptions struct {
	// Dir receives the backup files. It is created if missing.
	Dir string

	// Schedule is a standard five-field cron expression.
	Schedule string

	// Keep is how many backup files to retain. Zero or less keeps all.
	Keep int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Scheduler writes a backup file on a cron schedule and prunes old ones.
type Scheduler struct {
	src    Source
	opts   SchedulerOptions
	logger *slog.Logger
	cron   *cron.Cron
}

// NewScheduler validates the schedule and registers the backup job.
// Call Start to begin running it.
func NewScheduler(src Source, opts SchedulerOptions) (*Scheduler, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Scheduler{
		src:    src,
		opts:   opts,
		logger: opts.Logger,
	}
	logger := cronLogger{opts.Logger}
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := s.cron.AddFunc(opts.Schedule, s.run); err != nil {
		return nil, fmt.Errorf("failed to parse backup schedule %q: %w", opts.Schedule, err)
	}
	return s, nil
}

// Start runs the job in the background.
func (s *Scheduler) Start() {
	s.logger.Info("Backup scheduler started", "schedule", s.opts.Schedule, "dir", s.opts.Dir, "keep", s.opts.Keep)
	s.cron.Start()
}

// Stop halts the schedule and waits for a running backup to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Backup scheduler stop timed out")
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	path, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("Scheduled backup failed", "error", err)
		return
	}
	s.logger.Info("Scheduled backup written", "path", path)
}

// RunOnce writes one backup file, prunes old files and returns the new path.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.opts.Dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := s.opts.Now().UTC()
	snap := Export(ctx, s.src, now)

	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return "", err
	}

	path := filepath.Join(s.opts.Dir, filePrefix+now.Format(fileTimeLayout)+fileSuffix)
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", err
	}

	if err := s.prune(); err != nil {
		s.logger.Warn("Failed to prune old backups", "error", err)
	}
	return path, nil
}

// prune deletes the oldest backup files beyond Keep.
func (s *Scheduler) prune() error {
	if s.opts.Keep <= 0 {
		return nil
	}
	names, err := backupFiles(s.opts.Dir)
	if err != nil {
		return err
	}
	if len(names) <= s.opts.Keep {
		return nil
	}
	for _, name := range names[:len(names)-s.opts.Keep] {
		if err := os.Remove(filepath.Join(s.opts.Dir, name)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
		s.logger.Debug("Removed old backup", "file", name)
	}
	return nil
}

// backupFiles lists backup file names in dir, oldest first.
func backupFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move backup into place: %w", err)
	}
	return nil
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
