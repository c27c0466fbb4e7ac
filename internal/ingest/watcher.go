package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/brmlabs/renewal-calendar/constants"
)

// WatchConfig controls the inbox watcher.
type WatchConfig struct {
	Dir         string        // directory to watch
	InitialScan bool          // if true, ingest files already present at startup
	Debounce    time.Duration // coalesce rapid write bursts, default 500ms
}

// StartWatcher watches an inbox directory and ingests every contract
// document dropped into it. It returns once the watcher goroutine is
// running; the goroutine stops when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, o *Orchestrator, logger *slog.Logger) error {
	if cfg.Dir == "" {
		return errors.New("no inbox directory provided")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watcher.create_failed", "error", err)
		return err
	}
	if err := w.Add(cfg.Dir); err != nil {
		logger.Error("watcher.add_failed", "dir", cfg.Dir, "error", err)
		_ = w.Close()
		return err
	}

	if cfg.InitialScan {
		entries, err := os.ReadDir(cfg.Dir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() && constants.IsAllowedExt(filepath.Ext(e.Name())) {
					ingestPath(ctx, o, logger, filepath.Join(cfg.Dir, e.Name()))
				}
			}
		}
	}

	go func() {
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watcher.close_failed", "error", err)
			}
		}()

		pending := map[string]struct{}{}
		var debounce <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case <-debounce:
				debounce = nil
				for p := range pending {
					delete(pending, p)
					ingestPath(ctx, o, logger, p)
				}
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if !constants.IsAllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				pending[e.Name] = struct{}{}
				debounce = time.After(cfg.Debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher.error", "error", err)
			}
		}
	}()

	logger.Info("watcher.started", "dir", cfg.Dir)
	return nil
}

// ingestPath reads a dropped file and submits it as a single-document
// batch. Read failures are logged and skipped; the file stays in the inbox.
func ingestPath(ctx context.Context, o *Orchestrator, logger *slog.Logger, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("watcher.read_failed", "path", path, "error", err)
		return
	}
	outcomes := o.IngestBatch(ctx, []Upload{{FileName: filepath.Base(path), Content: data}})
	for _, out := range outcomes {
		logger.Info("watcher.ingested", "path", path, "id", out.ID, "status", out.Status)
	}
}
