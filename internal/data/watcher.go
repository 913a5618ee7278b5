package data

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Reloader is implemented by lookups that can reopen their dataset.
type Reloader interface {
	Reload() error
}

// Watcher reloads a dataset whenever its file is replaced on disk.
type Watcher struct {
	reloader Reloader
	file     string
	fsw      *fsnotify.Watcher
	reloaded chan struct{}
}

// NewWatcher watches the directory holding path, so that atomic
// rename-into-place updates are picked up as well as in-place writes.
func NewWatcher(reloader Reloader, path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve MMDB path: %w", err)
	}
	dir, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve MMDB directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		reloader: reloader,
		file:     filepath.Join(dir, filepath.Base(abs)),
		fsw:      fsw,
		reloaded: make(chan struct{}, 1),
	}, nil
}

// Reloaded receives a value after each successful reload. Sends never block.
func (w *Watcher) Reloaded() <-chan struct{} {
	return w.reloaded
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("MMDB file changed", "path", event.Name, "op", event.Op.String())
			if err := w.reloader.Reload(); err != nil {
				slog.Warn("failed to reload MMDB, keeping previous dataset", "path", w.file, "error", err)
				continue
			}
			slog.Info("MMDB reloaded", "path", w.file)
			select {
			case w.reloaded <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.file {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
