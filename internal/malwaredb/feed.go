package malwaredb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/raysh454/shieldsuite/internal/logging"
)

// ParseFeed reads a hash feed: one entry per line as
// "hash[,package[,reason]]". Blank lines and lines starting with # are skipped.
func ParseFeed(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 3)
		e := Entry{Hash: strings.TrimSpace(parts[0]), Source: SourceFeed}
		if len(parts) > 1 {
			e.PackageName = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			e.Reason = strings.TrimSpace(parts[2])
		}
		if e.Hash == "" {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// FeedWatcher imports a hash feed file into a Store and re-imports it each
// time the file is written. Bursts of events are debounced.
type FeedWatcher struct {
	path     string
	store    *Store
	logger   logging.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewFeedWatcher(path string, store *Store, logger logging.Logger) (*FeedWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("feed path is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve feed path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &FeedWatcher{
		path:     abs,
		store:    store,
		logger:   logger.With(logging.Field{Key: "component", Value: "malware-feed"}),
		debounce: 200 * time.Millisecond,
		watcher:  w,
		done:     make(chan struct{}),
	}, nil
}

// Start imports the feed once and begins watching its directory. Watching
// the directory rather than the file survives editors that replace the file
// by rename.
func (w *FeedWatcher) Start(ctx context.Context) error {
	if _, err := w.Reload(ctx); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *FeedWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
	w.wg.Wait()
}

// Reload imports the feed file and returns how many hashes were new.
func (w *FeedWatcher) Reload(ctx context.Context) (int, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	entries, err := ParseFeed(f)
	if err != nil {
		return 0, fmt.Errorf("parse feed: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}
	n, err := w.store.Import(ctx, entries)
	if err != nil {
		return 0, err
	}
	w.logger.Info("malware feed imported",
		logging.Field{Key: "path", Value: w.path},
		logging.Field{Key: "entries", Value: len(entries)},
		logging.Field{Key: "added", Value: n})
	return n, nil
}

func (w *FeedWatcher) loop(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("feed watcher error", logging.Field{Key: "error", Value: err})
		case <-timer.C:
			if _, err := w.Reload(ctx); err != nil {
				w.logger.Warn("feed reload failed",
					logging.Field{Key: "path", Value: w.path},
					logging.Field{Key: "error", Value: err})
			}
		}
	}
}
