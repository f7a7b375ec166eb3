package content

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called once per changed post after events settle.
type EventCallback func(kind, slug string)

const settleDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the posts directory and reports
// changed posts until ctx is cancelled. Bursts of events for the same
// slug are coalesced; the last kind wins, except that a create followed
// by writes is still reported as created.
func Watch(ctx context.Context, dir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dir))

	pending := make(map[string]string)
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settleDelay)
			timerCh = timer.C
		} else {
			timer.Reset(settleDelay)
		}
	}

	flush := func() {
		for slug, kind := range pending {
			logger.Debug("watcher: changed", slog.String("slug", slug), slog.String("op", kind))
			if cb != nil {
				cb(kind, slug)
			}
		}
		clear(pending)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			slug, ok := SlugFromName(filepath.Base(ev.Name))
			if !ok {
				continue
			}
			switch {
			case ev.Op&fsnotify.Create != 0:
				pending[slug] = EventCreated
			case ev.Op&fsnotify.Write != 0:
				if pending[slug] != EventCreated {
					pending[slug] = EventUpdated
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				pending[slug] = EventDeleted
			default:
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
