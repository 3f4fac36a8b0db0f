package nouns

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher reloads the catalog when files in its directory change.
// Changes are debounced so a burst of writes triggers one reload.
type Watcher struct {
	watcher *fsnotify.Watcher
	catalog *Catalog
	timer   *time.Timer
	stopCh  chan struct{}
}

// NewWatcher creates a watcher for the catalog. Call Watch to start
// receiving events for the catalog directory.
func NewWatcher(catalog *Catalog) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: watcher,
		catalog: catalog,
		stopCh:  make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// Watch starts watching the catalog directory.
func (w *Watcher) Watch() error {
	return w.watcher.Add(w.catalog.Dir())
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !strings.HasSuffix(strings.ToLower(event.Name), ".json") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				log.Debug().
					Str("file", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Noun catalog change detected")

				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Noun catalog watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(reloadDebounce, w.catalog.Reload)
}
