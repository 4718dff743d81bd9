package rules

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads the restricted-operation pattern file into a classifier
// when it changes on disk. Events are debounced because editors fire several
// writes per save: each event records a pending timestamp and the reload runs
// once the file has settled, so the last write in a burst always loads.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher

	classifier *Classifier
	rulesPath  string

	debounce map[string]time.Time
	interval time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	log *zap.Logger

	// Reloads counts successful reloads; read by tests.
	Reloads int
}

// NewWatcher creates a watcher for the given rules file. The file does not
// need to exist yet; its directory is watched so the first save is seen too.
func NewWatcher(rulesPath string, classifier *Classifier, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		watcher:    fw,
		classifier: classifier,
		rulesPath:  rulesPath,
		debounce:   make(map[string]time.Time),
		interval:   200 * time.Millisecond,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		log:        log,
	}, nil
}

// Start begins watching. Idempotent.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.watcher.Add(filepath.Dir(w.rulesPath)); err != nil {
		return err
	}
	w.running = true
	go w.loop()
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("rules watcher error", zap.Error(err))
		case <-ticker.C:
			w.processSettled()
		}
	}
}

// handleEvent records the event time; the reload itself happens from the
// ticker once no further write arrives within the debounce interval.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.rulesPath) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.mu.Lock()
	w.debounce[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processSettled() {
	w.mu.Lock()
	now := time.Now()
	settled := false
	for path, eventTime := range w.debounce {
		if now.Sub(eventTime) >= w.interval {
			delete(w.debounce, path)
			settled = true
		}
	}
	w.mu.Unlock()

	if !settled {
		return
	}

	patterns, err := LoadPatterns(w.rulesPath)
	if err != nil {
		w.log.Warn("failed to reload rules file", zap.String("path", w.rulesPath), zap.Error(err))
		return
	}
	w.classifier.Replace(patterns)

	w.mu.Lock()
	w.Reloads++
	w.mu.Unlock()
	w.log.Info("reloaded restricted-operation rules", zap.String("path", w.rulesPath), zap.Int("patterns", len(patterns)))
}
