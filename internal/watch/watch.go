// Package watch implements spotfd's --watch mode: re-running the whole
// query/filter/render pipeline whenever the search base directory changes.
//
// Unlike a typical recursive file watcher, this installs exactly one
// fsnotify watch, on the search base directory itself. Watching
// subdirectories recursively would require the directory traversal the
// ignore engine deliberately does not own (spec non-goal); instead, a
// change anywhere under the tree is expected to eventually touch the base
// directory's own listing (an entry created, removed, or renamed) or is
// simply not something watch mode promises to catch instantly — the next
// manual run always sees it.
package watch

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for events to stop
// arriving before triggering a re-run, absorbing editor save bursts.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches one directory and invokes onChange, debounced, after
// activity quiesces.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func()

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu    sync.Mutex
	timer *time.Timer
}

// New installs a watch on dir and returns a Watcher that calls onChange
// after a debounce period following any event. onChange is invoked from an
// internal goroutine; callers needing the main goroutine's attention must
// synchronize their own work (e.g. via a channel).
func New(dir string, onChange func()) (*Watcher, error) {
	return NewWithDebounce(dir, DefaultDebounce, onChange)
}

// NewWithDebounce is New with an explicit debounce period, exercised by tests.
func NewWithDebounce(dir string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		onChange: onChange,
		stop:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Close stops the watcher and releases its fsnotify handle.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.schedule()
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.stop:
		return
	default:
	}
	w.onChange()
}
