// Package watcher provides file system change notification for playlist files.
//
// It wraps fsnotify into a single abstract event stream: one Event per
// create or write on a matching file, delivered through a buffered channel
// so the coordinator can consume them one at a time.
package watcher

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Op represents the type of file system operation.
type Op int

const (
	// OpCreate indicates a new playlist file appeared.
	OpCreate Op = iota
	// OpModify indicates an existing playlist file was written.
	OpModify
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	default:
		return "unknown"
	}
}

// Event represents a change to a playlist file.
type Event struct {
	// Path is the path to the file that changed, as reported by the OS.
	Path string
	// Op is the operation that occurred.
	Op Op
}

// Watcher watches a single directory, non-recursively, for changes to files
// with a fixed extension. It uses fsnotify for cross-platform monitoring.
type Watcher struct {
	fs      *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	ext     string
}

// New creates a Watcher that emits events for files ending in ext (matched
// case-insensitively, e.g. ".m3u8"). The watcher must be started with
// Start() before it will emit events.
func New(ext string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fs:     fs,
		ext:    strings.ToLower(ext),
		events: make(chan Event, 100),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
	}, nil
}

// Start begins watching dir for changes. Returns an error if the directory
// cannot be watched or the watcher is already running.
func (w *Watcher) Start(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop stops watching and cleans up resources. It blocks until the event
// processing goroutine has exited, then closes the event channels.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	if err := w.fs.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()

	close(w.events)
	close(w.errors)

	return nil
}

// Events returns the channel that emits change notifications.
// The channel is closed when the watcher is stopped.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel that emits watch errors.
// The channel is closed when the watcher is stopped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// processEvents converts fsnotify events into Events until shutdown.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}

			if ev, ok := w.convertEvent(event); ok {
				select {
				case w.events <- ev:
				case <-w.done:
					return
				}
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}

			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// convertEvent filters and translates one fsnotify event. Files with other
// extensions, removals, renames and chmods are ignored.
func (w *Watcher) convertEvent(event fsnotify.Event) (Event, bool) {
	if !strings.HasSuffix(strings.ToLower(event.Name), w.ext) {
		return Event{}, false
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	default:
		return Event{}, false
	}

	return Event{Path: event.Name, Op: op}, true
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
