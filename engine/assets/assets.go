// Package assets loads scene description files and reloads them when
// they change on disk.
package assets

import (
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/onyx/engine/core"
)

// Watcher reports changes of a single file. fsnotify events arrive on a
// separate goroutine; they are only queued there and picked up by Poll on
// the frame thread.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	reloads  chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup

	mutex    sync.Mutex
	isClosed bool
}

// NewWatcher watches path. The parent directory is watched so that
// editors replacing the file through a rename are noticed as well.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "watching %s", filepath.Dir(abs))
	}

	w := &Watcher{
		path:     abs,
		fsnotify: fsWatch,
		reloads:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			core.LogDebug("%s changed (%s)", e.Name, e.Op)
			// Several events between two frames collapse into one reload.
			select {
			case w.reloads <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("watching %s: %v", w.path, err)

		case <-w.done:
			return
		}
	}
}

// Poll reports whether the file changed since the last call.
func (w *Watcher) Poll() bool {
	select {
	case <-w.reloads:
		return true
	default:
		return false
	}
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return nil
	}
	w.isClosed = true
	w.mutex.Unlock()

	close(w.done)
	err := w.fsnotify.Close()
	w.wg.Wait()
	return err
}
