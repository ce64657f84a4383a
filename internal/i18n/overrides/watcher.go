package overrides

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher drops the service cache whenever one of its override files changes.
// Directories are watched instead of files so editor rename-over saves are
// seen.
type Watcher struct {
	svc       *Service
	fsWatcher *fsnotify.Watcher
	files     map[string]bool
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// Watch starts watching the override files of svc.
func Watch(svc *Service) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("translations watcher: create fsnotify: %w", err)
	}
	w := &Watcher{
		svc:       svc,
		fsWatcher: fsw,
		files:     map[string]bool{},
		done:      make(chan struct{}),
	}

	dirs := map[string]bool{}
	for _, f := range svc.Files() {
		w.files[filepath.Clean(f)] = true
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			svc.logger.Printf("WARNING: translations watcher: cannot watch %s: %v", dir, err)
		}
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Stop terminates the watcher. It is safe to call Stop multiple times.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if w.files[filepath.Clean(event.Name)] {
				w.svc.logger.Printf("translations: %s changed, dropping cache", event.Name)
				w.svc.Invalidate()
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.svc.logger.Printf("WARNING: translations watcher: %v", err)
		}
	}
}
