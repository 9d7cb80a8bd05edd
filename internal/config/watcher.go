// ABOUTME: Config file watcher
// ABOUTME: Reloads the configuration when the file changes on disk
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Watcher reloads a config file on writes and hands every valid result to a callback
type Watcher struct {
	fs       afero.Fs
	path     string
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	refresh  chan struct{}
	done     chan struct{}
}

// Watch starts watching path. Editors often replace files instead of writing
// them, so the parent directory is watched.
func Watch(fs afero.Fs, path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &Watcher{
		fs:       fs,
		path:     path,
		onChange: onChange,
		watcher:  fw,
		refresh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Reload rereads the file as if it changed
func (w *Watcher) Reload() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

func (w *Watcher) loop() {
	defer close(w.done)
	d := debounce.New(250 * time.Millisecond)
	name := filepath.Clean(w.path)

	for {
		select {
		case <-w.refresh:
			d(w.reload)
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				d(w.reload)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error(err)
		}
	}
}

func (w *Watcher) reload() {
	c, err := Load(w.fs, w.path)
	if err != nil {
		log.Errorf("unable to reload config: %s", err)
		return
	}
	log.Debug("completed configuration reload")
	w.onChange(c)
}

// Close stops watching
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
