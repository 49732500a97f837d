package detect

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchSelectorPack watches a selector override file and invokes onChange
// with the merged pack whenever it is rewritten. Returns a stop function.
// Watching the directory rather than the file keeps the watch alive across
// editors that replace the file on save.
func WatchSelectorPack(path string, logger *log.Logger, onChange func(*SelectorPack)) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("selector pack watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				pack, err := LoadSelectorPack(path)
				if err != nil {
					if logger != nil {
						logger.Printf("selector pack reload failed: %v", err)
					}
					continue
				}
				if logger != nil {
					logger.Printf("selector pack reloaded from %s", path)
				}
				onChange(pack)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if logger != nil {
					logger.Printf("selector pack watcher error: %v", err)
				}
			}
		}
	}()
	return watcher.Close, nil
}
