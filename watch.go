package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/nf/vip/vip"
)

// reloadDelay is how long a file must go unchanged before it is reloaded.
const reloadDelay = 100 * time.Millisecond

// watch reloads romFile into r each time it changes, until ctx is done or
// r stops.
func watch(ctx context.Context, romFile string, r *vip.Runner) error {
	romFile = filepath.Clean(romFile)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Watch(filepath.Dir(romFile)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var reload <-chan time.Time
		for {
			select {
			case <-reload:
				reload = nil
				rom, err := os.ReadFile(romFile)
				if err != nil {
					log.Printf("watch: %v", err)
					break
				}
				log.Printf("watch: reload %s", filepath.Base(romFile))
				if err := r.Reset(rom); errors.Is(err, vip.ErrStopped) {
					return
				} else if err != nil {
					log.Printf("watch: %v", err)
				}
			case ev := <-watcher.Event:
				if filepath.Clean(ev.Name) == romFile && !ev.IsAttrib() {
					reload = time.After(reloadDelay)
				}
			case err := <-watcher.Error:
				log.Printf("watch: watcher: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
