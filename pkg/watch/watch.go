// Package watch re-runs a callback whenever a single file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long the file must stay quiet before a rerun.
const DefaultDelay = 250 * time.Millisecond

// File watches path and calls onChange after each burst of writes,
// creates or renames settles for delay. Errors from onChange and from the
// watcher are passed to onError and do not stop the loop. File returns
// when ctx is done.
//
// The parent directory is watched rather than the file itself, so editors
// that replace the file through a rename are still followed.
func File(ctx context.Context, path string, delay time.Duration, onChange func(context.Context) error, onError func(error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	// debounce fires on its own goroutine; mu keeps reruns from overlapping
	// and from starting after File has returned.
	var mu sync.Mutex
	stopped := false
	defer func() {
		mu.Lock()
		stopped = true
		mu.Unlock()
	}()

	debounced := debounce.New(delay)
	rerun := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		if err := onChange(ctx); err != nil {
			onError(err)
		}
	}

	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != abs {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounced(rerun)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onError(fmt.Errorf("watch: %w", err))
		case <-ctx.Done():
			return nil
		}
	}
}
