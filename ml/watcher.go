package ml

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultReloadDebounce is how long the watcher waits for writes to settle before reloading.
const DefaultReloadDebounce = 500 * time.Millisecond

// Watch reloads the registry whenever model.json in its directory is replaced.
// Scaler and encoder changes are picked up with the next model write, which Artifacts.Save
// performs last. It blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory, not the files, so atomic renames are seen
	if err := watcher.Add(r.dir); err != nil {
		return err
	}
	r.logger.Info("watching artifacts", zap.String("dir", r.dir), zap.Duration("debounce", debounce))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isModelEvent(event) {
				continue
			}
			r.logger.Debug("artifact changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("artifact watcher error", zap.Error(err))
		case <-timer.C:
			_ = r.Reload()
		}
	}
}

func isModelEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return filepath.Base(event.Name) == ModelFile
}
