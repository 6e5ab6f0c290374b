package devicetree

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDelay coalesces the bursts of events editors produce on save.
const reloadDelay = 250 * time.Millisecond

// Watch reloads the tree at path whenever the file changes and hands every
// successfully loaded tree to onChange. Trees that fail to load are logged
// and skipped. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Tree)) error {
	log := zerolog.Ctx(ctx)

	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("unable to resolve device tree path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create file watcher: %w", err)
	}
	defer watcher.Close()

	// watch the directory, editors tend to replace the file instead of
	// writing to it
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", filepath.Dir(path), err)
	}

	var (
		timer  *time.Timer
		reload = make(chan struct{}, 1)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			t, err := LoadFile(path)
			if err != nil {
				log.Error().Err(err).
					Str("path", path).
					Msg("unable to reload device tree")
				continue
			}
			log.Info().
				Str("path", path).
				Int("configID", t.ConfigID()).
				Msg("device tree reloaded")
			onChange(t)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).
				Msg("error from device tree watcher")
		}
	}
}
