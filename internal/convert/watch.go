package convert

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/mimecast/zeekagent/internal/constants"
	"github.com/mimecast/zeekagent/internal/io/dlog"
)

// Watch converts all logs of inDir, then keeps converting every log created
// in or moved into inDir until ctx is done. A file is converted once it has
// not been written to for settle. Failed conversions are logged, not
// returned.
func (c *Converter) Watch(ctx context.Context, inDir, outDir string, settle time.Duration) error {
	if settle <= 0 {
		settle = constants.WatchSettleDelay
	}
	if err := checkDirs(inDir, outDir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Watch before the initial pass so that no file falls in between.
	if err := watcher.Add(inDir); err != nil {
		return err
	}

	if _, err := c.ConvertDir(ctx, inDir, outDir); err != nil {
		dlog.Common.Error(inDir, "Initial conversion failed", err)
	}
	dlog.Common.Info(inDir, "Watching for new logs")

	ready := make(chan string)
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsCandidate(event.Name) {
				continue
			}
			name := event.Name
			mu.Lock()
			if t, exists := timers[name]; exists {
				t.Stop()
			}
			timers[name] = time.AfterFunc(settle, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})
			mu.Unlock()

		case name := <-ready:
			mu.Lock()
			delete(timers, name)
			mu.Unlock()

			info, err := os.Stat(name)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			g.Go(func() error {
				if _, err := c.ConvertFile(ctx, name, outDir); err != nil {
					dlog.Common.Error(name, "Conversion failed", err)
				}
				return nil
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			dlog.Common.Warn(inDir, "Watcher error", err)
		}
	}
}
