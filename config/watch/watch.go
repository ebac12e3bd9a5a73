/*
 * IECPrint - Configuration reload watcher.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rcornwell/iecprint/config/devconfig"
)

const debounceInterval = 500 * time.Millisecond

// Called with the new settings after the file changed.
type ApplyFunc func(s devconfig.Settings)

// Watcher reloads a configuration file when it changes.
type Watcher struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	name     string
	fsw      *fsnotify.Watcher
	apply    ApplyFunc
	cancel   chan struct{}
	timer    *time.Timer
	debounce time.Duration
}

// Watch the directory holding name, editors often replace the file.
func New(name string, apply ApplyFunc) (*Watcher, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", name, err)
	}
	return &Watcher{
		name:     abs,
		fsw:      fsw,
		apply:    apply,
		cancel:   make(chan struct{}),
		debounce: debounceInterval,
	}, nil
}

// Change quiet time before reload.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start watching.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.watchLoop()
}

// Stop watching.
func (w *Watcher) Stop() {
	close(w.cancel)
	w.fsw.Close()
	w.wg.Wait()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

// watchLoop processes fsnotify events with debouncing.
func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.cancel:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			// Debounce: reset timer on each event.
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.debounce, w.reload)
			w.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("Configuration watch error", "file", w.name, "error", err)
		}
	}
}

// Load file again, keep old settings when it does not parse.
func (w *Watcher) reload() {
	s, err := devconfig.Load(w.name)
	if err != nil {
		slog.Error("Configuration not reloaded", "file", w.name, "error", err)
		return
	}
	slog.Info("Configuration reloaded", "file", w.name)
	w.apply(s)
}
