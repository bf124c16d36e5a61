package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	tt "github.com/gnolang/rlin/internal/types"
)

// watchDebounce groups bursts of writes to one file into a single run.
const watchDebounce = 100 * time.Millisecond

// ReportFunc receives the result of linting one changed file.
type ReportFunc func(filename string, issues []tt.Issue, err error)

// Watch lints Ruby files below paths whenever they change, until ctx is done.
func (e *Engine) Watch(ctx context.Context, paths []string, report ReportFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			path = filepath.Dir(path)
		}
		if err := e.addWatchTree(watcher, path); err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	e.logger.Info("watching for changes", zap.Strings("paths", paths))

	return e.watchLoop(ctx, watcher, report)
}

func (e *Engine) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, report ReportFunc) error {
	ready := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, timer := range timers {
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
			e.handleFileEvent(watcher, event, timers, ready, ctx.Done())
		case filename := <-ready:
			delete(timers, filename)
			issues, err := e.Run(filename)
			report(filename, issues, err)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watch error", zap.Error(err))
		}
	}
}

func (e *Engine) handleFileEvent(
	watcher *fsnotify.Watcher,
	event fsnotify.Event,
	timers map[string]*time.Timer,
	ready chan<- string,
	done <-chan struct{},
) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := e.addWatchTree(watcher, event.Name); err != nil {
				e.logger.Warn("cannot watch new directory", zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !IsRubySource(event.Name) || e.IsIgnoredPath(event.Name) {
		return
	}

	// wait for a while after file change to consider multiple changes as one
	if timer, exists := timers[event.Name]; exists {
		// a timer that already fired has its run queued on ready
		if timer.Stop() {
			timer.Reset(watchDebounce)
		}
		return
	}
	filename := event.Name
	timers[filename] = time.AfterFunc(watchDebounce, func() {
		select {
		case ready <- filename:
		case <-done:
		}
	})
}

// addWatchTree watches root and every directory below it, skipping hidden
// and ignored directories.
func (e *Engine) addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if e.IsIgnoredPath(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
