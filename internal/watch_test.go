package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tt "github.com/gnolang/rlin/internal/types"
)

type watchReport struct {
	filename string
	issues   []tt.Issue
	err      error
}

func TestEngineWatch(t *testing.T) {
	t.Parallel()
	tempDir := createTempDir(t, "watch_test")
	writeFile(t, tempDir, "vendor/skip.rb", "")

	engine, err := NewEngine(tempDir, nil)
	require.NoError(t, err)
	engine.IgnorePath("vendor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reports := make(chan watchReport, 16)
	done := make(chan error, 1)
	go func() {
		done <- engine.Watch(ctx, []string{tempDir}, func(filename string, issues []tt.Issue, err error) {
			reports <- watchReport{filename, issues, err}
		})
	}()

	target := filepath.Join(tempDir, "greeting.rb")
	ignored := filepath.Join(tempDir, "vendor", "skip.rb")
	other := filepath.Join(tempDir, "notes.txt")

	// keep writing until the watcher is registered and picks the change up
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(10 * time.Second)

	var got watchReport
wait:
	for {
		select {
		case got = <-reports:
			break wait
		case <-ticker.C:
			require.NoError(t, os.WriteFile(ignored, []byte(concatSource), 0o644))
			require.NoError(t, os.WriteFile(other, []byte(concatSource), 0o644))
			require.NoError(t, os.WriteFile(target, []byte(concatSource), 0o644))
		case <-deadline:
			t.Fatal("no report received from watcher")
		}
	}

	assert.Equal(t, target, got.filename)
	assert.NoError(t, got.err)
	assert.Len(t, got.issues, 2)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchDebounceAfterTimerFired(t *testing.T) {
	t.Parallel()
	tempDir := createTempDir(t, "watch_debounce")
	target := writeFile(t, tempDir, "greeting.rb", concatSource)

	engine, err := NewEngine(tempDir, nil)
	require.NoError(t, err)

	timers := make(map[string]*time.Timer)
	ready := make(chan string)
	done := make(chan struct{})
	defer close(done)

	write := fsnotify.Event{Name: target, Op: fsnotify.Write}
	engine.handleFileEvent(nil, write, timers, ready, done)

	// let the timer fire; its send blocks until ready is read
	time.Sleep(3 * watchDebounce)
	engine.handleFileEvent(nil, write, timers, ready, done)

	select {
	case filename := <-ready:
		assert.Equal(t, target, filename)
	case <-time.After(5 * time.Second):
		t.Fatal("debounced file never became ready")
	}

	select {
	case filename := <-ready:
		t.Fatalf("%s was queued twice", filename)
	case <-time.After(5 * watchDebounce):
	}
}

func TestWatchDebounceGroupsWrites(t *testing.T) {
	t.Parallel()
	tempDir := createTempDir(t, "watch_group")
	target := writeFile(t, tempDir, "greeting.rb", concatSource)

	engine, err := NewEngine(tempDir, nil)
	require.NoError(t, err)

	timers := make(map[string]*time.Timer)
	ready := make(chan string, 4)
	done := make(chan struct{})
	defer close(done)

	write := fsnotify.Event{Name: target, Op: fsnotify.Write}
	for i := 0; i < 3; i++ {
		engine.handleFileEvent(nil, write, timers, ready, done)
	}
	require.Len(t, timers, 1)

	time.Sleep(5 * watchDebounce)
	assert.Len(t, ready, 1)
}
