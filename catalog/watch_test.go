package catalog

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_RequiresConfigPath(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{})
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	f := newFixture(t, catalogYAML)
	t.Cleanup(ResetGlobal)

	w, err := NewWatcher(WatcherConfig{
		Options:       f.options(),
		DebounceDelay: 20 * time.Millisecond,
		Install:       true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	updated := catalogYAML + `
  Extra:
    SpeakerDiarization:
      P:
        train:
          uri: lists/other.lst
`
	require.NoError(t, os.WriteFile(f.configPath, []byte(updated), 0644))

	// A write may be observed half-done; wait for the reload of the full document.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event := <-w.Events():
			if event.Err != nil || !slices.Contains(event.Registry.Databases(), "Extra") {
				continue
			}
			global, err := Global()
			require.NoError(t, err)
			assert.Equal(t, event.Registry.ID, global.ID)
			return
		case <-timeout:
			t.Fatal("no reload event")
		}
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	f := newFixture(t, catalogYAML)

	w, err := NewWatcher(WatcherConfig{Options: f.options(), DebounceDelay: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "unrelated.txt"), []byte("x"), 0644))

	select {
	case event, ok := <-w.Events():
		if ok {
			t.Fatalf("unexpected reload: %+v", event)
		}
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	for range w.Events() {
	}
}

func TestFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.yml")
	assert.Empty(t, fileHash(path))

	writeFile(t, path, "a")
	h1 := fileHash(path)
	assert.NotEmpty(t, h1)
	assert.Equal(t, h1, fileHash(path))

	writeFile(t, path, "b")
	assert.NotEqual(t, h1, fileHash(path))
}
