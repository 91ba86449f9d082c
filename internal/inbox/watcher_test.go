package inbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_SweepsDroppedImages(t *testing.T) {
	dir := t.TempDir()
	proc := &stubProcessor{}
	s, err := NewSweeper(Config{Dir: dir}, proc, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 50*time.Millisecond) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	drop(t, dir, "notes.txt")
	drop(t, dir, "front.png", "back.jpg")

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, processedDir, "back.jpg"))
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, processedDir, "front.png"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"), "non-images stay put")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	s, err := NewSweeper(Config{Dir: filepath.Join(t.TempDir(), "nope")}, &stubProcessor{}, nil)
	require.NoError(t, err)
	assert.Error(t, s.Watch(context.Background(), time.Millisecond))
}
