package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBot_BackgroundTasksStopWithBot(t *testing.T) {
	b := &Bot{stopChan: make(chan struct{})}

	release := make(chan struct{})
	finished := make(chan struct{})
	require.True(t, b.goBackground(func() {
		<-release
		close(finished)
	}))

	stopped := make(chan struct{})
	go func() {
		b.stopBackground()
		close(stopped)
	}()

	close(release)
	<-stopped
	// the running task completed before shutdown returned
	select {
	case <-finished:
	default:
		t.Fatal("stopBackground returned before the task finished")
	}

	assert.False(t, b.goBackground(func() {
		t.Error("task started after shutdown")
	}))

	// stopping twice is safe
	b.stopBackground()
}
