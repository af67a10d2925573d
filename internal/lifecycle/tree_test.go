package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTreeRunsServicesAcrossLayers(t *testing.T) {
	tree := NewTree(DefaultTreeConfig())

	watch := newMockService("watch")
	sched := newMockService("sched")
	api := newMockService("api")

	tree.AddWatchService(watch)
	tree.AddSchedulerService(sched)
	tree.AddAPIService(api)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errCh := tree.ServeBackground(ctx)
	<-errCh

	assert.GreaterOrEqual(t, watch.StartCount(), int32(1))
	assert.GreaterOrEqual(t, sched.StartCount(), int32(1))
	assert.GreaterOrEqual(t, api.StartCount(), int32(1))
}

func TestDefaultTreeConfigMatchesSutureDefaults(t *testing.T) {
	cfg := DefaultTreeConfig()
	assert.Equal(t, 5.0, cfg.FailureThreshold)
	assert.Equal(t, 30.0, cfg.FailureDecay)
	assert.Equal(t, 15*time.Second, cfg.FailureBackoff)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestNewTreeAppliesDefaultsForZeroValues(t *testing.T) {
	tree := NewTree(TreeConfig{})
	assert.Equal(t, 5.0, tree.config.FailureThreshold)
	assert.Equal(t, 10*time.Second, tree.config.ShutdownTimeout)
}
