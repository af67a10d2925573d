package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/thejerf/suture/v4"
)

func TestMonitorServiceImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*Service)(nil)
}

func TestMonitorServiceStopsOnContextCancel(t *testing.T) {
	m := newTestMonitor(t, &recordingQueue{})
	svc := NewService(m, []string{t.TempDir()})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
