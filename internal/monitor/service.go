package monitor

import (
	"context"
	"fmt"
)

// Service adapts a Monitor to suture's Serve pattern: Start opens the
// watcher and returns immediately once it is ready, so Service blocks on
// ctx itself and lets the Monitor's own event loop react to cancellation.
type Service struct {
	Monitor *Monitor
	Dirs    []string
}

func NewService(m *Monitor, dirs []string) *Service {
	return &Service{Monitor: m, Dirs: dirs}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	if err := s.Monitor.Start(ctx, s.Dirs); err != nil {
		return fmt.Errorf("monitor start failed: %w", err)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *Service) String() string {
	return "filesystem-monitor"
}
