package lifecycle

import (
	"context"
	"sync/atomic"
)

// mockService is a minimal suture.Service test double used to verify that
// services registered with a Tree actually run under their assigned layer.
type mockService struct {
	name       string
	startCount atomic.Int32
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string {
	return m.name
}

func (m *mockService) StartCount() int32 {
	return m.startCount.Load()
}
