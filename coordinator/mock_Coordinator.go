package coordinator

import (
	"context"

	"github.com/cschleiden/go-taskhub/core"
	"github.com/stretchr/testify/mock"
)

// MockCoordinator is a testify mock of Coordinator.
type MockCoordinator struct {
	mock.Mock
}

var _ Coordinator = (*MockCoordinator)(nil)

func (m *MockCoordinator) GetWorkItem(ctx context.Context) (*core.WorkItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*core.WorkItem), args.Error(1)
}

func (m *MockCoordinator) CompleteActivityTask(ctx context.Context, result *core.ActivityResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockCoordinator) CompleteOrchestratorTask(ctx context.Context, result *core.OrchestratorResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockCoordinator) Endpoint() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockCoordinator) Options() *Options {
	args := m.Called()
	return args.Get(0).(*Options)
}

func (m *MockCoordinator) Close() error {
	args := m.Called()
	return args.Error(0)
}
