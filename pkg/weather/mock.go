package weather

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a testify mock for tests that need a weather source.
type MockProvider struct {
	mock.Mock
}

var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) GetDailyHistory(ctx context.Context, location string, years int) (History, error) {
	args := m.Called(ctx, location, years)
	if v := args.Get(0); v != nil {
		return v.(History), args.Error(1)
	}
	return History{}, args.Error(1)
}
