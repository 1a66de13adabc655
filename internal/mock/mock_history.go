package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/stripclass/internal/history"
)

// MockHistory is a mock implementation of history.Store.
type MockHistory struct {
	mock.Mock
}

// Record mocks the Record method.
func (m *MockHistory) Record(ctx context.Context, run *history.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// List mocks the List method.
func (m *MockHistory) List(ctx context.Context, limit int) ([]history.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]history.Run), args.Error(1)
}

// ListByFile mocks the ListByFile method.
func (m *MockHistory) ListByFile(ctx context.Context, file string) ([]history.Run, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]history.Run), args.Error(1)
}

// Close mocks the Close method.
func (m *MockHistory) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ExpectRecord sets up an expectation for any Record call.
func (m *MockHistory) ExpectRecord(err error) *mock.Call {
	return m.On("Record", mock.Anything, mock.Anything).Return(err)
}
