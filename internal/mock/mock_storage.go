// Package mock provides testify mocks for the output sink and run history.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of storage.Storage.
type MockStorage struct {
	mock.Mock
}

// Put mocks the Put method.
func (m *MockStorage) Put(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

// Get mocks the Get method.
func (m *MockStorage) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Exists mocks the Exists method.
func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// GetURL mocks the GetURL method.
func (m *MockStorage) GetURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// ExpectPut sets up an expectation for Put.
func (m *MockStorage) ExpectPut(key string, err error) *mock.Call {
	return m.On("Put", mock.Anything, key, mock.Anything).Return(err)
}

// ExpectAnyPut sets up an expectation for any Put call.
func (m *MockStorage) ExpectAnyPut(err error) *mock.Call {
	return m.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(err)
}

// ExpectGetURL makes GetURL return url for key.
func (m *MockStorage) ExpectGetURL(key, url string) *mock.Call {
	return m.On("GetURL", key).Return(url)
}
