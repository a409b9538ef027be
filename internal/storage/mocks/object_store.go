// Package mocks provides mock implementations for testing storage consumers.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockObjectStore is a mock implementation of ObjectStore for testing.
type MockObjectStore struct {
	mock.Mock
}

// Upload mocks the Upload method of ObjectStore.
func (m *MockObjectStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

// Download mocks the Download method of ObjectStore.
func (m *MockObjectStore) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

// PreparePrefix mocks the PreparePrefix method of ObjectStore.
func (m *MockObjectStore) PreparePrefix(ctx context.Context, prefix string, metadata map[string]string) error {
	args := m.Called(ctx, prefix, metadata)
	return args.Error(0)
}

// Close mocks the Close method of ObjectStore.
func (m *MockObjectStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
