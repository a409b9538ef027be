// Package mocks provides mock implementations for testing notification dispatch.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/opsportal/linkbroker/internal/notify"
)

// MockNotifier is a mock implementation of Notifier for testing.
type MockNotifier struct {
	mock.Mock
}

// Send mocks the Send method of Notifier.
func (m *MockNotifier) Send(ctx context.Context, message *notify.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}
