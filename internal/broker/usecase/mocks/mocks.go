// Package mocks provides mock implementations for testing use cases and handlers.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
)

// MockLedgerRepository is a mock implementation of LedgerRepository for testing.
type MockLedgerRepository struct {
	mock.Mock
}

// CreateIfAbsent mocks the CreateIfAbsent method of LedgerRepository.
func (m *MockLedgerRepository) CreateIfAbsent(
	ctx context.Context,
	record *brokerDomain.LedgerRecord,
) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

// Get mocks the Get method of LedgerRepository.
func (m *MockLedgerRepository) Get(
	ctx context.Context,
	reference string,
) (*brokerDomain.LedgerRecord, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brokerDomain.LedgerRecord), args.Error(1)
}

// RedeemOnce mocks the RedeemOnce method of LedgerRepository.
func (m *MockLedgerRepository) RedeemOnce(ctx context.Context, reference string, usedAt time.Time) error {
	args := m.Called(ctx, reference, usedAt)
	return args.Error(0)
}

// RecordAccess mocks the RecordAccess method of LedgerRepository.
func (m *MockLedgerRepository) RecordAccess(
	ctx context.Context,
	reference string,
	accessedAt time.Time,
) (int64, error) {
	args := m.Called(ctx, reference, accessedAt)
	return args.Get(0).(int64), args.Error(1)
}

// MockInviteRepository is a mock implementation of InviteRepository for testing.
type MockInviteRepository struct {
	mock.Mock
}

// AlreadyIssued mocks the AlreadyIssued method of InviteRepository.
func (m *MockInviteRepository) AlreadyIssued(ctx context.Context, batchID string) (bool, error) {
	args := m.Called(ctx, batchID)
	return args.Bool(0), args.Error(1)
}

// MarkIssued mocks the MarkIssued method of InviteRepository.
func (m *MockInviteRepository) MarkIssued(ctx context.Context, batchID string, issuedAt time.Time) error {
	args := m.Called(ctx, batchID, issuedAt)
	return args.Error(0)
}

// MockIssuerUseCase is a mock implementation of IssuerUseCase for testing.
type MockIssuerUseCase struct {
	mock.Mock
}

// Issue mocks the Issue method of IssuerUseCase.
func (m *MockIssuerUseCase) Issue(
	ctx context.Context,
	input *brokerDomain.IssueLinkInput,
) (*brokerDomain.IssuedLink, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brokerDomain.IssuedLink), args.Error(1)
}

// HandleUploadCompleted mocks the HandleUploadCompleted method of IssuerUseCase.
func (m *MockIssuerUseCase) HandleUploadCompleted(ctx context.Context, location string) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

// MockInviteUseCase is a mock implementation of InviteUseCase for testing.
type MockInviteUseCase struct {
	mock.Mock
}

// IssueBatch mocks the IssueBatch method of InviteUseCase.
func (m *MockInviteUseCase) IssueBatch(
	ctx context.Context,
	input *brokerDomain.InviteBatchInput,
) (*brokerDomain.InviteBatchOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brokerDomain.InviteBatchOutput), args.Error(1)
}

// MockRedeemerUseCase is a mock implementation of RedeemerUseCase for testing.
type MockRedeemerUseCase struct {
	mock.Mock
}

// Redeem mocks the Redeem method of RedeemerUseCase.
func (m *MockRedeemerUseCase) Redeem(
	ctx context.Context,
	input *brokerDomain.RedeemInput,
) (*brokerDomain.RedeemResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*brokerDomain.RedeemResult), args.Error(1)
}
