package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	brokerDomain "github.com/opsportal/linkbroker/internal/broker/domain"
	brokerService "github.com/opsportal/linkbroker/internal/broker/service"
	"github.com/opsportal/linkbroker/internal/broker/usecase/mocks"
	"github.com/opsportal/linkbroker/internal/config"
	"github.com/opsportal/linkbroker/internal/notify"
	notifyMocks "github.com/opsportal/linkbroker/internal/notify/mocks"
)

func testConfig() *config.Config {
	return &config.Config{
		EdgeDomain:               "files.example.com",
		EdgePath:                 "/received/",
		TokenQueryParam:          "data",
		UploadLinkTTL:            7 * 24 * time.Hour,
		DownloadLinkTTL:          14 * 24 * time.Hour,
		NotifyUploadTemplateID:   "tpl-upload",
		NotifyDownloadTemplateID: "tpl-download",
		AlertsTeamEmails:         "alerts@example.com,oncall@example.com",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestIssuerUseCase_Issue tests the Issue method of issuerUseCase.
func TestIssuerUseCase_Issue(t *testing.T) {
	ctx := context.Background()
	codec := brokerService.NewTokenCodec()
	references := brokerService.NewReferenceGenerator()

	input := &brokerDomain.IssueLinkInput{
		Operation:     brokerDomain.OperationUpload,
		Location:      "/received/logs/alert-1/CBC_alert-1_MNO1.zip",
		TTL:           time.Hour,
		ReferenceHint: "ALERT 1",
		Aux: map[string]string{
			brokerDomain.AuxOriginalAlert: "ALERT 1",
			brokerDomain.AuxOperator:      "MNO1",
		},
	}

	t.Run("Success", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		var stored *brokerDomain.LedgerRecord
		mockLedger.On("CreateIfAbsent", ctx, mock.AnythingOfType("*domain.LedgerRecord")).
			Run(func(args mock.Arguments) {
				stored = args.Get(1).(*brokerDomain.LedgerRecord)
			}).
			Return(true, nil).
			Once()

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		link, err := useCase.Issue(ctx, input)
		assert.NoError(t, err)
		assert.NotNil(t, link)

		assert.True(t, strings.HasPrefix(link.URL, "https://files.example.com/received/?data="))
		assert.True(t, strings.HasPrefix(link.Reference, "ALERT_1-"))
		assert.Equal(t, link.Token, stored.RawToken)
		assert.Equal(t, link.Reference, stored.Reference)
		assert.Equal(t, "ALERT 1", stored.Aux)

		// Expiry lands on a minute boundary within the TTL window.
		assert.Zero(t, link.ExpiresAt.Second())
		assert.Zero(t, link.ExpiresAt.Nanosecond())
		assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), link.ExpiresAt, 2*time.Minute)

		capability, err := codec.Decode(link.Token)
		assert.NoError(t, err)
		assert.Equal(t, input.Location, capability.Location)
		assert.Equal(t, brokerDomain.OperationUpload, capability.Operation)
		assert.Equal(t, link.Reference, capability.Reference)
		assert.Equal(t, input.Aux, capability.Aux)

		mockLedger.AssertExpectations(t)
	})

	t.Run("ZeroTTL_UsesOperationClassDefault", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		mockLedger.On("CreateIfAbsent", ctx, mock.AnythingOfType("*domain.LedgerRecord")).
			Return(true, nil).
			Once()

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		link, err := useCase.Issue(ctx, &brokerDomain.IssueLinkInput{
			Operation: brokerDomain.OperationDownload,
			Location:  "/received/logs/alert-1/CBC_alert-1_MNO1.zip",
		})
		assert.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(14*24*time.Hour), link.ExpiresAt, 2*time.Minute)
	})

	t.Run("ReferenceCollision_RetriesOnce", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		var seenRefs []string
		mockLedger.On("CreateIfAbsent", ctx, mock.AnythingOfType("*domain.LedgerRecord")).
			Run(func(args mock.Arguments) {
				record := args.Get(1).(*brokerDomain.LedgerRecord)
				seenRefs = append(seenRefs, record.Reference)
			}).
			Return(false, nil).
			Once()
		mockLedger.On("CreateIfAbsent", ctx, mock.AnythingOfType("*domain.LedgerRecord")).
			Run(func(args mock.Arguments) {
				record := args.Get(1).(*brokerDomain.LedgerRecord)
				seenRefs = append(seenRefs, record.Reference)
			}).
			Return(true, nil).
			Once()

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		link, err := useCase.Issue(ctx, input)
		assert.NoError(t, err)
		assert.NotNil(t, link)
		assert.Len(t, seenRefs, 2)
		assert.NotEqual(t, seenRefs[0], seenRefs[1])

		mockLedger.AssertExpectations(t)
	})

	t.Run("ReferenceCollision_Exhausted", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		mockLedger.On("CreateIfAbsent", ctx, mock.AnythingOfType("*domain.LedgerRecord")).
			Return(false, nil).
			Twice()

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		link, err := useCase.Issue(ctx, input)
		assert.ErrorIs(t, err, brokerDomain.ErrReferenceExhausted)
		assert.Nil(t, link)

		mockLedger.AssertExpectations(t)
	})

	t.Run("LedgerError", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		mockLedger.On("CreateIfAbsent", ctx, mock.AnythingOfType("*domain.LedgerRecord")).
			Return(false, errors.New("connection refused")).
			Once()

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		link, err := useCase.Issue(ctx, input)
		assert.Error(t, err)
		assert.Nil(t, link)

		mockLedger.AssertExpectations(t)
	})

	t.Run("InvalidCapability", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		link, err := useCase.Issue(ctx, &brokerDomain.IssueLinkInput{
			Operation: brokerDomain.OperationUpload,
			Location:  "/path/with&ampersand",
			TTL:       time.Hour,
		})
		assert.Error(t, err)
		assert.Nil(t, link)

		mockLedger.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
	})
}

// TestIssuerUseCase_HandleUploadCompleted tests the upload completion fan-out.
func TestIssuerUseCase_HandleUploadCompleted(t *testing.T) {
	ctx := context.Background()
	codec := brokerService.NewTokenCodec()
	references := brokerService.NewReferenceGenerator()

	t.Run("Success_IssuesDownloadLinkAndNotifies", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		var stored *brokerDomain.LedgerRecord
		mockLedger.On("CreateIfAbsent", ctx, mock.AnythingOfType("*domain.LedgerRecord")).
			Run(func(args mock.Arguments) {
				stored = args.Get(1).(*brokerDomain.LedgerRecord)
			}).
			Return(true, nil).
			Once()

		var messages []*notify.Message
		mockNotifier.On("Send", ctx, mock.AnythingOfType("*notify.Message")).
			Run(func(args mock.Arguments) {
				messages = append(messages, args.Get(1).(*notify.Message))
			}).
			Return(nil).
			Twice()

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		err := useCase.HandleUploadCompleted(ctx, "/received/logs/alert-1/CBC_alert-1_MNO1.zip")
		assert.NoError(t, err)

		capability, err := codec.Decode(stored.RawToken)
		assert.NoError(t, err)
		assert.Equal(t, brokerDomain.OperationDownload, capability.Operation)
		assert.Equal(t, "/received/logs/alert-1/CBC_alert-1_MNO1.zip", capability.Location)
		assert.WithinDuration(t, time.Now().UTC().Add(14*24*time.Hour), capability.ExpiresAt, 2*time.Minute)

		assert.Len(t, messages, 2)
		assert.Equal(t, "alerts@example.com", messages[0].EmailAddress)
		assert.Equal(t, "oncall@example.com", messages[1].EmailAddress)
		for _, message := range messages {
			assert.Equal(t, "tpl-download", message.TemplateID)
			assert.Equal(t, "alert-1", message.Personalisation["broadcastRef"])
			assert.Equal(t, "MNO1", message.Personalisation["MNO"])
			assert.Equal(t, "https://files.example.com/download.html", message.Personalisation["downloadSite"])
			assert.Equal(t, stored.RawToken, message.Personalisation["downloadLink"])
		}

		mockLedger.AssertExpectations(t)
		mockNotifier.AssertExpectations(t)
	})

	t.Run("LocationOutsideBundleLayout_Ignored", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		err := useCase.HandleUploadCompleted(ctx, "/received/other/file.zip")
		assert.NoError(t, err)

		mockLedger.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
		mockNotifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("MismatchedAlertSegments_Ignored", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		err := useCase.HandleUploadCompleted(ctx, "/received/logs/alert-1/CBC_alert-2_MNO1.zip")
		assert.NoError(t, err)

		mockLedger.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
		mockNotifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("IssueFailure_Propagates", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		mockLedger.On("CreateIfAbsent", ctx, mock.AnythingOfType("*domain.LedgerRecord")).
			Return(false, errors.New("connection refused")).
			Once()

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		err := useCase.HandleUploadCompleted(ctx, "/received/logs/alert-1/CBC_alert-1_MNO1.zip")
		assert.Error(t, err)

		mockNotifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("NotifyFailure_DoesNotPropagate", func(t *testing.T) {
		mockLedger := &mocks.MockLedgerRepository{}
		mockNotifier := &notifyMocks.MockNotifier{}

		mockLedger.On("CreateIfAbsent", ctx, mock.AnythingOfType("*domain.LedgerRecord")).
			Return(true, nil).
			Once()
		mockNotifier.On("Send", ctx, mock.AnythingOfType("*notify.Message")).
			Return(errors.New("service unavailable")).
			Twice()

		useCase := NewIssuerUseCase(testConfig(), mockLedger, codec, references, mockNotifier, testLogger())

		err := useCase.HandleUploadCompleted(ctx, "/received/logs/alert-1/CBC_alert-1_MNO1.zip")
		assert.NoError(t, err)

		mockNotifier.AssertExpectations(t)
	})
}
