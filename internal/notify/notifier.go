// Package notify dispatches templated messages to recipients through an
// external notification service. Dispatch is fire-and-forget from the
// broker's perspective: a failed send never rolls back issuance.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/opsportal/linkbroker/internal/errors"
)

// Message is a templated notification: a template identifier plus the
// personalisation values the template renders.
type Message struct {
	EmailAddress    string            `json:"email_address"`
	TemplateID      string            `json:"template_id"`
	Personalisation map[string]string `json:"personalisation"`
}

// Notifier sends a single templated message.
type Notifier interface {
	Send(ctx context.Context, message *Message) error
}

// HTTPNotifier posts messages to the notification service's JSON endpoint.
type HTTPNotifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPNotifier creates a notifier for the service at baseURL.
func NewHTTPNotifier(baseURL, apiKey string) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message. Non-2xx responses are errors.
func (n *HTTPNotifier) Send(ctx context.Context, message *Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode notification")
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		n.baseURL+"/v1/notifications",
		bytes.NewReader(payload),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to build notification request")
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Wrap(apperrors.ErrUnavailable,
			fmt.Sprintf("notification service returned status %d", resp.StatusCode))
	}
	return nil
}

// NoopNotifier discards messages. Used when no notification service is
// configured.
type NoopNotifier struct{}

// NewNoopNotifier creates a notifier that does nothing.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// Send discards the message.
func (n *NoopNotifier) Send(ctx context.Context, message *Message) error {
	return nil
}
