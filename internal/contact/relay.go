package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Relay delivers a validated draft to whoever reads the messages.
type Relay interface {
	Send(ctx context.Context, d Draft) error
}

// RejectedError carries the relay's own validation messages.
type RejectedError struct {
	StatusCode int
	Messages   []string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("relay rejected submission (%d): %s", e.StatusCode, strings.Join(e.Messages, ", "))
}

// ServerError is a non-2xx answer without structured errors.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("relay returned status %d", e.StatusCode)
}

// NetworkError means the relay could not be reached at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "relay unreachable: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// statusFor turns a Send result into the status the visitor sees.
func statusFor(err error) Status {
	var rejected *RejectedError
	var server *ServerError
	switch {
	case err == nil:
		return Status{State: Submitted}
	case errors.As(err, &rejected):
		return failed(FailureRejected, strings.Join(rejected.Messages, ", "))
	case errors.As(err, &server):
		return failed(FailureServer, serverFailureReason)
	}
	return failed(FailureNetwork, networkFailureReason)
}

// HTTPRelay posts drafts as a form to a hosted form-relay service.
type HTTPRelay struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRelay returns a relay posting to endpoint. A zero timeout means the
// request is bounded only by the caller's context.
func NewHTTPRelay(endpoint string, timeout time.Duration) *HTTPRelay {
	return &HTTPRelay{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type relayErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Send posts the four fields plus the relay's captcha opt-out.
func (r *HTTPRelay) Send(ctx context.Context, d Draft) error {
	form := url.Values{}
	form.Set(string(FieldName), d.Name)
	form.Set(string(FieldEmail), d.Email)
	form.Set(string(FieldSubject), d.Subject)
	form.Set(string(FieldMessage), d.Message)
	form.Set("_captcha", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var body relayErrorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return &ServerError{StatusCode: resp.StatusCode}
	}

	messages := make([]string, 0, len(body.Errors))
	for _, e := range body.Errors {
		if e.Message != "" {
			messages = append(messages, e.Message)
		}
	}
	if len(messages) == 0 {
		return &ServerError{StatusCode: resp.StatusCode}
	}
	return &RejectedError{StatusCode: resp.StatusCode, Messages: messages}
}
