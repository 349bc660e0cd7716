// Package adapter defines the contract every platform integration satisfies
// and the shared send-failure normalization rule.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosuda/courier/internal/domain"
)

// EmitFunc delivers a normalized message to the hub. Adapters receive it at
// construction time and never learn about the bus behind it, so tests can
// pass a capturing stub.
type EmitFunc func(domain.Message)

// Adapter translates between the canonical message contract and one external
// platform's protocol.
//
// SendMessage never returns a Go error: all failures are folded into the
// SendResult so callers get a uniform shape. HandleWebhook emits zero or
// more messages; payloads that do not match the platform's envelope are
// silently ignored, since stray webhook traffic must not surface as an error.
type Adapter interface {
	SendMessage(ctx context.Context, recipient, text string) SendResult
	HandleWebhook(payload []byte)
}

// SendResult is the uniform outcome of an outbound send. Error is set, and
// human readable, exactly when Success is false.
type SendResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PlatformError carries an error message reported by the platform API
// itself, as opposed to a transport-level failure.
type PlatformError struct {
	StatusCode int
	Message    string
}

func (e *PlatformError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("platform API error (status %d)", e.StatusCode)
}

// OK builds a successful SendResult carrying the platform's response.
func OK(data any) SendResult {
	return SendResult{Success: true, Data: data}
}

// Fail normalizes a send failure into a SendResult. Preference order:
// the platform-reported error message, then the transport error message,
// then "Unknown error".
func Fail(err error) SendResult {
	return SendResult{Success: false, Error: normalizeError(err)}
}

func normalizeError(err error) string {
	var pe *PlatformError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}

	if err != nil && err.Error() != "" {
		return err.Error()
	}

	return "Unknown error"
}
