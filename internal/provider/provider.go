// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"
	"errors"

	"github.com/shineum/form-relay/internal/email"
)

// ErrNotConfigured is returned when a backend is missing the credentials it
// needs to deliver mail.
var ErrNotConfigured = errors.New("email provider not configured")

// Provider is the interface that email delivery backends must implement.
// Each provider hands a constructed message to the target service
// (e.g., Resend, AWS SES, Microsoft Graph) in a single attempt.
type Provider interface {
	// Send delivers an email message through this provider and returns
	// the provider's acknowledgement. It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Email) (*Receipt, error)

	// Name returns the human-readable name of this provider.
	Name() string
}

// Receipt is the delivery result reported back to the caller.
type Receipt struct {
	Provider string `json:"provider"`
	ID       string `json:"id,omitempty"`
}
