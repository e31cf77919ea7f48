// Package sendgrid implements a Provider that sends emails via the SendGrid v3 API.
package sendgrid

import (
	"context"
	"fmt"
	netmail "net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/shineum/form-relay/internal/email"
	"github.com/shineum/form-relay/internal/provider"
)

// SendGridProviderConfig holds the configuration for creating a SendGridProvider.
type SendGridProviderConfig struct {
	APIKey string
	// Sender is the verified sender identity used when a message has no From.
	Sender string
}

// SendGridProvider sends emails via the SendGrid mail/send endpoint.
type SendGridProvider struct {
	sender string
	client Client
}

// Client is the subset of *sendgrid.Client used by the provider.
type Client interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// New creates a new SendGridProvider.
func New(cfg SendGridProviderConfig) (*SendGridProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sendgrid: missing SENDGRID_API_KEY: %w", provider.ErrNotConfigured)
	}
	return &SendGridProvider{sender: cfg.Sender, client: sendgrid.NewSendClient(cfg.APIKey)}, nil
}

// NewWithClient creates a SendGridProvider with a custom client, used for testing.
func NewWithClient(sender string, client Client) *SendGridProvider {
	return &SendGridProvider{sender: sender, client: client}
}

// Send delivers an email message via SendGrid.
func (p *SendGridProvider) Send(ctx context.Context, msg *email.Email) (*provider.Receipt, error) {
	from := msg.From
	if from == "" {
		from = p.sender
	}
	if from == "" {
		return nil, fmt.Errorf("sendgrid: no sender, set FORM_SENDER or SENDGRID_SENDER: %w", provider.ErrNotConfigured)
	}

	message, err := buildMessage(from, msg)
	if err != nil {
		return nil, err
	}

	response, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return nil, fmt.Errorf("sendgrid API error: %d - %s", response.StatusCode, response.Body)
	}

	receipt := &provider.Receipt{Provider: p.Name()}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		receipt.ID = ids[0]
	}
	return receipt, nil
}

// Name returns the provider name.
func (p *SendGridProvider) Name() string {
	return "sendgrid"
}

// buildMessage converts an email.Email into a SendGrid v3 mail body.
func buildMessage(sender string, msg *email.Email) (*mail.SGMailV3, error) {
	from, err := parseAddress(sender)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: invalid sender %q: %w", sender, err)
	}

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = msg.Subject

	personalization := mail.NewPersonalization()
	for _, to := range msg.To {
		personalization.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(personalization)

	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	// text/plain must precede text/html
	if msg.TextBody != "" {
		message.AddContent(mail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HtmlBody != "" {
		message.AddContent(mail.NewContent("text/html", msg.HtmlBody))
	}

	for _, att := range msg.Attachments {
		a := mail.NewAttachment()
		a.SetContent(att.Content)
		a.SetFilename(att.Filename)
		a.SetDisposition("attachment")
		if att.ContentType != "" {
			a.SetType(att.ContentType)
		}
		message.AddAttachment(a)
	}

	return message, nil
}

// parseAddress splits "Name <addr>" into its parts.
func parseAddress(s string) (*mail.Email, error) {
	addr, err := netmail.ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return mail.NewEmail(addr.Name, addr.Address), nil
}
