// Package mailgun implements a Provider that sends emails via the Mailgun API.
package mailgun

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/shineum/form-relay/internal/email"
	"github.com/shineum/form-relay/internal/provider"
)

// MailgunProviderConfig holds the configuration for creating a MailgunProvider.
type MailgunProviderConfig struct {
	APIKey string
	Domain string
	// APIBase overrides the API endpoint, e.g. mailgun.APIBaseEU.
	APIBase string
	// Sender is used when a message has no From. Defaults to the
	// postmaster address of Domain.
	Sender string
}

// MailgunProvider sends emails through a Mailgun sending domain.
type MailgunProvider struct {
	sender string
	client Client
}

// Client is the subset of *mailgun.MailgunImpl used by the provider.
type Client interface {
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

// New creates a new MailgunProvider.
func New(cfg MailgunProviderConfig) (*MailgunProvider, error) {
	if cfg.APIKey == "" || cfg.Domain == "" {
		return nil, fmt.Errorf("mailgun: MAILGUN_API_KEY and MAILGUN_DOMAIN are required: %w", provider.ErrNotConfigured)
	}

	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	sender := cfg.Sender
	if sender == "" {
		sender = "Forms <postmaster@" + cfg.Domain + ">"
	}
	return &MailgunProvider{sender: sender, client: mg}, nil
}

// NewWithClient creates a MailgunProvider with a custom client, used for testing.
func NewWithClient(sender string, client Client) *MailgunProvider {
	return &MailgunProvider{sender: sender, client: client}
}

// Send delivers an email message via Mailgun.
func (p *MailgunProvider) Send(ctx context.Context, msg *email.Email) (*provider.Receipt, error) {
	from := msg.From
	if from == "" {
		from = p.sender
	}

	message := mailgun.NewMessage(from, msg.Subject, msg.TextBody, msg.To...)
	if msg.HtmlBody != "" {
		message.SetHTML(msg.HtmlBody)
	}
	if msg.ReplyTo != "" {
		message.SetReplyTo(msg.ReplyTo)
	}
	for _, att := range msg.Attachments {
		data, err := att.Bytes()
		if err != nil {
			return nil, fmt.Errorf("mailgun: %w", err)
		}
		message.AddBufferAttachment(att.Filename, data)
	}

	_, id, err := p.client.Send(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("mailgun: failed to send email: %w", err)
	}

	return &provider.Receipt{Provider: p.Name(), ID: id}, nil
}

// Name returns the provider name.
func (p *MailgunProvider) Name() string {
	return "mailgun"
}
