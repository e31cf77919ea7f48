// Package resend implements a Provider that sends emails via the Resend API.
package resend

import (
	"context"
	"fmt"
	"strings"

	resend "github.com/resend/resend-go/v2"

	"github.com/shineum/form-relay/internal/email"
	"github.com/shineum/form-relay/internal/provider"
)

const (
	// DefaultSender is Resend's shared onboarding identity, usable without
	// verifying a domain.
	DefaultSender = "Forms <onboarding@resend.dev>"

	// placeholderMarker flags sample keys copied from documentation.
	placeholderMarker = "REPLACE_WITH"
)

// ResendProviderConfig holds the configuration for creating a ResendProvider.
type ResendProviderConfig struct {
	APIKey string
}

// ResendProvider sends emails via the Resend transactional email API.
type ResendProvider struct {
	emails EmailsAPI
}

// EmailsAPI is the subset of the Resend emails service used by the provider.
// Used for testing with mock implementations.
type EmailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// New creates a new ResendProvider. It returns provider.ErrNotConfigured
// when the API key is empty or still a placeholder.
func New(cfg ResendProviderConfig) (*ResendProvider, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" || strings.Contains(key, placeholderMarker) {
		return nil, fmt.Errorf("resend: missing RESEND_API_KEY: %w", provider.ErrNotConfigured)
	}

	client := resend.NewClient(key)
	return &ResendProvider{emails: client.Emails}, nil
}

// NewWithClient creates a ResendProvider with a custom emails client, used for testing.
func NewWithClient(emails EmailsAPI) *ResendProvider {
	return &ResendProvider{emails: emails}
}

// Send delivers an email message via Resend in a single API call.
func (p *ResendProvider) Send(ctx context.Context, msg *email.Email) (*provider.Receipt, error) {
	params, err := buildSendEmailRequest(msg)
	if err != nil {
		return nil, err
	}

	sent, err := p.emails.SendWithContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("resend: %w", err)
	}

	receipt := &provider.Receipt{Provider: p.Name()}
	if sent != nil {
		receipt.ID = sent.Id
	}
	return receipt, nil
}

// Name returns the provider name.
func (p *ResendProvider) Name() string {
	return "resend"
}

// buildSendEmailRequest converts an email.Email into a Resend send request.
// Resend expects raw attachment bytes and base64-encodes them on the wire.
func buildSendEmailRequest(msg *email.Email) (*resend.SendEmailRequest, error) {
	attachments := make([]*resend.Attachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		content, err := att.Bytes()
		if err != nil {
			return nil, fmt.Errorf("resend: %w", err)
		}
		attachments = append(attachments, &resend.Attachment{
			Filename:    att.Filename,
			Content:     content,
			ContentType: att.ContentType,
		})
	}

	from := msg.From
	if from == "" {
		from = DefaultSender
	}

	return &resend.SendEmailRequest{
		From:        from,
		To:          msg.To,
		ReplyTo:     msg.ReplyTo,
		Subject:     msg.Subject,
		Html:        msg.HtmlBody,
		Text:        msg.TextBody,
		Attachments: attachments,
	}, nil
}
