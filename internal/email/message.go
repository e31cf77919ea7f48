// Package email defines the outbound email data model shared by the relay
// handler and the delivery providers.
package email

import (
	"encoding/base64"
	"fmt"
)

// Email represents an outbound email message with all its components.
// An empty From lets the provider apply its own verified sender.
type Email struct {
	From        string
	To          []string
	ReplyTo     string
	Subject     string
	TextBody    string
	HtmlBody    string
	Attachments []Attachment
}

// Attachment represents a file attached to an email message.
// Content holds the standard base64 encoding of the file, exactly as it was
// received from the submitter.
type Attachment struct {
	Filename    string
	ContentType string
	Content     string
}

// Bytes decodes the base64 content of the attachment.
func (a Attachment) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Content)
	if err != nil {
		return nil, fmt.Errorf("attachment %q is not valid base64: %w", a.Filename, err)
	}
	return data, nil
}
