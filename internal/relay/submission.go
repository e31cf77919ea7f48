package relay

import (
	"encoding/json"
	"math"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shineum/form-relay/internal/email"
)

const defaultContentType = "application/octet-stream"

// Submission is a validated form submission with every display value
// already converted to a string.
type Submission struct {
	To         string
	Subject    string
	TrackingID string
	Form       FormFields
	Meta       Meta
	Attachment *email.Attachment
}

// FormFields holds the submitter's contact details.
type FormFields struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	City      string
	Agree     bool
}

// Meta describes where and when the form was submitted.
type Meta struct {
	URL       string
	UserAgent string
	Timestamp string
}

// ParseSubmission validates a decoded JSON object and extracts the
// submission. Checks run in a fixed order and the first failure is returned
// as a *RequestError. Attachments whose base64 payload is longer than
// maxAttachment characters are rejected.
func ParseSubmission(body map[string]any, maxAttachment int) (*Submission, error) {
	to, ok := body["to"].(string)
	if !ok || to == "" {
		return nil, badRequest(msgInvalidTo)
	}

	form, ok := body["form"].(map[string]any)
	if !ok {
		return nil, badRequest(msgMissingForm)
	}
	if !truthy(form["email"]) {
		return nil, badRequest(msgMissingFormEmail)
	}

	sub := &Submission{
		To:         to,
		TrackingID: stringify(body["trackingId"]),
		Form: FormFields{
			FirstName: stringify(form["firstName"]),
			LastName:  stringify(form["lastName"]),
			Email:     stringify(form["email"]),
			Phone:     stringify(form["phone"]),
			City:      stringify(form["city"]),
			Agree:     truthy(form["agree"]),
		},
	}
	if truthy(body["subject"]) {
		sub.Subject = stringify(body["subject"])
	}
	if meta, ok := body["meta"].(map[string]any); ok {
		sub.Meta = Meta{
			URL:       stringify(meta["url"]),
			UserAgent: stringify(meta["userAgent"]),
			Timestamp: stringify(meta["timestamp"]),
		}
	}

	if att, ok := body["attachment"].(map[string]any); ok && truthy(att["name"]) && truthy(att["dataUrl"]) {
		a, err := parseAttachment(stringify(att["name"]), stringify(att["dataUrl"]), maxAttachment)
		if err != nil {
			return nil, err
		}
		sub.Attachment = a
	}

	return sub, nil
}

// parseAttachment splits a data URL ("data:image/png;base64,<payload>") on
// its first comma and keeps the payload untouched.
func parseAttachment(name, dataURL string, maxAttachment int) (*email.Attachment, error) {
	header, payload, found := strings.Cut(dataURL, ",")
	if !found {
		return nil, badRequest(msgInvalidAttachment)
	}
	if len(payload) > maxAttachment {
		return nil, tooLarge(msgAttachmentTooBig)
	}
	return &email.Attachment{
		Filename:    name,
		ContentType: contentType(header, name),
		Content:     payload,
	}, nil
}

// contentType takes the media type from the data URL header, then from the
// file extension.
func contentType(header, filename string) string {
	header = strings.TrimPrefix(header, "data:")
	if mediaType, _, _ := strings.Cut(header, ";"); strings.Contains(mediaType, "/") {
		return strings.TrimSpace(mediaType)
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return defaultContentType
}

// truthy reports whether a decoded JSON value counts as present.
// null, "", false and 0 do not.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}

// stringify renders a decoded JSON value for display. Missing values and
// null become the empty string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
