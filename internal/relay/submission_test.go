package relay

import (
	"errors"
	"net/http"
	"testing"
)

func TestParseSubmission_Fields(t *testing.T) {
	t.Parallel()

	body := map[string]any{
		"to":         "a@b.com",
		"subject":    "Hello",
		"trackingId": "TRK-7",
		"form": map[string]any{
			"firstName": "Jane",
			"lastName":  "Doe",
			"email":     "c@d.com",
			"phone":     float64(5551234),
			"city":      "Lisbon",
			"agree":     "yes",
		},
		"meta": map[string]any{
			"url":       "https://example.com/contact",
			"userAgent": "Mozilla/5.0",
			"timestamp": "2024-05-01T10:00:00Z",
		},
	}

	sub, err := ParseSubmission(body, DefaultMaxAttachmentSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sub.To != "a@b.com" {
		t.Errorf("To: got %q, want %q", sub.To, "a@b.com")
	}
	if sub.Subject != "Hello" {
		t.Errorf("Subject: got %q, want %q", sub.Subject, "Hello")
	}
	if sub.TrackingID != "TRK-7" {
		t.Errorf("TrackingID: got %q, want %q", sub.TrackingID, "TRK-7")
	}
	want := FormFields{FirstName: "Jane", LastName: "Doe", Email: "c@d.com", Phone: "5551234", City: "Lisbon", Agree: true}
	if sub.Form != want {
		t.Errorf("Form: got %+v, want %+v", sub.Form, want)
	}
	if sub.Meta.URL != "https://example.com/contact" || sub.Meta.UserAgent != "Mozilla/5.0" || sub.Meta.Timestamp != "2024-05-01T10:00:00Z" {
		t.Errorf("Meta: got %+v", sub.Meta)
	}
	if sub.Attachment != nil {
		t.Errorf("Attachment: got %+v, want nil", sub.Attachment)
	}
}

func TestParseSubmission_FalsySubjectIsDropped(t *testing.T) {
	t.Parallel()

	for _, subject := range []any{nil, "", false, float64(0)} {
		sub, err := ParseSubmission(map[string]any{
			"to":      "a@b.com",
			"subject": subject,
			"form":    map[string]any{"email": "c@d.com"},
		}, DefaultMaxAttachmentSize)
		if err != nil {
			t.Fatalf("subject %v: unexpected error: %v", subject, err)
		}
		if sub.Subject != "" {
			t.Errorf("subject %v: got %q, want empty", subject, sub.Subject)
		}
	}
}

func TestParseSubmission_FormEmailTruthiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		email   any
		wantErr bool
	}{
		{name: "string", email: "c@d.com", wantErr: false},
		{name: "number", email: float64(7), wantErr: false},
		{name: "true", email: true, wantErr: false},
		{name: "empty string", email: "", wantErr: true},
		{name: "zero", email: float64(0), wantErr: true},
		{name: "false", email: false, wantErr: true},
		{name: "null", email: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSubmission(map[string]any{
				"to":   "a@b.com",
				"form": map[string]any{"email": tt.email},
			}, DefaultMaxAttachmentSize)
			if (err != nil) != tt.wantErr {
				t.Fatalf("got err=%v, wantErr=%v", err, tt.wantErr)
			}
			if err != nil {
				var reqErr *RequestError
				if !errors.As(err, &reqErr) || reqErr.Message != msgMissingFormEmail {
					t.Errorf("error: got %v, want %q", err, msgMissingFormEmail)
				}
			}
		})
	}
}

func TestParseSubmission_ArrayFormIsRejected(t *testing.T) {
	t.Parallel()

	_, err := ParseSubmission(map[string]any{
		"to":   "a@b.com",
		"form": []any{"c@d.com"},
	}, DefaultMaxAttachmentSize)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %v", err)
	}
	if reqErr.Status != http.StatusBadRequest || reqErr.Message != msgMissingForm {
		t.Errorf("got %d %q, want 400 %q", reqErr.Status, reqErr.Message, msgMissingForm)
	}
}

func TestParseAttachment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		filename        string
		dataURL         string
		wantContent     string
		wantContentType string
		wantStatus      int
	}{
		{
			name:            "png data url",
			filename:        "photo.png",
			dataURL:         "data:image/png;base64,iVBORw0KGgo=",
			wantContent:     "iVBORw0KGgo=",
			wantContentType: "image/png",
		},
		{
			name:            "everything after the first comma",
			filename:        "odd.bin",
			dataURL:         "data:application/octet-stream;base64,AAAA,BBBB",
			wantContent:     "AAAA,BBBB",
			wantContentType: "application/octet-stream",
		},
		{
			name:            "content type from extension",
			filename:        "scan.pdf",
			dataURL:         "base64,JVBERi0=",
			wantContent:     "JVBERi0=",
			wantContentType: "application/pdf",
		},
		{
			name:            "unknown type",
			filename:        "blob",
			dataURL:         ",AAAA",
			wantContent:     "AAAA",
			wantContentType: "application/octet-stream",
		},
		{
			name:       "no comma",
			filename:   "photo.png",
			dataURL:    "data:image/png;base64",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "too large",
			filename:   "photo.png",
			dataURL:    "data:image/png;base64,AAAAAAAAAAAAA",
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			att, err := parseAttachment(tt.filename, tt.dataURL, 12)
			if tt.wantStatus != 0 {
				var reqErr *RequestError
				if !errors.As(err, &reqErr) {
					t.Fatalf("expected *RequestError, got %v", err)
				}
				if reqErr.Status != tt.wantStatus {
					t.Errorf("status: got %d, want %d", reqErr.Status, tt.wantStatus)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if att.Filename != tt.filename {
				t.Errorf("Filename: got %q, want %q", att.Filename, tt.filename)
			}
			if att.Content != tt.wantContent {
				t.Errorf("Content: got %q, want %q", att.Content, tt.wantContent)
			}
			if att.ContentType != tt.wantContentType {
				t.Errorf("ContentType: got %q, want %q", att.ContentType, tt.wantContentType)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: ""},
		{in: "text", want: "text"},
		{in: true, want: "true"},
		{in: false, want: "false"},
		{in: float64(42), want: "42"},
		{in: 3.5, want: "3.5"},
		{in: map[string]any{"a": float64(1)}, want: `{"a":1}`},
		{in: []any{"x", float64(2)}, want: `["x",2]`},
	}

	for _, tt := range tests {
		if got := stringify(tt.in); got != tt.want {
			t.Errorf("stringify(%#v): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
