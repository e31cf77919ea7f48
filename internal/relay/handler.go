// Package relay implements the form submission endpoint: it validates a JSON
// submission, renders it as an HTML email and hands it to a delivery provider.
package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shineum/form-relay/internal/email"
	"github.com/shineum/form-relay/internal/provider"
)

const (
	DefaultSubject           = "New Submission"
	DefaultMaxBodySize       = 10 * 1024 * 1024
	DefaultMaxAttachmentSize = 12_000_000

	requestIDHeader = "X-Request-ID"
)

// Options holds the fixed parts of every relayed message and the size
// ceilings. Zero sizes and subject are replaced with the defaults above. An
// empty Sender is passed through so the provider can use its own.
type Options struct {
	Sender            string
	DefaultSubject    string
	MaxBodySize       int64
	MaxAttachmentSize int
}

// Handler serves the form submission endpoint.
type Handler struct {
	provider provider.Provider
	opts     Options
}

// NewHandler creates a Handler that delivers through p. A nil provider is
// allowed: every submission is then refused with a configuration error.
func NewHandler(p provider.Provider, opts Options) *Handler {
	if opts.DefaultSubject == "" {
		opts.DefaultSubject = DefaultSubject
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	if opts.MaxAttachmentSize <= 0 {
		opts.MaxAttachmentSize = DefaultMaxAttachmentSize
	}
	return &Handler{provider: p, opts: opts}
}

type successResponse struct {
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	Result  *provider.Receipt `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed})
		return
	}

	logger := slog.With("request_id", r.Header.Get(requestIDHeader))

	msg, err := h.buildEmail(w, r)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			logger.Warn("rejected form submission", "status", reqErr.Status, "error", reqErr.Message)
			writeJSON(w, reqErr.Status, errorResponse{Error: reqErr.Message})
			return
		}
		logger.Error("failed to build email", "error", err)
		writeServerError(w, err)
		return
	}

	logger = logger.With(
		"provider", h.provider.Name(),
		"to", msg.To[0],
		"attachments", len(msg.Attachments),
	)

	receipt, err := h.provider.Send(r.Context(), msg)
	if err != nil {
		logger.Error("email delivery failed", "error", err)
		writeServerError(w, err)
		return
	}
	if receipt == nil {
		receipt = &provider.Receipt{}
	}
	if receipt.Provider == "" {
		receipt.Provider = h.provider.Name()
	}

	logger.Info("form submission relayed", "receipt_id", receipt.ID)
	writeJSON(w, http.StatusOK, successResponse{
		OK:      true,
		Message: "Email sent.",
		Result:  receipt,
	})
}

// buildEmail runs the validation sequence and constructs the outbound message.
func (h *Handler) buildEmail(w http.ResponseWriter, r *http.Request) (*email.Email, error) {
	if h.provider == nil {
		return nil, &RequestError{Status: http.StatusInternalServerError, Message: msgNotConfigured}
	}

	body, err := h.decodeBody(w, r)
	if err != nil {
		return nil, err
	}

	sub, err := ParseSubmission(body, h.opts.MaxAttachmentSize)
	if err != nil {
		return nil, err
	}

	html, err := RenderHTML(sub)
	if err != nil {
		return nil, err
	}
	text, err := RenderText(sub)
	if err != nil {
		return nil, err
	}

	subject := sub.Subject
	if subject == "" {
		subject = h.opts.DefaultSubject
	}

	msg := &email.Email{
		From:     h.opts.Sender,
		To:       []string{sub.To},
		ReplyTo:  sub.Form.Email,
		Subject:  subject,
		TextBody: text,
		HtmlBody: html,
	}
	if sub.Attachment != nil {
		msg.Attachments = []email.Attachment{*sub.Attachment}
	}
	return msg, nil
}

// decodeBody reads the request body up to the configured ceiling and decodes
// it as a JSON object. An empty body decodes as an empty object.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge(msgBodyTooLarge)
		}
		return nil, badRequest(msgInvalidJSON)
	}

	body := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return body, nil
	}
	// A JSON null leaves the map nil.
	if err := json.Unmarshal(data, &body); err != nil || body == nil {
		return nil, badRequest(msgInvalidJSON)
	}
	return body, nil
}

func writeServerError(w http.ResponseWriter, err error) {
	message := err.Error()
	if message == "" {
		message = msgServerError
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
