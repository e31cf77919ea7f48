package relay

import "net/http"

// Client-facing messages. They are part of the HTTP contract and are
// returned verbatim in the "error" field.
const (
	msgNotConfigured     = "Missing email provider configuration on server."
	msgBodyTooLarge      = "Request body too large."
	msgInvalidJSON       = "Invalid JSON body."
	msgInvalidTo         = "Missing or invalid 'to' email."
	msgMissingForm       = "Missing form data."
	msgMissingFormEmail  = "Missing form.email."
	msgInvalidAttachment = "Invalid attachment format."
	msgAttachmentTooBig  = "Attachment too large."
	msgMethodNotAllowed  = "Method not allowed"
	msgServerError       = "Server error"
)

// RequestError is a failure that maps to a specific HTTP status and message.
// Anything else that reaches the handler boundary becomes a 500.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func badRequest(message string) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: message}
}

func tooLarge(message string) *RequestError {
	return &RequestError{Status: http.StatusRequestEntityTooLarge, Message: message}
}
