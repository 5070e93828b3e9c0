package gmail

import (
	"encoding/base64"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
)

// maxBodyChars caps decoded body text kept per message.
const maxBodyChars = 20000

func convertMessage(m *gmail.Message) mailboxdomain.ThreadMessage {
	return mailboxdomain.ThreadMessage{
		ID:           m.Id,
		Headers:      headersMap(m.Payload),
		Labels:       m.LabelIds,
		InternalDate: time.UnixMilli(m.InternalDate).UTC(),
		Snippet:      m.Snippet,
	}
}

// headersMap turns payload headers into a map keyed by lowercased name.
// Later duplicates win, matching Gmail's own display behavior.
func headersMap(payload *gmail.MessagePart) map[string]string {
	headers := make(map[string]string)
	if payload == nil {
		return headers
	}
	for _, h := range payload.Headers {
		headers[strings.ToLower(h.Name)] = h.Value
	}
	return headers
}

// extractBody walks a message part tree and returns the first decoded
// text/plain body, falling back to text/html stripped of nothing (the
// caller truncates and displays as-is). Multipart containers are searched
// depth-first.
func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if plain := findBodyByMIME(payload, "text/plain"); plain != "" {
		return plain
	}
	return findBodyByMIME(payload, "text/html")
}

func findBodyByMIME(part *gmail.MessagePart, mimeType string) string {
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	for _, p := range part.Parts {
		if body := findBodyByMIME(p, mimeType); body != "" {
			return body
		}
	}
	return ""
}

// decodeBody decodes Gmail's URL-safe base64 body data, tolerating both
// padded and unpadded forms.
func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

// threadWebURL builds the Gmail web link for a thread.
func threadWebURL(threadID string) string {
	return "https://mail.google.com/mail/u/0/#all/" + threadID
}
