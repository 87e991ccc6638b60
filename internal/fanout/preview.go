package fanout

import "chatcore/internal/domain"

// previewLimit is the maximum rune length of a notification preview before
// truncation.
const previewLimit = 50

// Preview builds the notification body for a message. Attachments use a fixed
// placeholder instead of raw content; long text is truncated with an ellipsis
// marker.
func Preview(msgType domain.MessageType, content string) string {
	switch msgType {
	case domain.MessageTypeImage:
		return "sent an image"
	case domain.MessageTypeFile:
		return "sent a file"
	}
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}
