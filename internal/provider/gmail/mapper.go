package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
)

// labelAttributes maps Gmail system label ids onto the neutral folder
// attribute vocabulary shared by all providers.
var labelAttributes = map[string]string{
	"INBOX": "inbox",
	"SENT":  "sent",
	"DRAFT": "drafts",
	"TRASH": "trash",
	"SPAM":  "spam",
}

// statusLabels are message-state labels that never represent a folder and
// must survive a folder move.
var statusLabels = map[string]struct{}{
	"UNREAD":    {},
	"STARRED":   {},
	"IMPORTANT": {},
}

// isFolderLabel reports whether the label id stands for a folder rather
// than message state. CATEGORY_* tabs are classification, not location.
func isFolderLabel(id string) bool {
	if _, ok := statusLabels[id]; ok {
		return false
	}
	return !strings.HasPrefix(id, "CATEGORY_")
}

// mapLabel converts a Gmail label to a remote folder.
func mapLabel(l *gmailapi.Label) provider.RemoteFolder {
	folder := provider.RemoteFolder{
		ID:          l.Id,
		Name:        l.Name,
		TotalCount:  int(l.MessagesTotal),
		UnreadCount: int(l.MessagesUnread),
	}
	if l.Type == "system" {
		if attr, ok := labelAttributes[l.Id]; ok {
			folder.Attributes = []string{attr}
		}
	}
	return folder
}

// mapMessage converts a Gmail API message to a remote message. The
// provider's millisecond InternalDate is preferred over the Date header;
// the header is only a fallback for drafts that lack it.
func mapMessage(msg *gmailapi.Message) provider.RemoteMessage {
	var headers []*gmailapi.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	text, html := extractBody(msg.Payload)
	body := text
	if body == "" {
		body = html
	}

	unix := msg.InternalDate / 1000
	if unix == 0 {
		if t := parseDate(findHeader(headers, "Date")); !t.IsZero() {
			unix = t.Unix()
		}
	}

	attachments := extractAttachments(msg.Payload)

	return provider.RemoteMessage{
		ID:          msg.Id,
		ThreadID:    msg.ThreadId,
		Subject:     findHeader(headers, "Subject"),
		From:        parseAddressList(findHeader(headers, "From")),
		To:          parseAddressList(findHeader(headers, "To")),
		CC:          parseAddressList(findHeader(headers, "Cc")),
		BCC:         parseAddressList(findHeader(headers, "Bcc")),
		Body:        body,
		Snippet:     msg.Snippet,
		UnixSeconds: unix,
		Unread:      containsLabel(msg.LabelIds, "UNREAD"),
		Starred:     containsLabel(msg.LabelIds, "STARRED"),
		Attachments: attachments,
	}
}

// findHeader performs a case-insensitive lookup for a header value.
func findHeader(headers []*gmailapi.MessagePartHeader, name string) string {
	lower := strings.ToLower(name)
	for _, h := range headers {
		if strings.ToLower(h.Name) == lower {
			return h.Value
		}
	}
	return ""
}

// parseAddress parses an RFC 5322 address string.
// Falls back to treating the entire string as a bare email if parsing fails.
func parseAddress(s string) domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Address{}
	}

	addr, err := mail.ParseAddress(s)
	if err != nil {
		return domain.Address{Email: s}
	}
	return domain.Address{
		Name:  addr.Name,
		Email: addr.Address,
	}
}

// parseAddressList parses a comma-separated list of RFC 5322 addresses.
func parseAddressList(s string) []domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parsed, err := mail.ParseAddressList(s)
	if err != nil {
		// Fallback: split by comma and parse individually
		parts := strings.Split(s, ",")
		var addrs []domain.Address
		for _, p := range parts {
			if a := parseAddress(p); a.Email != "" {
				addrs = append(addrs, a)
			}
		}
		return addrs
	}

	addrs := make([]domain.Address, 0, len(parsed))
	for _, a := range parsed {
		addrs = append(addrs, domain.Address{
			Name:  a.Name,
			Email: a.Address,
		})
	}
	return addrs
}

// parseDate tries multiple date formats commonly used in email headers.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		"2006-01-02T15:04:05Z07:00",
		"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// containsLabel checks if a label is present in the list.
func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// extractBody recursively extracts text/plain and text/html content from a message payload.
func extractBody(payload *gmailapi.MessagePart) (text, html string) {
	if payload == nil {
		return "", ""
	}

	if len(payload.Parts) > 0 {
		for _, part := range payload.Parts {
			t, h := extractBody(part)
			if text == "" && t != "" {
				text = t
			}
			if html == "" && h != "" {
				html = h
			}
		}
		return text, html
	}

	data := ""
	if payload.Body != nil {
		data = decodeBase64URL(payload.Body.Data)
	}

	switch payload.MimeType {
	case "text/plain":
		return data, ""
	case "text/html":
		return "", data
	}
	return "", ""
}

// extractAttachments collects attachment metadata from message parts.
func extractAttachments(payload *gmailapi.MessagePart) []domain.Attachment {
	if payload == nil {
		return nil
	}
	var attachments []domain.Attachment
	collectAttachments(payload, &attachments)
	return attachments
}

func collectAttachments(part *gmailapi.MessagePart, attachments *[]domain.Attachment) {
	if part.Filename != "" && part.Body != nil {
		*attachments = append(*attachments, domain.Attachment{
			ID:       part.Body.AttachmentId,
			Filename: part.Filename,
			MIMEType: part.MimeType,
			Size:     part.Body.Size,
		})
	}
	for _, p := range part.Parts {
		collectAttachments(p, attachments)
	}
}

// decodeBase64URL decodes Gmail's URL-safe base64 encoded strings (without padding).
func decodeBase64URL(s string) string {
	if s == "" {
		return ""
	}
	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		return ""
	}
	return string(data)
}
