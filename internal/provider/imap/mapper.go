package imap

import (
	"strconv"
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
)

// specialUseAttributes maps RFC 6154 mailbox attributes onto the neutral
// folder attribute vocabulary shared by all providers.
var specialUseAttributes = map[string]string{
	goimap.SentAttr:    "sent",
	goimap.DraftsAttr:  "drafts",
	goimap.TrashAttr:   "trash",
	goimap.JunkAttr:    "spam",
	goimap.ArchiveAttr: "archive",
	goimap.AllAttr:     "all",
}

func hasAttribute(attrs []string, want string) bool {
	for _, a := range attrs {
		if a == want {
			return true
		}
	}
	return false
}

// mapMailbox converts an IMAP mailbox listing to a remote folder. The
// mailbox path doubles as the folder id.
func mapMailbox(m *goimap.MailboxInfo) provider.RemoteFolder {
	folder := provider.RemoteFolder{
		ID:   m.Name,
		Name: m.Name,
	}

	if m.Delimiter != "" {
		if i := strings.LastIndex(m.Name, m.Delimiter); i >= 0 {
			folder.DisplayName = m.Name[i+len(m.Delimiter):]
			folder.ParentID = m.Name[:i]
		}
	}

	if strings.EqualFold(m.Name, "INBOX") {
		folder.Attributes = []string{"inbox"}
		return folder
	}
	for _, attr := range m.Attributes {
		if mapped, ok := specialUseAttributes[attr]; ok {
			folder.Attributes = append(folder.Attributes, mapped)
		}
	}
	return folder
}

// mapFetchedMessage converts a fetched IMAP message to a remote message.
// The Message-Id header is the provider id; servers without one fall back
// to a mailbox-scoped UID.
func mapFetchedMessage(folder string, msg *goimap.Message, section *goimap.BodySectionName) provider.RemoteMessage {
	out := provider.RemoteMessage{
		Unread:  !hasAttribute(msg.Flags, goimap.SeenFlag),
		Starred: hasAttribute(msg.Flags, goimap.FlaggedFlag),
	}

	if env := msg.Envelope; env != nil {
		out.ID = strings.Trim(env.MessageId, "<>")
		out.Subject = env.Subject
		out.From = mapAddresses(env.From)
		out.To = mapAddresses(env.To)
		out.CC = mapAddresses(env.Cc)
		out.BCC = mapAddresses(env.Bcc)
		if !env.Date.IsZero() {
			out.UnixSeconds = env.Date.Unix()
		}
	}
	if out.ID == "" {
		out.ID = folderUID(folder, msg.Uid)
	}
	if out.UnixSeconds == 0 && !msg.InternalDate.IsZero() {
		out.UnixSeconds = msg.InternalDate.Unix()
	}

	if literal := msg.GetBody(section); literal != nil {
		if env, err := enmime.ReadEnvelope(literal); err == nil {
			out.Body = env.Text
			if out.Body == "" {
				out.Body = env.HTML
			}
			out.Snippet = snippet(env.Text)
			for _, att := range env.Attachments {
				out.Attachments = append(out.Attachments, domain.Attachment{
					Filename: att.FileName,
					MIMEType: att.ContentType,
					Size:     int64(len(att.Content)),
				})
			}
		}
	}
	return out
}

func folderUID(folder string, uid uint32) string {
	return folder + ";" + strconv.FormatUint(uint64(uid), 10)
}

// pageRange converts a newest-first limit/offset page into an ascending
// sequence range. ok is false when the offset runs past the mailbox.
func pageRange(total uint32, limit, offset int) (start, end uint32, ok bool) {
	if offset < 0 {
		offset = 0
	}
	if uint32(offset) >= total {
		return 0, 0, false
	}
	end = total - uint32(offset)
	start = 1
	if limit > 0 && end > uint32(limit) {
		start = end - uint32(limit) + 1
	}
	return start, end, true
}

func mapAddresses(addrs []*goimap.Address) []domain.Address {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]domain.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, domain.Address{
			Name:  a.PersonalName,
			Email: a.Address(),
		})
	}
	return out
}

const snippetLength = 120

// snippet collapses whitespace and truncates to snippetLength runes so a
// multi-byte character is never split at the boundary.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > snippetLength {
		return string(runes[:snippetLength])
	}
	return text
}
