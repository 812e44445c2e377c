package imap

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"

	"github.com/mailbridge/mailbridge/internal/domain"
	"github.com/mailbridge/mailbridge/internal/provider"
)

// sendSMTP submits the draft through the account's SMTP server and
// returns the generated Message-Id. Port 465 uses implicit TLS, anything
// else STARTTLS.
func sendSMTP(creds *credentials, draft provider.Draft) (string, error) {
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), creds.SMTPHost)
	body := buildMessage(creds.Username, messageID, draft)

	addr := fmt.Sprintf("%s:%d", creds.SMTPHost, creds.SMTPPort)
	auth := smtp.PlainAuth("", creds.Username, creds.Password, creds.SMTPHost)

	var cl *smtp.Client
	var err error
	if creds.SMTPPort == 465 {
		conn, derr := tls.Dial("tcp", addr, &tls.Config{ServerName: creds.SMTPHost})
		if derr != nil {
			return "", fmt.Errorf("failed to connect to smtp server: %w", derr)
		}
		cl, err = smtp.NewClient(conn, creds.SMTPHost)
		if err != nil {
			conn.Close()
			return "", fmt.Errorf("failed to create smtp client: %w", err)
		}
	} else {
		cl, err = smtp.Dial(addr)
		if err != nil {
			return "", fmt.Errorf("failed to connect to smtp server: %w", err)
		}
		if err := cl.StartTLS(&tls.Config{ServerName: creds.SMTPHost}); err != nil {
			cl.Close()
			return "", fmt.Errorf("failed to start tls: %w", err)
		}
	}
	defer cl.Close()

	if err := cl.Auth(auth); err != nil {
		return "", fmt.Errorf("%w: smtp auth failed: %v", provider.ErrAuthRequired, err)
	}
	if err := cl.Mail(creds.Username); err != nil {
		return "", fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range recipients(draft) {
		if err := cl.Rcpt(rcpt); err != nil {
			return "", fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := cl.Data()
	if err != nil {
		return "", fmt.Errorf("failed to send data command: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return "", fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close data writer: %w", err)
	}
	if err := cl.Quit(); err != nil {
		return "", fmt.Errorf("failed to quit: %w", err)
	}
	return strings.Trim(messageID, "<>"), nil
}

func recipients(draft provider.Draft) []string {
	var out []string
	for _, a := range draft.To {
		out = append(out, a.Email)
	}
	for _, a := range draft.CC {
		out = append(out, a.Email)
	}
	for _, a := range draft.BCC {
		out = append(out, a.Email)
	}
	return out
}

func buildMessage(from, messageID string, draft provider.Draft) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", joinAddresses(draft.To)))
	if len(draft.CC) > 0 {
		buf.WriteString(fmt.Sprintf("Cc: %s\r\n", joinAddresses(draft.CC)))
	}
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", draft.Subject))
	buf.WriteString(fmt.Sprintf("Message-Id: %s\r\n", messageID))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(draft.Body)

	return buf.Bytes()
}

func joinAddresses(addrs []domain.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}
