package mailbox

import (
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"

	"lead-intake-go/internal/models"
)

// toEmailMessage converts a fetched IMAP message into an EmailMessage
func toEmailMessage(msg *imap.Message, section *imap.BodySectionName) (models.EmailMessage, error) {
	email := models.EmailMessage{
		UID:     msg.Uid,
		Headers: make(map[string]string),
	}

	if env := msg.Envelope; env != nil {
		email.Subject = env.Subject
		email.MessageID = env.MessageId
		email.Date = env.Date
		if len(env.From) > 0 {
			email.From = formatAddress(env.From[0])
		}
		for _, addr := range env.To {
			email.To = append(email.To, formatAddress(addr))
		}
		for _, addr := range env.Cc {
			email.CC = append(email.CC, formatAddress(addr))
		}
	}

	r := msg.GetBody(section)
	if r == nil {
		return email, fmt.Errorf("server returned no body for uid %d", msg.Uid)
	}

	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return email, fmt.Errorf("failed to read message: %w", err)
	}

	fields := entity.Header.Fields()
	for fields.Next() {
		if _, ok := email.Headers[fields.Key()]; !ok {
			email.Headers[fields.Key()] = fields.Value()
		}
	}

	if err := readParts(entity, &email); err != nil {
		return email, err
	}
	return email, nil
}

// readParts walks the MIME tree and keeps the first text/plain and text/html parts.
// Attachments are skipped.
func readParts(entity *message.Entity, email *models.EmailMessage) error {
	mediaType, _, _ := entity.Header.ContentType()

	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil && !message.IsUnknownCharset(err) {
				return fmt.Errorf("failed to read part: %w", err)
			}
			if err := readParts(part, email); err != nil {
				return err
			}
		}
	}

	if disp, _, _ := entity.Header.ContentDisposition(); disp == "attachment" {
		return nil
	}

	if mediaType == "" {
		mediaType = "text/plain"
	}
	if !strings.HasPrefix(mediaType, "text/") {
		return nil
	}

	content, err := io.ReadAll(entity.Body)
	if err != nil {
		return fmt.Errorf("failed to read message body: %w", err)
	}

	switch mediaType {
	case "text/plain":
		if email.Body == "" {
			email.Body = string(content)
		}
	case "text/html":
		if email.HTMLBody == "" {
			email.HTMLBody = string(content)
		}
	}
	return nil
}

func formatAddress(a *imap.Address) string {
	addr := mail.Address{Name: a.PersonalName, Address: a.Address()}
	if addr.Name == "" {
		return addr.Address
	}
	return addr.String()
}
