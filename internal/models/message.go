package models

import "time"

// EmailMessage is a message fetched from the monitored mailbox. It is consumed once and never persisted as-is.
type EmailMessage struct {
	UID       uint32            `json:"uid"`
	MessageID string            `json:"message_id"`
	Subject   string            `json:"subject"`
	From      string            `json:"from"`
	To        []string          `json:"to"`
	CC        []string          `json:"cc"`
	Body      string            `json:"body"`
	HTMLBody  string            `json:"html_body"`
	Headers   map[string]string `json:"headers"`
	Date      time.Time         `json:"date"`

	// ParseError is set when the envelope was read but the body could not be decoded
	ParseError string `json:"parse_error,omitempty"`
}

// Recipients returns the To and Cc addresses
func (m EmailMessage) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.CC))
	out = append(out, m.To...)
	out = append(out, m.CC...)
	return out
}

// Content returns the plain body, falling back to the HTML body
func (m EmailMessage) Content() string {
	if m.Body != "" {
		return m.Body
	}
	return m.HTMLBody
}
