package models

// Provenance metadata keys
const (
	MetaOriginalSubject = "original_subject"
	MetaSenderDomain    = "sender_domain"
	MetaParsedAt        = "parsed_at"
	MetaContentLength   = "content_length"
)

// ParsedLeadCandidate holds the fields extracted from an inbound message. Empty means unknown.
type ParsedLeadCandidate struct {
	FirstName       string            `json:"first_name,omitempty"`
	LastName        string            `json:"last_name,omitempty"`
	Email           string            `json:"email,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	VehicleInterest string            `json:"vehicle_interest,omitempty"`
	LeadSource      string            `json:"lead_source,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// HasName reports whether either name part was found
func (c ParsedLeadCandidate) HasName() bool {
	return c.FirstName != "" || c.LastName != ""
}
