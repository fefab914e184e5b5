// Package extractor turns free-text lead emails into candidate lead fields.
package extractor

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"lead-intake-go/internal/models"
)

const (
	// SourceWebsite is used for website and contact-form submissions
	SourceWebsite = "website"
	// SourceEmail is the generic inbound classification
	SourceEmail = "email"

	maxMetadataLines = 10
	maxNotesLength   = 1000
)

const emailToken = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`

var (
	emailRe      = regexp.MustCompile(emailToken)
	validEmailRe = regexp.MustCompile(`^` + emailToken + `$`)

	labeledPhoneRe = regexp.MustCompile(`(?i)\b(?:phone|tel|mobile|cell)(?:\s*(?:number|no\.?|#))?\s*:\s*(\+?\(?\d[\d ().\-]{5,}\d)`)
	barePhoneRe    = regexp.MustCompile(`(?:\+?1[ .\-]?)?(?:\(\d{3}\)|\b\d{3})[ .\-]?\d{3}[ .\-]?\d{4}\b`)

	nameLabelRe   = regexp.MustCompile(`(?im)\b(first|last)?\s*(?:name|customer)\s*:[ \t]*([^\n,;:<>]*)`)
	displayNameRe = regexp.MustCompile(`(?m)(?:^|[:,;]\s*)"?([\p{L}][\p{L}'.\-]*(?:[ \t]+[\p{L}][\p{L}'.\-]*){0,3})"?[ \t]*<\s*` + emailToken + `\s*>`)
	fromLineRe    = regexp.MustCompile(`(?im)^[ \t]*from[ \t]*:[ \t]*"?([\p{L}][\p{L}'.\-]*(?:[ \t]+[\p{L}][\p{L}'.\-]*){0,3})"?[ \t]*(?:<|\(|$)`)

	vehicleLabelRe = regexp.MustCompile(`(?i)\b(?:vehicle(?:\s+of\s+interest)?|model|interested\s+in)\s*:[ \t]*([^\n,;:]+)`)

	websiteSubjectRe = regexp.MustCompile(`(?i)\b(?:website|contact)\b`)

	notesRe    = regexp.MustCompile(`(?im)\b(?:comments?|message|notes?|questions?)[ \t]*:[ \t]*(.+)$`)
	metadataRe = regexp.MustCompile(`(?m)^[ \t]*([A-Za-z][A-Za-z0-9 _\-]{0,40}?)[ \t]*:[ \t]*(\S.*?)[ \t]*$`)
)

// vendorSources maps known lead vendor domains to a lead source name. Subdomains match.
var vendorSources = map[string]string{
	"autotrader.com":   "AutoTrader",
	"cars.com":         "Cars.com",
	"cargurus.com":     "CarGurus",
	"truecar.com":      "TrueCar",
	"edmunds.com":      "Edmunds",
	"kbb.com":          "Kelley Blue Book",
	"carfax.com":       "Carfax",
	"capitalone.com":   "Capital One Auto Navigator",
	"facebookmail.com": "Facebook Marketplace",
}

// knownLabels are field labels consumed by the cascades and excluded from metadata
var knownLabels = map[string]bool{
	"name": true, "first name": true, "last name": true, "full name": true, "customer": true,
	"customer name": true, "email": true, "e-mail": true, "email address": true,
	"phone": true, "phone number": true, "tel": true, "mobile": true, "cell": true,
	"vehicle": true, "vehicle of interest": true, "model": true, "interested in": true,
	"from": true, "to": true, "cc": true, "subject": true, "date": true, "sent": true,
	"comment": true, "comments": true, "message": true, "note": true, "notes": true,
	"question": true, "questions": true,
}

var emailRules = []rule{
	{name: "body_token", match: func(text string) string { return emailRe.FindString(text) }},
}

var phoneRules = []rule{
	{name: "labeled", match: submatch(labeledPhoneRe, NormalizePhone)},
	{name: "bare", match: func(text string) string { return NormalizePhone(barePhoneRe.FindString(text)) }},
}

var vehicleRules = []rule{
	{name: "labeled", match: labeled(vehicleLabelRe, cleanVehicle)},
	{name: "model_vocabulary", match: vocabularyMatcher(vehicleModels)},
	{name: "brand_vocabulary", match: vocabularyMatcher(vehicleBrands)},
}

// Extractor parses lead candidates. The zero value is not usable; call New.
type Extractor struct {
	now func() time.Time
}

// New creates a new extractor
func New() *Extractor {
	return &Extractor{now: time.Now}
}

// Extract parses subject, body and sender into a candidate. Markup in body is stripped first.
func (e *Extractor) Extract(subject, body, sender string) models.ParsedLeadCandidate {
	text := StripTags(body)
	senderAddr := senderAddress(sender)
	domain := domainOf(senderAddr)

	c := models.ParsedLeadCandidate{
		Email:           ExtractEmail(text),
		Phone:           ExtractPhone(text),
		VehicleInterest: ExtractVehicle(text),
		LeadSource:      ClassifySource(domain, subject),
		Notes:           extractNotes(text),
		Metadata:        map[string]string{},
	}
	if c.Email == "" && senderAddr != "" && !isVendorDomain(domain) && !isAutomatedSender(senderAddr) {
		c.Email = senderAddr
	}
	c.FirstName, c.LastName = ExtractName(text, sender)

	for k, v := range extractMetadata(text) {
		c.Metadata[k] = v
	}
	c.Metadata[models.MetaOriginalSubject] = subject
	c.Metadata[models.MetaSenderDomain] = domain
	c.Metadata[models.MetaParsedAt] = e.now().UTC().Format(time.RFC3339)
	c.Metadata[models.MetaContentLength] = strconv.Itoa(len(text))

	return c
}

// ExtractEmail returns the first email-shaped token in text
func ExtractEmail(text string) string {
	v, _ := firstMatch(emailRules, text)
	return v
}

// IsValidEmail reports whether s is a single well-formed email address
func IsValidEmail(s string) bool {
	return validEmailRe.MatchString(strings.TrimSpace(s))
}

// ExtractPhone returns the first labeled phone number, else the first bare one, as digits
func ExtractPhone(text string) string {
	v, _ := firstMatch(phoneRules, text)
	return v
}

// NormalizePhone strips non-digits and drops a redundant leading 1 country code
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// ExtractName tries the name label, then "Display Name <email>" in the body and sender,
// then a "from: Name" line.
func ExtractName(text, sender string) (string, string) {
	if first, last, ok := labeledName(text); ok {
		return first, last
	}

	rules := []rule{
		{name: "display_name", match: submatch(displayNameRe, cleanName)},
		{name: "sender_display_name", match: func(string) string { return senderDisplayName(sender) }},
		{name: "from_line", match: submatch(fromLineRe, cleanName)},
	}
	full, _ := firstMatch(rules, text)
	return splitName(full)
}

// labeledName handles "Name: Jane Doe" as well as separate first/last name labels
func labeledName(text string) (string, string, bool) {
	var first, last string
	for _, idx := range nameLabelRe.FindAllStringSubmatchIndex(text, -1) {
		v := text[idx[4]:idx[5]]
		if idx[5] < len(text) && text[idx[5]] == ':' {
			v = dropLastWord(v)
		}
		v = cleanName(strings.TrimSpace(v))
		if v == "" {
			continue
		}

		qualifier := ""
		if idx[2] >= 0 {
			qualifier = strings.ToLower(text[idx[2]:idx[3]])
		}
		switch qualifier {
		case "first":
			if first == "" {
				first = v
			}
		case "last":
			if last == "" {
				last = v
			}
		default:
			if first == "" && last == "" {
				f, l := splitName(v)
				return f, l, true
			}
		}
	}
	return first, last, first != "" || last != ""
}

func senderDisplayName(sender string) string {
	addr, err := mail.ParseAddress(sender)
	if err != nil || addr.Name == "" {
		return ""
	}
	if isVendorDomain(domainOf(addr.Address)) || isAutomatedSender(addr.Address) {
		return ""
	}
	return cleanName(addr.Name)
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// cleanName rejects values that don't look like a person's name
func cleanName(s string) string {
	s = trimPunct(strings.Join(strings.Fields(s), " "))
	if s == "" || len(s) > 80 || strings.Contains(s, "@") {
		return ""
	}
	for _, r := range s {
		if unicode.IsDigit(r) {
			return ""
		}
	}
	return s
}

// ExtractVehicle returns the labeled vehicle of interest, else a known model or brand
func ExtractVehicle(text string) string {
	v, _ := firstMatch(vehicleRules, text)
	return v
}

func cleanVehicle(s string) string {
	s = trimPunct(strings.Join(strings.Fields(s), " "))
	if len(s) > 255 {
		s = s[:255]
	}
	return s
}

// ClassifySource derives the lead source from the sender domain, then the subject
func ClassifySource(senderDomain, subject string) string {
	if name, ok := vendorFor(senderDomain); ok {
		return name
	}
	if websiteSubjectRe.MatchString(subject) {
		return SourceWebsite
	}
	return SourceEmail
}

func vendorFor(domain string) (string, bool) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return "", false
	}
	for d, name := range vendorSources {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return name, true
		}
	}
	return "", false
}

func isVendorDomain(domain string) bool {
	_, ok := vendorFor(domain)
	return ok
}

func isAutomatedSender(addr string) bool {
	local := strings.ToLower(addr)
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	for _, p := range []string{"noreply", "no-reply", "donotreply", "do-not-reply", "mailer-daemon", "postmaster"} {
		if strings.HasPrefix(local, p) {
			return true
		}
	}
	return false
}

func extractNotes(text string) string {
	m := notesRe.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	notes := strings.TrimSpace(m[1])
	if len(notes) > maxNotesLength {
		notes = notes[:maxNotesLength]
	}
	return notes
}

// extractMetadata captures up to 10 "key: value" lines not consumed by a field cascade
func extractMetadata(text string) map[string]string {
	out := map[string]string{}
	for _, m := range metadataRe.FindAllStringSubmatch(text, -1) {
		if len(out) >= maxMetadataLines {
			break
		}
		key := strings.TrimSpace(m[1])
		if knownLabels[strings.ToLower(key)] {
			continue
		}
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = m[2]
	}
	return out
}

// senderAddress extracts the bare address from a From header value
func senderAddress(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(emailRe.FindString(sender))
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return strings.ToLower(addr[i+1:])
	}
	return ""
}

// SenderDomain returns the lowercase domain of a From header value
func SenderDomain(sender string) string {
	return domainOf(senderAddress(sender))
}
