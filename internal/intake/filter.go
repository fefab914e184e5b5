package intake

import (
	"regexp"
	"strings"
)

var junkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:viagra|cialis|casino|lottery|jackpot|sweepstakes)\b`),
	regexp.MustCompile(`(?i)\b(?:you have won|claim your (?:prize|reward)|act now|limited time offer)\b`),
	regexp.MustCompile(`(?i)\b(?:bitcoin|crypto(?:currency)?) (?:investment|giveaway|opportunity)\b`),
	regexp.MustCompile(`(?i)\b(?:wire transfer|inheritance|beneficiary fund|nigerian prince)\b`),
	regexp.MustCompile(`(?i)\b(?:seo services|rank your website|backlinks)\b`),
	regexp.MustCompile(`(?i)\b(?:undeliverable|delivery status notification|mail delivery (?:failed|subsystem)|returned mail)\b`),
	regexp.MustCompile(`(?i)\b(?:mailer-daemon|postmaster)@`),
	regexp.MustCompile(`(?i)\b(?:out of office|automatic reply|auto-reply)\b`),
}

// isJunk reports whether subject or sender matches the spam and abuse pattern set
func isJunk(subject, sender string) (string, bool) {
	text := subject + " " + sender
	for _, re := range junkPatterns {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// allowedSender reports whether domain is allowed. An empty allow-list allows everything.
func allowedSender(domain string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	domain = strings.ToLower(domain)
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if domain == a || strings.HasSuffix(domain, "."+a) {
			return true
		}
	}
	return false
}
