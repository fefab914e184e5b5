package intake

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"lead-intake-go/internal/config"
)

var noReplyLocals = []string{"noreply", "no-reply", "no_reply", "donotreply", "do-not-reply"}

// LaneGuard recognizes messages that belong to the webhook reply lane.
// A message is routed there when any To or Cc address is reserved.
type LaneGuard struct {
	campaignDomain string
	replyPrefixes  []string
	patterns       []*regexp.Regexp
}

// NewLaneGuard builds a guard from the lane configuration
func NewLaneGuard(cfg config.LaneConfig) (*LaneGuard, error) {
	g := &LaneGuard{campaignDomain: strings.ToLower(strings.TrimSpace(cfg.CampaignDomain))}
	for _, p := range cfg.ReplyPrefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			g.replyPrefixes = append(g.replyPrefixes, p)
		}
	}
	for _, expr := range cfg.ReservedPatterns {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("invalid reserved pattern %q: %w", expr, err)
		}
		g.patterns = append(g.patterns, re)
	}
	return g, nil
}

// Match returns the first reserved recipient and true, or "" and false.
// The result depends only on the recipients, so repeated calls agree.
func (g *LaneGuard) Match(recipients []string) (string, bool) {
	for _, r := range recipients {
		addr := bareAddress(r)
		if addr == "" {
			continue
		}
		if g.reserved(addr) {
			return addr, true
		}
	}
	return "", false
}

func (g *LaneGuard) reserved(addr string) bool {
	local, domain := addr, ""
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		local, domain = addr[:i], addr[i+1:]
	}

	for _, p := range g.replyPrefixes {
		if local == p || hasSeparatedPrefix(local, p) {
			return true
		}
	}
	for _, n := range noReplyLocals {
		if local == n || hasSeparatedPrefix(local, n) {
			return true
		}
	}
	if g.campaignDomain != "" && (domain == g.campaignDomain || strings.HasSuffix(domain, "."+g.campaignDomain)) {
		return true
	}
	for _, re := range g.patterns {
		if re.MatchString(addr) {
			return true
		}
	}
	return false
}

func hasSeparatedPrefix(local, prefix string) bool {
	if !strings.HasPrefix(local, prefix) || len(local) == len(prefix) {
		return false
	}
	return strings.ContainsRune("+-._", rune(local[len(prefix)]))
}

func bareAddress(s string) string {
	if a, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(a.Address)
	}
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), "<>"))
}
