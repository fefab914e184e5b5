package extractor

import (
	"regexp"
	"strings"
)

// rule is one step of a field cascade. Rules are tried in slice order and the
// first one returning a non-empty value wins.
type rule struct {
	name  string
	match func(text string) string
}

// firstMatch runs the cascade and returns the value and the name of the rule that produced it
func firstMatch(rules []rule, text string) (string, string) {
	for _, r := range rules {
		if v := r.match(text); v != "" {
			return v, r.name
		}
	}
	return "", ""
}

// submatch returns a rule func yielding the trimmed first capture group of re
func submatch(re *regexp.Regexp, clean func(string) string) func(string) string {
	return func(text string) string {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return ""
		}
		v := strings.TrimSpace(m[1])
		if clean != nil {
			v = clean(v)
		}
		return v
	}
}

// labeled returns a rule func for "label: value" patterns whose single capture
// group excludes ':'. When the capture ran into the next label ("Jane Doe Email:"),
// the trailing label word is dropped.
func labeled(re *regexp.Regexp, clean func(string) string) func(string) string {
	return func(text string) string {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			if len(idx) < 4 || idx[2] < 0 {
				continue
			}
			v := text[idx[2]:idx[3]]
			if idx[3] < len(text) && text[idx[3]] == ':' {
				v = dropLastWord(v)
			}
			v = strings.TrimSpace(v)
			if clean != nil {
				v = clean(v)
			}
			if v != "" {
				return v
			}
		}
		return ""
	}
}

func dropLastWord(s string) string {
	s = strings.TrimRight(s, " \t")
	if i := strings.LastIndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return ""
}

var trailingPunct = " \t.,;:!?-"

func trimPunct(s string) string {
	return strings.Trim(s, trailingPunct)
}

// Rules returns the rule names of a field cascade in evaluation order
func Rules(field string) []string {
	var rules []rule
	switch field {
	case "email":
		rules = emailRules
	case "phone":
		rules = phoneRules
	case "vehicle":
		rules = vehicleRules
	case "name":
		return []string{"label", "display_name", "sender_display_name", "from_line"}
	}
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.name)
	}
	return names
}
