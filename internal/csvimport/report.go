package csvimport

import (
	"fmt"
	"strings"
)

// Report renders the outcome as a human-readable block: status, stats, then every error and warning in order
func Report(o ValidationOutcome) string {
	var b strings.Builder

	status := "INVALID"
	if o.Valid {
		status = "VALID"
	}

	b.WriteString("CSV Validation Report\n")
	b.WriteString("=====================\n")
	fmt.Fprintf(&b, "Status: %s\n\n", status)
	b.WriteString("Statistics:\n")
	fmt.Fprintf(&b, "  Total rows:       %d\n", o.Stats.TotalRows)
	fmt.Fprintf(&b, "  Valid rows:       %d\n", o.Stats.ValidRows)
	fmt.Fprintf(&b, "  Invalid rows:     %d\n", o.Stats.InvalidRows)
	fmt.Fprintf(&b, "  Duplicate emails: %d\n", o.Stats.DuplicateEmails)

	if len(o.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", len(o.Errors))
		for i, e := range o.Errors {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, e.Error())
		}
	}

	if len(o.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(o.Warnings))
		for i, w := range o.Warnings {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, w)
		}
	}

	return b.String()
}
