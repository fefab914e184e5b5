// Package csvimport validates and sanitizes bulk lead CSV uploads.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"lead-intake-go/internal/extractor"
	"lead-intake-go/internal/leads"
)

// Canonical lead columns
const (
	ColFirstName       = "firstName"
	ColLastName        = "lastName"
	ColEmail           = "email"
	ColPhone           = "phone"
	ColVehicleInterest = "vehicleInterest"
	ColBudget          = "budget"
	ColTimeframe       = "timeframe"
	ColSource          = "source"
	ColNotes           = "notes"
)

const maxFieldLength = 1000

// IssueKind classifies a validation issue
type IssueKind string

// Issue kinds. Every kind except KindValidation halts the batch.
const (
	KindSize       IssueKind = "size"
	KindSecurity   IssueKind = "security"
	KindParse      IssueKind = "parse"
	KindEmpty      IssueKind = "empty"
	KindHeader     IssueKind = "header"
	KindValidation IssueKind = "validation"
)

// Issue is a single validation error. Row is the 1-based line number, 0 for batch-level issues.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Row     int       `json:"row,omitempty"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

func (i Issue) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", i.Kind)
	if i.Row > 0 {
		fmt.Fprintf(&b, " row %d", i.Row)
	}
	if i.Field != "" {
		fmt.Fprintf(&b, " %s", i.Field)
	}
	fmt.Fprintf(&b, ": %s", i.Message)
	return b.String()
}

// Row is an accepted record keyed by canonical column name. Unknown columns keep their header text.
type Row map[string]string

// Stats summarizes a batch. It is populated for every outcome.
type Stats struct {
	TotalRows       int `json:"total_rows"`
	ValidRows       int `json:"valid_rows"`
	InvalidRows     int `json:"invalid_rows"`
	DuplicateEmails int `json:"duplicate_emails"`
}

// ValidationOutcome is the result of Validate
type ValidationOutcome struct {
	Valid    bool     `json:"valid"`
	Data     []Row    `json:"data"`
	Errors   []Issue  `json:"errors"`
	Warnings []string `json:"warnings"`
	Stats    Stats    `json:"stats"`
}

// Options configures Validate
type Options struct {
	MaxFileSize     int64
	MaxRows         int
	RequiredColumns []string
	AllowedColumns  []string
	Sanitize        bool
}

// DefaultOptions returns the standard upload limits
func DefaultOptions() Options {
	return Options{
		MaxFileSize:     10 * 1024 * 1024,
		MaxRows:         10000,
		RequiredColumns: []string{ColFirstName, ColLastName, ColEmail},
		Sanitize:        true,
	}
}

var threatPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"script tag", regexp.MustCompile(`(?i)<\s*/?\s*script\b`)},
	{"script URI", regexp.MustCompile(`(?i)\b(?:javascript|vbscript)\s*:`)},
	{"data URI", regexp.MustCompile(`(?i)\bdata\s*:\s*text/html`)},
	{"event handler", regexp.MustCompile(`(?i)\bon(?:load|error|click|dblclick|mouse[a-z]+|key[a-z]+|focus|blur|change|submit|abort|input)\s*=`)},
	{"executable file", regexp.MustCompile(`(?i)\.(?:exe|bat|cmd|scr|msi|vbs|ps1|jar|dll|pif)\b`)},
}

// columnAliases maps a folded header (lowercase, no spaces, dashes or underscores) to its canonical column
var columnAliases = map[string]string{
	"firstname":         ColFirstName,
	"first":             ColFirstName,
	"fname":             ColFirstName,
	"givenname":         ColFirstName,
	"lastname":          ColLastName,
	"last":              ColLastName,
	"lname":             ColLastName,
	"surname":           ColLastName,
	"familyname":        ColLastName,
	"email":             ColEmail,
	"emailaddress":      ColEmail,
	"mail":              ColEmail,
	"phone":             ColPhone,
	"phonenumber":       ColPhone,
	"telephone":         ColPhone,
	"tel":               ColPhone,
	"mobile":            ColPhone,
	"cell":              ColPhone,
	"vehicleinterest":   ColVehicleInterest,
	"vehicle":           ColVehicleInterest,
	"model":             ColVehicleInterest,
	"interestedin":      ColVehicleInterest,
	"budget":            ColBudget,
	"pricerange":        ColBudget,
	"timeframe":         ColTimeframe,
	"purchasetimeframe": ColTimeframe,
	"source":            ColSource,
	"leadsource":        ColSource,
	"notes":             ColNotes,
	"note":              ColNotes,
	"comments":          ColNotes,
	"comment":           ColNotes,
}

var sanitizeReplacer = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "", "\r\n", " ", "\n", " ", "\r", " ")

// Validate runs the batch through size, threat, parse, row count, emptiness and header
// checks, then validates each row. Only row-level failures let the batch continue.
func Validate(data []byte, opts Options) ValidationOutcome {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultOptions().MaxFileSize
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultOptions().MaxRows
	}
	if opts.RequiredColumns == nil {
		opts.RequiredColumns = DefaultOptions().RequiredColumns
	}

	out := ValidationOutcome{Data: []Row{}, Errors: []Issue{}, Warnings: []string{}}
	halt := func(kind IssueKind, format string, args ...interface{}) ValidationOutcome {
		out.Errors = append(out.Errors, Issue{Kind: kind, Message: fmt.Sprintf(format, args...)})
		return out
	}

	if int64(len(data)) > opts.MaxFileSize {
		return halt(KindSize, "file size %d bytes exceeds maximum of %d bytes", len(data), opts.MaxFileSize)
	}

	if name, ok := scanThreats(data); ok {
		return halt(KindSecurity, "potentially malicious content detected (%s)", name)
	}

	records, err := parse(data)
	if err != nil {
		return halt(KindParse, "%s", err.Error())
	}

	if len(records) > 0 {
		out.Stats.TotalRows = len(records) - 1
	}
	if out.Stats.TotalRows > opts.MaxRows {
		return halt(KindSize, "row count %d exceeds maximum of %d rows", out.Stats.TotalRows, opts.MaxRows)
	}
	if out.Stats.TotalRows == 0 {
		return halt(KindEmpty, "file contains no data rows")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = CanonicalColumn(h)
	}
	if issues := checkHeader(header, opts); len(issues) > 0 {
		out.Errors = append(out.Errors, issues...)
		return out
	}

	seen := map[string]int{}
	for i, record := range records[1:] {
		line := i + 2
		row := make(Row, len(header))
		for j, col := range header {
			if col == "" {
				continue
			}
			v := ""
			if j < len(record) {
				v = record[j]
			}
			if opts.Sanitize {
				v = SanitizeField(v)
			}
			row[col] = v
		}

		if issues := validateRow(header, row, line); len(issues) > 0 {
			out.Errors = append(out.Errors, issues...)
			out.Stats.InvalidRows++
			continue
		}

		key := leads.NormalizeEmail(row[ColEmail])
		if first, dup := seen[key]; dup {
			out.Stats.DuplicateEmails++
			out.Warnings = append(out.Warnings, fmt.Sprintf("row %d: duplicate email %s (first seen on row %d), row skipped", line, row[ColEmail], first))
			continue
		}
		seen[key] = line

		out.Data = append(out.Data, row)
	}

	out.Stats.ValidRows = len(out.Data)
	out.Valid = out.Stats.ValidRows > 0 && len(out.Errors) == 0
	return out
}

func scanThreats(data []byte) (string, bool) {
	for _, p := range threatPatterns {
		if p.re.Match(data) {
			return p.name, true
		}
	}
	return "", false
}

func parse(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8")
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
	}
	return records, nil
}

// CanonicalColumn resolves a header through the alias table. Unknown headers are returned trimmed.
func CanonicalColumn(header string) string {
	h := strings.TrimSpace(header)
	if c, ok := columnAliases[foldHeader(h)]; ok {
		return c
	}
	return h
}

func foldHeader(h string) string {
	h = strings.ToLower(h)
	return strings.NewReplacer(" ", "", "-", "", "_", "", ".", "").Replace(h)
}

func checkHeader(header []string, opts Options) []Issue {
	var issues []Issue
	present := map[string]bool{}
	for _, h := range header {
		present[h] = true
	}
	for _, req := range opts.RequiredColumns {
		if !present[CanonicalColumn(req)] {
			issues = append(issues, Issue{Kind: KindHeader, Field: req, Message: "required column is missing"})
		}
	}

	if len(opts.AllowedColumns) > 0 {
		allowed := map[string]bool{}
		for _, a := range opts.AllowedColumns {
			allowed[CanonicalColumn(a)] = true
		}
		for _, h := range header {
			if h != "" && !allowed[h] {
				issues = append(issues, Issue{Kind: KindHeader, Field: h, Message: "column is not allowed"})
			}
		}
	}
	return issues
}

// SanitizeField strips markup characters, flattens newlines and caps the length
func SanitizeField(v string) string {
	v = strings.TrimSpace(sanitizeReplacer.Replace(v))
	if utf8.RuneCountInString(v) > maxFieldLength {
		v = string([]rune(v)[:maxFieldLength])
	}
	return v
}

func validateRow(header []string, row Row, line int) []Issue {
	var issues []Issue
	fail := func(field, msg string) {
		issues = append(issues, Issue{Kind: KindValidation, Row: line, Field: field, Message: msg})
	}

	if row[ColFirstName] == "" {
		fail(ColFirstName, "is required")
	}
	if row[ColLastName] == "" {
		fail(ColLastName, "is required")
	}
	switch email := row[ColEmail]; {
	case email == "":
		fail(ColEmail, "is required")
	case !extractor.IsValidEmail(email):
		fail(ColEmail, fmt.Sprintf("invalid email format %q", email))
	}
	if phone := row[ColPhone]; phone != "" {
		if n := len(extractor.NormalizePhone(phone)); n < 7 || n > 15 {
			fail(ColPhone, fmt.Sprintf("invalid phone number %q", phone))
		}
	}
	// Header order keeps the report stable.
	checked := make(map[string]bool, len(header))
	for _, col := range header {
		if col == "" || checked[col] {
			continue
		}
		checked[col] = true
		if utf8.RuneCountInString(row[col]) > maxFieldLength {
			fail(col, fmt.Sprintf("exceeds %d characters", maxFieldLength))
		}
	}
	return issues
}
