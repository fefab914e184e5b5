package csvimport

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCleanRows(t *testing.T) {
	data := "firstName,lastName,email,phone\n" +
		"Jane,Doe,jane@example.com,555-123-4567\n" +
		"John,Smith,john@example.com,(555) 987-6543\n"

	out := Validate([]byte(data), DefaultOptions())

	assert.True(t, out.Valid)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, Stats{TotalRows: 2, ValidRows: 2}, out.Stats)
	require.Len(t, out.Data, 2)
	assert.Equal(t, "Jane", out.Data[0][ColFirstName])
	assert.Equal(t, "john@example.com", out.Data[1][ColEmail])
}

func TestValidateStatsForManyRows(t *testing.T) {
	for _, n := range []int{1, 7, 50} {
		var b strings.Builder
		b.WriteString("firstName,lastName,email\n")
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "First%d,Last%d,user%d@example.com\n", i, i, i)
		}
		out := Validate([]byte(b.String()), DefaultOptions())
		assert.True(t, out.Valid)
		assert.Equal(t, Stats{TotalRows: n, ValidRows: n}, out.Stats, "n=%d", n)
	}
}

func TestValidateDuplicateEmails(t *testing.T) {
	data := "firstName,lastName,email\n" +
		"Jane,Doe,test@example.com\n" +
		"Janet,Doe,TEST@Example.com\n"

	out := Validate([]byte(data), DefaultOptions())

	assert.True(t, out.Valid)
	assert.Len(t, out.Data, 1)
	assert.Equal(t, "Jane", out.Data[0][ColFirstName])
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "row 3")
	assert.Equal(t, Stats{TotalRows: 2, ValidRows: 1, InvalidRows: 0, DuplicateEmails: 1}, out.Stats)
}

func TestValidateRejectsScripts(t *testing.T) {
	inputs := []string{
		"firstName,lastName,email\nJane,<script>alert(1)</script>,jane@example.com\n",
		"<SCRIPT src=x></SCRIPT>",
		"notes\n\"multi\nline < script >\"\n",
		"firstName,lastName,email\nJane,Doe,jane@example.com\n# <script>",
	}
	for _, in := range inputs {
		out := Validate([]byte(in), DefaultOptions())
		assert.False(t, out.Valid)
		require.NotEmpty(t, out.Errors)
		assert.Equal(t, KindSecurity, out.Errors[0].Kind)
		assert.Empty(t, out.Data)
	}
}

func TestValidateThreatPatterns(t *testing.T) {
	for _, payload := range []string{
		"javascript:alert(1)",
		"VBScript: msgbox",
		"data:text/html;base64,AAAA",
		"<img src=x onerror=alert(1)>",
		"invoice.exe",
	} {
		data := "firstName,lastName,email,notes\nJane,Doe,jane@example.com," + payload + "\n"
		out := Validate([]byte(data), DefaultOptions())
		require.Len(t, out.Errors, 1, payload)
		assert.Equal(t, KindSecurity, out.Errors[0].Kind, payload)
	}
}

func TestValidateSizeLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxFileSize = 10

	out := Validate([]byte("firstName,lastName,email\n"), opts)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, KindSize, out.Errors[0].Kind)
	assert.False(t, out.Valid)
}

func TestValidateRowLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxRows = 1

	data := "firstName,lastName,email\nA,B,a@example.com\nC,D,c@example.com\n"
	out := Validate([]byte(data), opts)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, KindSize, out.Errors[0].Kind)
	assert.Equal(t, 2, out.Stats.TotalRows)
}

func TestValidateParseError(t *testing.T) {
	data := "firstName,lastName,email\nJane,\"Doe,jane@example.com\n"
	out := Validate([]byte(data), DefaultOptions())

	require.Len(t, out.Errors, 1)
	assert.Equal(t, KindParse, out.Errors[0].Kind)
	assert.Contains(t, out.Errors[0].Message, "quote")
}

func TestValidateEmpty(t *testing.T) {
	for _, in := range []string{"", "firstName,lastName,email\n"} {
		out := Validate([]byte(in), DefaultOptions())
		require.Len(t, out.Errors, 1)
		assert.Equal(t, KindEmpty, out.Errors[0].Kind)
		assert.Equal(t, 0, out.Stats.TotalRows)
	}
}

func TestValidateHeaderAliases(t *testing.T) {
	data := "First Name,LAST_NAME,E-Mail,Phone Number,Vehicle\nJane,Doe,jane@example.com,5551234567,Tacoma\n"
	out := Validate([]byte(data), DefaultOptions())

	require.True(t, out.Valid, out.Errors)
	assert.Equal(t, "jane@example.com", out.Data[0][ColEmail])
	assert.Equal(t, "Tacoma", out.Data[0][ColVehicleInterest])
	assert.Equal(t, "5551234567", out.Data[0][ColPhone])
}

func TestValidateMissingRequiredColumn(t *testing.T) {
	out := Validate([]byte("firstName,email\nJane,jane@example.com\n"), DefaultOptions())
	require.Len(t, out.Errors, 1)
	assert.Equal(t, KindHeader, out.Errors[0].Kind)
	assert.Equal(t, ColLastName, out.Errors[0].Field)
	assert.Equal(t, 1, out.Stats.TotalRows)
}

func TestValidateAllowedColumns(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowedColumns = []string{ColFirstName, ColLastName, ColEmail}

	out := Validate([]byte("firstName,lastName,email,favoriteColor\nJane,Doe,jane@example.com,blue\n"), opts)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, KindHeader, out.Errors[0].Kind)
	assert.Equal(t, "favoriteColor", out.Errors[0].Field)
}

func TestValidateRowErrorsDoNotHaltBatch(t *testing.T) {
	data := "firstName,lastName,email\n" +
		"Jane,Doe,jane@example.com\n" +
		",Smith,not-an-email\n" +
		"Ann,Lee,ann@example.com\n"

	out := Validate([]byte(data), DefaultOptions())

	assert.False(t, out.Valid)
	assert.Len(t, out.Data, 2)
	assert.Equal(t, Stats{TotalRows: 3, ValidRows: 2, InvalidRows: 1}, out.Stats)
	require.Len(t, out.Errors, 2)
	for _, e := range out.Errors {
		assert.Equal(t, KindValidation, e.Kind)
		assert.Equal(t, 3, e.Row)
	}
}

func TestValidateVariableFieldCounts(t *testing.T) {
	data := "firstName,lastName,email,phone\nJane,Doe,jane@example.com\nJohn,Smith,john@example.com,5559876543,extra\n"
	out := Validate([]byte(data), DefaultOptions())

	assert.True(t, out.Valid)
	assert.Equal(t, "", out.Data[0][ColPhone])
	assert.Equal(t, "5559876543", out.Data[1][ColPhone])
}

func TestSanitizeField(t *testing.T) {
	assert.Equal(t, "Tom  Jerry", SanitizeField(`Tom & Jerry`))
	assert.Equal(t, "line one line two", SanitizeField("line one\nline two"))
	assert.Equal(t, "bold", SanitizeField(`<"bold'>`))
	assert.Len(t, SanitizeField(strings.Repeat("a", 1500)), maxFieldLength)
}

func TestValidateSanitizesRows(t *testing.T) {
	data := "firstName,lastName,email,notes\nJane,O'Brien,jane@example.com,\"call me\nafter 5\"\n"

	out := Validate([]byte(data), DefaultOptions())
	require.True(t, out.Valid)
	assert.Equal(t, "OBrien", out.Data[0][ColLastName])
	assert.Equal(t, "call me after 5", out.Data[0][ColNotes])

	opts := DefaultOptions()
	opts.Sanitize = false
	out = Validate([]byte(data), opts)
	require.True(t, out.Valid)
	assert.Equal(t, "O'Brien", out.Data[0][ColLastName])
}

func TestReport(t *testing.T) {
	data := "firstName,lastName,email\n" +
		"Jane,Doe,test@example.com\n" +
		"Jane,Doe,test@example.com\n" +
		"Bob,,bob@example.com\n"
	report := Report(Validate([]byte(data), DefaultOptions()))

	assert.Contains(t, report, "Status: INVALID")
	assert.Contains(t, report, "Total rows:       3")
	assert.Contains(t, report, "Duplicate emails: 1")
	assert.Contains(t, report, "Errors (1):\n  1. [validation] row 4 lastName: is required")
	assert.Contains(t, report, "Warnings (1):")
	assert.Less(t, strings.Index(report, "Errors"), strings.Index(report, "Warnings"))
}

func TestValidateOverLengthErrorsFollowHeaderOrder(t *testing.T) {
	long := strings.Repeat("x", maxFieldLength+1)
	data := "firstName,lastName,email,vehicleInterest,notes,budget\n" +
		fmt.Sprintf("Jane,%s,jane@example.com,%s,%s,%s\n", long, long, long, long)

	opts := DefaultOptions()
	opts.Sanitize = false

	for i := 0; i < 20; i++ {
		out := Validate([]byte(data), opts)
		require.False(t, out.Valid)
		fields := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			fields = append(fields, e.Field)
		}
		assert.Equal(t, []string{ColLastName, ColVehicleInterest, ColNotes, ColBudget}, fields)
	}
}
