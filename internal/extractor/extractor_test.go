package extractor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-intake-go/internal/models"
)

func newTestExtractor() *Extractor {
	return &Extractor{now: func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }}
}

func TestExtractInlineLabels(t *testing.T) {
	e := newTestExtractor()
	c := e.Extract("New lead", "Name: Jane Doe, Email: jane@x.com, Phone: 555-1234, Interested in: Tacoma", "forms@dealer.example")

	assert.Equal(t, "Jane", c.FirstName)
	assert.Equal(t, "Doe", c.LastName)
	assert.Equal(t, "jane@x.com", c.Email)
	assert.Equal(t, "5551234", c.Phone)
	assert.Equal(t, "Tacoma", c.VehicleInterest)
	assert.Equal(t, SourceEmail, c.LeadSource)
	assert.Equal(t, "New lead", c.Metadata[models.MetaOriginalSubject])
	assert.Equal(t, "dealer.example", c.Metadata[models.MetaSenderDomain])
	assert.Equal(t, "2024-03-01T12:00:00Z", c.Metadata[models.MetaParsedAt])
}

func TestExtractEmailReturnsFirstToken(t *testing.T) {
	assert.Equal(t, "a@b.com", ExtractEmail("contact a@b.com or c@d.org"))
	assert.Equal(t, "", ExtractEmail("no address here"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("jane@example.com"))
	assert.True(t, IsValidEmail(" jane.doe+cars@mail.example.co "))
	assert.False(t, IsValidEmail("jane@example"))
	assert.False(t, IsValidEmail("not an email"))
	assert.False(t, IsValidEmail("a@b.com c@d.com"))
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labeled", "Phone: (555) 123-4567", "5551234567"},
		{"country code dropped", "Tel: +1 (555) 123-4567", "5551234567"},
		{"bare", "call me at 555.987.6543 tonight", "5559876543"},
		{"labeled wins over bare", "ref 555-000-1111\nMobile: 555 222 3333", "5552223333"},
		{"none", "no digits", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPhone(tt.text))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5551234567", NormalizePhone("1-555-123-4567"))
	assert.Equal(t, "25551234567", NormalizePhone("2-555-123-4567"))
	assert.Equal(t, "5551234", NormalizePhone("555-1234"))
}

func TestExtractNameCascadeOrder(t *testing.T) {
	first, last := ExtractName("Name: Jane Doe\nFrom: Bob Smith <bob@example.com>", "")
	assert.Equal(t, "Jane", first)
	assert.Equal(t, "Doe", last)

	first, last = ExtractName("Forwarded: Bob Smith <bob@example.com>", "Carol King <carol@example.com>")
	assert.Equal(t, "Bob", first)
	assert.Equal(t, "Smith", last)

	first, last = ExtractName("I'd like a quote", "Carol King <carol@example.com>")
	assert.Equal(t, "Carol", first)
	assert.Equal(t, "King", last)

	first, last = ExtractName("from: Dana\nthanks", "leads@autotrader.com")
	assert.Equal(t, "Dana", first)
	assert.Equal(t, "", last)
}

func TestExtractNameSeparateLabels(t *testing.T) {
	first, last := ExtractName("First Name: John\nLast Name: Van Buren", "")
	assert.Equal(t, "John", first)
	assert.Equal(t, "Van Buren", last)
}

func TestExtractNameRejectsNonNames(t *testing.T) {
	first, last := ExtractName("Name: 12345", "")
	assert.Empty(t, first)
	assert.Empty(t, last)
}

func TestExtractVehicle(t *testing.T) {
	assert.Equal(t, "2024 Honda Accord EX", ExtractVehicle("Vehicle: 2024 Honda Accord EX\nComments: none"))
	assert.Equal(t, "RAV4", ExtractVehicle("is the toyota rav4 still available?"))
	assert.Equal(t, "Grand Cherokee", ExtractVehicle("looking at a grand cherokee"))
	assert.Equal(t, "Subaru", ExtractVehicle("any used subaru wagons?"))
	assert.Equal(t, "", ExtractVehicle("just browsing"))
}

func TestVocabularyMatcherPrefersLongerTokens(t *testing.T) {
	match := vocabularyMatcher([]string{"Ram", "Model", "Ram 1500", "Model Y"})

	assert.Equal(t, "Ram 1500", match("any new ram 1500 trucks?"))
	assert.Equal(t, "Ram", match("a ram with a short bed"))
	assert.Equal(t, "Model Y", match("is the model y in stock"))
	assert.Equal(t, "", match("rampart"))
}

func TestClassifySource(t *testing.T) {
	assert.Equal(t, "AutoTrader", ClassifySource("autotrader.com", "Lead"))
	assert.Equal(t, "CarGurus", ClassifySource("leads.cargurus.com", "Lead"))
	assert.Equal(t, SourceWebsite, ClassifySource("dealer.example", "Website inquiry"))
	assert.Equal(t, SourceWebsite, ClassifySource("dealer.example", "New CONTACT form"))
	assert.Equal(t, SourceEmail, ClassifySource("gmail.com", "Hello"))
	assert.Equal(t, SourceEmail, ClassifySource("notautotrader.com", "Hello"))
}

func TestExtractSenderFallback(t *testing.T) {
	e := newTestExtractor()

	c := e.Extract("Quote", "Do you have any Civic in stock? 555 123 4567", "Alice Wong <Alice@Gmail.com>")
	assert.Equal(t, "alice@gmail.com", c.Email)
	assert.Equal(t, "Alice", c.FirstName)
	assert.Equal(t, "Wong", c.LastName)
	assert.Equal(t, "Civic", c.VehicleInterest)
	assert.Equal(t, "5551234567", c.Phone)

	c = e.Extract("Lead", "Customer is interested in a Tundra", "AutoTrader Leads <leads@autotrader.com>")
	assert.Empty(t, c.Email)
	assert.Empty(t, c.FirstName)
	assert.Equal(t, "AutoTrader", c.LeadSource)

	c = e.Extract("Hi", "Tacoma please", "noreply@dealer.example")
	assert.Empty(t, c.Email)
}

func TestExtractStripsMarkup(t *testing.T) {
	e := newTestExtractor()
	body := `<html><head><style>p{color:red}</style></head><body>
<p><b>Name:</b> Maria&nbsp;Lopez</p>
<p>Email: <a href="mailto:maria@example.com">maria@example.com</a></p>
<script>var x = "evil@bad.com";</script>
<p>Comments: Is the F-150 &amp; Ranger available?</p>
</body></html>`

	c := e.Extract("Website lead", body, "web@dealer.example")
	assert.Equal(t, "Maria", c.FirstName)
	assert.Equal(t, "Lopez", c.LastName)
	assert.Equal(t, "maria@example.com", c.Email)
	assert.Equal(t, "Is the F-150 & Ranger available?", c.Notes)
	assert.Equal(t, "F-150", c.VehicleInterest)
	assert.Equal(t, SourceWebsite, c.LeadSource)
}

func TestExtractMetadataCap(t *testing.T) {
	var lines []string
	for i := 1; i <= 12; i++ {
		lines = append(lines, fmt.Sprintf("Field%d: value %d", i, i))
	}
	lines = append(lines, "Email: jane@example.com")

	c := newTestExtractor().Extract("s", strings.Join(lines, "\n"), "")
	captured := 0
	for k := range c.Metadata {
		if strings.HasPrefix(k, "Field") {
			captured++
		}
	}
	assert.Equal(t, maxMetadataLines, captured)
	assert.Equal(t, "value 1", c.Metadata["Field1"])
	assert.NotContains(t, c.Metadata, "Email")
	assert.Contains(t, c.Metadata, models.MetaContentLength)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Hi there", StripTags("<p>Hi&nbsp;there</p><script>alert(1)</script>"))
	assert.Equal(t, "a\nb", StripTags("a<br/><br>\r\n<br />b"))
	assert.Equal(t, "Jane <jane@x.com>", StripTags("Jane &lt;jane@x.com&gt;"))
	assert.Equal(t, "Jane <jane@x.com>", StripTags("Jane <jane@x.com>"))
	assert.Equal(t, "", StripTags("<!-- hidden -->"))
}

func TestRules(t *testing.T) {
	require.Equal(t, []string{"labeled", "bare"}, Rules("phone"))
	assert.Equal(t, []string{"labeled", "model_vocabulary", "brand_vocabulary"}, Rules("vehicle"))
	assert.Equal(t, "label", Rules("name")[0])
	assert.Empty(t, Rules("unknown"))
}
