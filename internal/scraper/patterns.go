// internal/scraper/patterns.go
package scraper

import (
	"regexp"
	"strings"
)

// Pattern is one matching rule in the field pattern table. Patterns that
// contain ".*" are treated as regular expressions; all others are literal.
type Pattern struct {
	raw     string
	re      *regexp.Regexp
	bounded *regexp.Regexp
}

func newPattern(raw string) Pattern {
	raw = strings.ToLower(strings.TrimSpace(raw))
	p := Pattern{raw: raw}
	if strings.Contains(raw, ".*") {
		if re, err := regexp.Compile(raw); err == nil {
			p.re = re
			p.bounded, _ = regexp.Compile(`\b(?:` + raw + `)\b`)
			return p
		}
	}
	p.bounded, _ = regexp.Compile(`\b` + regexp.QuoteMeta(raw) + `\b`)
	return p
}

// String returns the pattern source
func (p Pattern) String() string {
	return p.raw
}

// IsRegexp reports whether the pattern compiled as a regular expression
func (p Pattern) IsRegexp() bool {
	return p.re != nil
}

// Contains reports a plain occurrence of the pattern in s
func (p Pattern) Contains(s string) bool {
	if p.raw == "" {
		return false
	}
	if p.re != nil {
		return p.re.MatchString(s)
	}
	return strings.Contains(s, p.raw)
}

// Bounded reports an occurrence of the pattern delimited by word boundaries
func (p Pattern) Bounded(s string) bool {
	if p.raw == "" || p.bounded == nil {
		return false
	}
	return p.bounded.MatchString(s)
}

// Matches reports either a bounded or a plain occurrence
func (p Pattern) Matches(s string) bool {
	return p.Bounded(s) || p.Contains(s)
}

// FieldPatterns pairs a canonical field with its ordered patterns
type FieldPatterns struct {
	Field    Field
	Patterns []Pattern
}

// PatternTable is the immutable, ordered field pattern table shared by
// the classifier and the candidate scorer.
type PatternTable struct {
	entries []FieldPatterns
	index   map[Field]int
}

var defaultPatterns = []struct {
	field    Field
	patterns []string
}{
	{Title, []string{"title", "prefix", "salutation", "honorific", "mr", "mrs", "ms", "dr", "prof", "suffix"}},
	{FirstName, []string{"first name", "firstname", "given name", "forename", "first", "fname", "givenname",
		"name.*first", "first.*name", "given", "name_first"}},
	{LastName, []string{"last name", "lastname", "surname", "family name", "last", "lname", "familyname",
		"name.*last", "last.*name", "family", "name_last", "sur name"}},
	{Email, []string{"email", "e-mail", "mail", "emailaddress", "e mail", "your email", "primary email",
		"contact email", "email.*address", "address.*email"}},
	{ConfirmEmail, []string{"confirm email", "repeat email", "verify email", "email confirm", "reenter email",
		"confirm.*email", "email.*confirm", "email.*again", "retype.*email", "verify.*email"}},
	{JobTitle, []string{"job title", "position", "role", "job role", "job position", "occupation", "title",
		"jobtitle", "job_title", "job-title", "job function", "profession", "work title"}},
	{Organization, []string{"company", "organization", "organisation", "employer", "business", "firm",
		"workplace", "company name", "employer name", "business name", "organization name", "institution",
		"company type", "corporation", "agency", "department", "employer info"}},
	{Phone, []string{"phone", "telephone", "mobile", "cell", "contact number", "phonenumber", "tel",
		"phone.*number", "mobile.*number", "contact.*phone", "daytime phone", "evening phone",
		"cell.*number", "primary phone", "work phone", "home phone"}},
	{Street, []string{"street", "address", "address line", "street address", "road", "addressline1", "address1",
		"addr1", "address line 1", "street name", "house number", "building", "apartment",
		"street.*address", "address.*line.*1", "addr.*line1", "address.*street", "shipping address",
		"billing address", "mailing address", "delivery address", "residence", "location"}},
	{City, []string{"city", "town", "locality", "municipality", "urban area", "township", "city/town",
		"city name", "place", "village", "borough", "location.*city", "city.*location", "address.*city"}},
	{State, []string{"state", "province", "region", "county", "territory", "division", "district",
		"state/province", "administrative area", "location.*state", "state.*region", "region.*state", "area"}},
	{Zipcode, []string{"zip", "zipcode", "postal code", "post code", "zip code", "postalcode", "postcode",
		"postal", "pin code", "pin", "code postal", "zipcode.*postal", "postal.*zip", "zip.*code",
		"postal.*code", "area code"}},
	{Country, []string{"country", "nation", "land", "territory", "nationality", "national", "country name",
		"country/region", "region/country", "location.*country", "country.*location"}},
	{Privacy, []string{"privacy", "terms", "consent", "agree", "accept", "policy", "opt in", "gdpr", "marketing",
		"permission", "subscribe", "newsletter", "communications", "contact me", "contact you",
		"send me", "send you", "preference", "privacy.*policy", "terms.*conditions",
		"terms.*service", "cookie", "data policy", "personal data", "personal information",
		"data.*collect", "process.*data", "agreement", "updates", "notifications", "legal"}},
}

// DefaultPatterns returns the built-in pattern table
func DefaultPatterns() *PatternTable {
	return NewPatternTable(nil)
}

// NewPatternTable builds the built-in table and appends extra patterns to
// the fields they name. Extra patterns never change the field order.
func NewPatternTable(extra map[Field][]string) *PatternTable {
	t := &PatternTable{index: make(map[Field]int, len(defaultPatterns))}
	for _, def := range defaultPatterns {
		raws := append(append([]string(nil), def.patterns...), extra[def.field]...)
		entry := FieldPatterns{Field: def.field}
		for _, raw := range raws {
			if p := newPattern(raw); p.raw != "" {
				entry.Patterns = append(entry.Patterns, p)
			}
		}
		t.index[def.field] = len(t.entries)
		t.entries = append(t.entries, entry)
	}
	return t
}

// Entries returns the table in scan order
func (t *PatternTable) Entries() []FieldPatterns {
	return append([]FieldPatterns(nil), t.entries...)
}

// Patterns returns the patterns owned by a field, or nil
func (t *PatternTable) Patterns(f Field) []Pattern {
	i, ok := t.index[f]
	if !ok {
		return nil
	}
	return t.entries[i].Patterns
}

// Match returns the first field in scan order with a matching pattern
func (t *PatternTable) Match(hint string) (Field, bool) {
	for _, entry := range t.entries {
		for _, p := range entry.Patterns {
			if p.Matches(hint) {
				return entry.Field, true
			}
		}
	}
	return 0, false
}
