// internal/scraper/types.go
package scraper

import (
	"net/url"

	"github.com/valpere/FormScrapexter/internal/dom"
)

// Field is one of the canonical registration form roles
type Field int

// Canonical fields in declaration order. The order is the tie-break
// policy of the generic pattern table and the column order of results.
const (
	Title Field = iota
	FirstName
	LastName
	Email
	ConfirmEmail
	JobTitle
	Organization
	Phone
	Street
	City
	State
	Zipcode
	Country
	Privacy
	Submit
)

var fieldNames = [...]string{
	"Title", "FirstName", "LastName", "Email", "ConfirmEmail", "JobTitle",
	"Organization", "Phone", "Street", "City", "State", "Zipcode",
	"Country", "Privacy", "Submit",
}

// String returns the canonical field name
func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "Unknown"
	}
	return fieldNames[f]
}

// Fields returns every canonical field in declaration order
func Fields() []Field {
	out := make([]Field, len(fieldNames))
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// ParseField maps a canonical field name back to its Field
func ParseField(name string) (Field, bool) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// PriorityFields are recovered by the second extraction pass when missing
var PriorityFields = []Field{FirstName, LastName, Email}

// UnknownHint is returned when no signal source yields any text
const UnknownHint = "Unknown Field"

// FieldMatch records where a canonical field lives on a page. The zero
// value means the field was not found.
type FieldMatch struct {
	Element  *dom.Element `json:"-"`
	XPath    string       `json:"xpath"`
	Type     string       `json:"type"`
	Required bool         `json:"required"`
	Found    bool         `json:"found"`
}

// AdditionalField is an interactive element outside the canonical taxonomy
type AdditionalField struct {
	Name     string `json:"field_name"`
	XPath    string `json:"xpath"`
	Type     string `json:"element_type"`
	Required bool   `json:"required"`
}

// PageResult is the extraction record for one URL
type PageResult struct {
	URL              string               `json:"url"`
	Domain           string               `json:"domain"`
	Fields           map[Field]FieldMatch `json:"-"`
	AdditionalFields []AdditionalField    `json:"additional_fields"`
	HasCaptcha       bool                 `json:"has_captcha"`
	Error            string               `json:"error,omitempty"`
}

// NewPageResult creates an empty result with all canonical fields present
func NewPageResult(rawURL string) *PageResult {
	r := &PageResult{
		URL:    rawURL,
		Domain: Domain(rawURL),
		Fields: make(map[Field]FieldMatch, len(fieldNames)),
	}
	for _, f := range Fields() {
		r.Fields[f] = FieldMatch{}
	}
	return r
}

// HasAdditionalFields reports whether any additional field was recorded
func (r *PageResult) HasAdditionalFields() bool {
	return len(r.AdditionalFields) > 0
}

// FoundCount returns the number of canonical fields that were found
func (r *PageResult) FoundCount() int {
	n := 0
	for _, m := range r.Fields {
		if m.Found {
			n++
		}
	}
	return n
}

// Domain returns the host part of a URL, or "" when it has none
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
