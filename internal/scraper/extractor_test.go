// internal/scraper/extractor_test.go
package scraper

import (
	"testing"

	"github.com/valpere/FormScrapexter/internal/dom"
)

const registrationForm = `<html><body>
<form id="search"><input name="q" type="text"><button type="submit">Search</button></form>
<form id="register" action="/signup">
  <div class="field"><label for="title">Title</label><select id="title" name="title"><option>Mr</option></select></div>
  <div class="field"><label for="fname">First name</label><input id="fname" name="first_name" type="text" required></div>
  <div class="field"><label for="lname">Last name</label><input id="lname" name="last_name" type="text" required></div>
  <div class="field"><label for="email">Email</label><input id="email" name="email" type="email" required></div>
  <div class="field"><label for="email2">Confirm email</label><input id="email2" name="email_confirm" type="email"></div>
  <div class="field"><label for="company">Company</label><input id="company" name="company" type="text"></div>
  <div class="field"><label for="phone">Phone</label><input id="phone" name="phone" type="tel"></div>
  <div class="billing-address">
    <h3>Where do you live</h3>
    <div class="field"><label for="street">Street</label><input id="street" name="street" type="text"></div>
    <div class="field"><label for="city">Town or city</label><input id="city" name="city" type="text"></div>
  </div>
  <div class="field"><label for="nick">Nickname</label><input id="nick" name="nickname" type="text" required></div>
  <div class="field"><label for="promo">Promo</label><input id="promo" name="promo" type="text"></div>
  <div class="field"><input id="terms" name="terms" type="checkbox"><label for="terms">I agree to the Privacy Policy</label></div>
  <button type="submit">Register</button>
</form>
</body></html>`

func extract(t *testing.T, page dom.Page) *PageResult {
	t.Helper()
	result := NewPageResult("https://example.com/signup")
	NewExtractor(DefaultPatterns(), nil).Extract(page, result)
	return result
}

func TestExtractRegistrationForm(t *testing.T) {
	result := extract(t, mustPage(t, registrationForm))
	if result.Error != "" {
		t.Fatalf("Unexpected error: %s", result.Error)
	}

	want := map[Field]string{
		Title:        "//*[@id='title']",
		FirstName:    "//*[@id='fname']",
		LastName:     "//*[@id='lname']",
		Email:        "//*[@id='email']",
		ConfirmEmail: "//*[@id='email2']",
		Organization: "//*[@id='company']",
		Phone:        "//*[@id='phone']",
		Street:       "//*[@id='street']",
		City:         "//*[@id='city']",
		Privacy:      "//*[@id='terms']",
		Submit:       "/html[1]/body[1]/form[2]/button[1]",
	}
	for _, f := range Fields() {
		m := result.Fields[f]
		xpath, expected := want[f]
		if m.Found != expected {
			t.Errorf("%s: expected found=%v, got %v", f, expected, m.Found)
			continue
		}
		if expected && m.XPath != xpath {
			t.Errorf("%s: expected xpath %s, got %s", f, xpath, m.XPath)
		}
	}

	if !result.Fields[FirstName].Required || result.Fields[Organization].Required {
		t.Error("Expected required flags to follow the markup")
	}
	if !result.Fields[Submit].Required || result.Fields[Submit].Type != "submit" {
		t.Errorf("Unexpected submit match: %+v", result.Fields[Submit])
	}
	if result.Fields[Phone].Type != "tel" {
		t.Errorf("Expected Phone type tel, got %s", result.Fields[Phone].Type)
	}

	if len(result.AdditionalFields) != 2 {
		t.Fatalf("Expected 2 additional fields, got %+v", result.AdditionalFields)
	}
	nick, promo := result.AdditionalFields[0], result.AdditionalFields[1]
	if nick.XPath != "//*[@id='nick']" || !nick.Required || nick.Name != "nickname nick" {
		t.Errorf("Unexpected nickname entry: %+v", nick)
	}
	if promo.XPath != "//*[@id='promo']" || promo.Required {
		t.Errorf("Unexpected promo entry: %+v", promo)
	}
}

func TestExtractNoForm(t *testing.T) {
	result := extract(t, mustPage(t, `<html><body><p>Welcome</p></body></html>`))
	if result.Error != ErrMsgNoForm {
		t.Errorf("Expected %q, got %q", ErrMsgNoForm, result.Error)
	}
	if len(result.Fields) != len(Fields()) {
		t.Fatalf("Expected all %d fields present, got %d", len(Fields()), len(result.Fields))
	}
	if result.FoundCount() != 0 {
		t.Errorf("Expected no field found, got %d", result.FoundCount())
	}
}

func TestExtractNotEnoughElements(t *testing.T) {
	result := extract(t, mustPage(t, `<html><body><form><input name="email" type="email"></form></body></html>`))
	if result.Error != ErrMsgNotEnoughFields {
		t.Errorf("Expected %q, got %q", ErrMsgNotEnoughFields, result.Error)
	}
	if result.Fields[Email].Found {
		t.Error("Expected no classification after a page-level failure")
	}
}

func TestExtractDuplicateClassification(t *testing.T) {
	result := extract(t, mustPage(t, `<html><body><form>
		<input id="e1" name="email" type="email">
		<input id="e2" name="work_email" type="email">
		<button type="submit">Send</button>
	</form></body></html>`))

	if result.Fields[Email].XPath != "//*[@id='e1']" {
		t.Errorf("Expected the first email field to win, got %s", result.Fields[Email].XPath)
	}
	if len(result.AdditionalFields) != 1 {
		t.Fatalf("Expected the second email as additional field, got %+v", result.AdditionalFields)
	}
	if a := result.AdditionalFields[0]; a.XPath != "//*[@id='e2']" || !a.Required {
		t.Errorf("Expected a required additional entry for e2, got %+v", a)
	}
}

func TestExtractPromotesConfirmEmail(t *testing.T) {
	result := extract(t, mustPage(t, `<html><body><form>
		<input id="fn" name="first_name">
		<input id="ce" name="confirm_email" type="email">
		<button type="submit">Submit</button>
	</form></body></html>`))

	if !result.Fields[Email].Found || result.Fields[Email].XPath != "//*[@id='ce']" {
		t.Errorf("Expected ConfirmEmail to be promoted to Email, got %+v", result.Fields[Email])
	}
	if result.Fields[ConfirmEmail].Found {
		t.Error("Expected ConfirmEmail to be cleared after promotion")
	}
}

func TestExtractPositionalNames(t *testing.T) {
	result := extract(t, mustPage(t, `<html><body><form>
		<input id="n1" name="your_name" type="text">
		<input id="n2" name="partner_name" type="text">
		<input id="em" name="email" type="email">
		<button type="submit">Send</button>
	</form></body></html>`))

	if result.Fields[FirstName].XPath != "//*[@id='n1']" {
		t.Errorf("Expected n1 as FirstName, got %+v", result.Fields[FirstName])
	}
	if result.Fields[LastName].XPath != "//*[@id='n2']" {
		t.Errorf("Expected n2 as LastName, got %+v", result.Fields[LastName])
	}
	if len(result.AdditionalFields) != 0 {
		t.Errorf("Expected recovered fields to leave the additional list, got %+v", result.AdditionalFields)
	}
}

func TestExtractSubmitDiscovery(t *testing.T) {
	result := extract(t, mustPage(t, `<html><body>
		<form><input name="email" type="email"><input name="company"><input name="city"></form>
		<div><a class="btn-primary" href="#">Go</a></div>
	</body></html>`))

	if !result.Fields[Submit].Found {
		t.Fatal("Expected page-wide submit discovery to find the primary button")
	}
	if result.Fields[Submit].XPath != "/html[1]/body[1]/div[1]/a[1]" {
		t.Errorf("Unexpected submit xpath %s", result.Fields[Submit].XPath)
	}
}

func TestFindSubmitButtonsTiers(t *testing.T) {
	page := mustPage(t, `<html><body>
		<button id="b1">Cancel</button>
		<button id="b2">Back</button>
		<button id="b3">Sign up today</button>
	</body></html>`)
	got := FindSubmitButtons(page)
	if len(got) != 1 || got[0] != findOne(t, page, "#b3") {
		t.Errorf("Expected the submit-labelled button alone, got %d buttons", len(got))
	}

	page = mustPage(t, `<html><body><button id="b1">Cancel</button><button id="b2">Back</button></body></html>`)
	if got := FindSubmitButtons(page); len(got) != 2 {
		t.Errorf("Expected every visible button of the tier, got %d", len(got))
	}
}

func TestFindPrivacyCheckboxByLabel(t *testing.T) {
	page := mustPage(t, `<html><body>
		<div><input type="checkbox" id="c1" name="opt1"><label for="c1">Send me offers</label></div>
		<div><input type="checkbox" id="c2" name="opt2"></div>
		<label for="c2">I have read the terms</label>
	</body></html>`)
	els, _ := page.Find("input", nil)
	if got := FindPrivacyCheckbox(page, els); got != els[1] {
		t.Error("Expected the checkbox whose label mentions terms")
	}
}

func TestExtractSkipsFailingElements(t *testing.T) {
	doc := mustPage(t, registrationForm)
	page := &faultPage{Page: doc, failXPathID: "company", failAttrs: map[string]bool{"placeholder": true}}
	result := extract(t, page)

	if result.Fields[Organization].Found {
		t.Error("Expected the element with a failing xpath to be skipped")
	}
	if !result.Fields[Email].Found || !result.Fields[Street].Found {
		t.Error("Expected the remaining elements to be classified")
	}
}

func TestExtractContainsElementPanics(t *testing.T) {
	page := &panickyPage{Page: mustPage(t, registrationForm), panicID: "promo", panicAttr: "placeholder"}
	result := extract(t, page)

	if result.Error != "" {
		t.Fatalf("Expected no page error, got %q", result.Error)
	}
	for _, f := range []Field{Email, Privacy, Submit} {
		if !result.Fields[f].Found {
			t.Errorf("Expected %s to be found after the failing element", f)
		}
	}
	for _, a := range result.AdditionalFields {
		if a.XPath == "//*[@id='promo']" {
			t.Error("Expected the panicking element to be skipped")
		}
	}
	if len(result.AdditionalFields) != 1 {
		t.Errorf("Expected 1 additional field, got %+v", result.AdditionalFields)
	}
}

func TestExtractContainsScoringPanics(t *testing.T) {
	html := `<html><body><form>
<input id="a" name="a" type="text"><input id="b" name="b" type="text">
<input id="ln" name="last_name" type="text"><input id="c" type="checkbox" name="agree_terms">
</form></body></html>`
	page := &panickyPage{Page: mustPage(t, html), panicID: "a", panicAttr: "aria-label"}
	result := extract(t, page)

	if result.Error != "" {
		t.Fatalf("Expected no page error, got %q", result.Error)
	}
	if !result.Fields[LastName].Found || !result.Fields[Privacy].Found {
		t.Errorf("Expected LastName and Privacy to survive a failing element, got %+v", result.Fields)
	}
}

func TestExtractNoDuplicateAssignments(t *testing.T) {
	pages := []string{
		registrationForm,
		`<html><body><form><input name="email" type="email"><input name="email2" type="email"><input name="e3" type="email"></form></body></html>`,
		`<html><body><form><input name="your_name"><input name="nick_name"><input type="checkbox" name="agree"></form></body></html>`,
	}
	for i, html := range pages {
		result := extract(t, mustPage(t, html))
		owners := make(map[*dom.Element]Field)
		for f, m := range result.Fields {
			if !m.Found {
				continue
			}
			if prev, ok := owners[m.Element]; ok {
				t.Errorf("Page %d: element assigned to both %s and %s", i, prev, f)
			}
			owners[m.Element] = f
		}
	}
}

func TestFindPrivacyCheckboxSkipsPanickingElement(t *testing.T) {
	doc := mustPage(t, `<form><input id="x" type="checkbox" name="privacy"><input id="y" type="checkbox" name="gdpr_consent"></form>`)
	page := &panickyPage{Page: doc, panicID: "x", panicAttr: "name"}
	els, _ := page.Find("input", nil)
	if got := FindPrivacyCheckbox(page, els); got != els[1] {
		t.Error("Expected the second checkbox after the first one fails")
	}
}
