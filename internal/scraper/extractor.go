// internal/scraper/extractor.go
package scraper

import (
	"strings"

	"github.com/valpere/FormScrapexter/internal/dom"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// Page-level extraction errors
const (
	ErrMsgNoForm          = "No form or input fields found"
	ErrMsgNotEnoughFields = "Not enough form elements found"
)

const minUsableElements = 2

// Extractor runs the two-pass field extraction for one page at a time
type Extractor struct {
	hints      *HintExtractor
	classifier *Classifier
	locator    *FormLocator
	scorer     *CandidateScorer
	logger     utils.Logger
}

// NewExtractor wires the extraction components around one pattern table
func NewExtractor(patterns *PatternTable, logger utils.Logger) *Extractor {
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Extractor{
		hints:      NewHintExtractor(),
		classifier: NewClassifier(patterns),
		locator:    NewFormLocator(),
		scorer:     NewCandidateScorer(patterns),
		logger:     logger,
	}
}

type pendingAdditional struct {
	el    *dom.Element
	field AdditionalField
}

// extraction holds the mutable state of one page
type extraction struct {
	page    dom.Page
	result  *PageResult
	claimed map[*dom.Element]bool

	additional []pendingAdditional
	privacy    []*dom.Element
	confirm    []*dom.Element
}

// Extract classifies the page's form elements into result. Page-level
// failures are recorded in result.Error; element-level failures skip the
// element.
func (e *Extractor) Extract(page dom.Page, result *PageResult) {
	container, elements := e.locator.Locate(page)
	if container == nil {
		result.Error = ErrMsgNoForm
		return
	}
	if len(elements) < minUsableElements {
		result.Error = ErrMsgNotEnoughFields
		return
	}

	x := &extraction{page: page, result: result, claimed: make(map[*dom.Element]bool)}

	for _, el := range elements {
		e.guard(x, "element", func() { e.firstPass(x, el) })
	}
	e.fallbacks(x)
	e.secondPass(x, elements)

	for _, a := range x.additional {
		if !x.claimed[a.el] {
			result.AdditionalFields = append(result.AdditionalFields, a.field)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"url":        result.URL,
		"elements":   len(elements),
		"found":      result.FoundCount(),
		"additional": len(result.AdditionalFields),
	}).Debug("form fields extracted")
}

// guard runs one extraction step. A panic from the page skips the step
// and leaves the rest of the page to be processed.
func (e *Extractor) guard(x *extraction, step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debugf("skipping %s on %s: %v", step, x.result.URL, r)
		}
	}()
	fn()
}

func (x *extraction) found(f Field) bool {
	return x.result.Fields[f].Found
}

// claim records el as the match for field. It fails when el already holds
// a field or its xpath cannot be computed.
func (x *extraction) claim(f Field, el *dom.Element, elementType string, required bool) bool {
	if x.claimed[el] {
		return false
	}
	xpath, err := x.page.XPath(el)
	if err != nil {
		return false
	}
	x.result.Fields[f] = FieldMatch{
		Element:  el,
		XPath:    xpath,
		Type:     elementType,
		Required: required,
		Found:    true,
	}
	x.claimed[el] = true
	return true
}

func (x *extraction) addAdditional(el *dom.Element, hint, elementType string, required bool) {
	xpath, err := x.page.XPath(el)
	if err != nil {
		return
	}
	x.additional = append(x.additional, pendingAdditional{el: el, field: AdditionalField{
		Name:     hint,
		XPath:    xpath,
		Type:     elementType,
		Required: required,
	}})
}

// firstPass classifies a single element
func (e *Extractor) firstPass(x *extraction, el *dom.Element) {
	if !visible(x.page, el) {
		return
	}
	elementType, err := ElementType(x.page, el)
	if err != nil {
		e.logger.Debugf("skipping element: %v", err)
		return
	}

	switch elementType {
	case "hidden":
		return
	case "submit", "button", "image":
		if !x.found(Submit) && isSubmitLabelled(x.page, el) {
			x.claim(Submit, el, elementType, true)
		}
		return
	}

	hint := e.hints.Extract(x.page, el)
	field, classified := e.classifier.Classify(hint, elementType)
	required := IsRequired(x.page, el)

	lowered := strings.ToLower(hint)
	if isChoice(elementType) && containsAny(lowered, privacyTerms) {
		x.privacy = append(x.privacy, el)
	}
	if (classified && field == ConfirmEmail) || (elementType == "email" && containsAny(lowered, confirmTerms)) {
		x.confirm = append(x.confirm, el)
	}

	switch {
	case classified && !x.found(field):
		x.claim(field, el, elementType, required)
	case classified || required:
		x.addAdditional(el, hint, elementType, true)
	default:
		x.addAdditional(el, hint, elementType, false)
	}
}

// fallbacks fill Privacy, ConfirmEmail and Submit after the first pass
func (e *Extractor) fallbacks(x *extraction) {
	if !x.found(Privacy) {
		e.guard(x, "privacy fallback", func() { claimFirst(x, Privacy, x.privacy, false) })
	}
	if !x.found(ConfirmEmail) {
		e.guard(x, "confirm email fallback", func() { claimFirst(x, ConfirmEmail, x.confirm, false) })
	}
	if !x.found(Submit) {
		e.guard(x, "submit discovery", func() { claimFirst(x, Submit, FindSubmitButtons(x.page), true) })
	}
}

func claimFirst(x *extraction, f Field, candidates []*dom.Element, required bool) {
	for _, el := range candidates {
		elementType, err := ElementType(x.page, el)
		if err != nil {
			continue
		}
		if x.claim(f, el, elementType, required) {
			return
		}
	}
}

func claimDetected(x *extraction, f Field, el *dom.Element) {
	if elementType, err := ElementType(x.page, el); err == nil {
		x.claim(f, el, elementType, IsRequired(x.page, el))
	}
}

// secondPass recovers missing priority fields and Privacy. The candidate
// pool is fixed when the pass starts so that positional name inference
// sees both name fields.
func (e *Extractor) secondPass(x *extraction, elements []*dom.Element) {
	var pool []*dom.Element
	for _, el := range elements {
		if !x.claimed[el] {
			pool = append(pool, el)
		}
	}

	for _, f := range PriorityFields {
		if x.found(f) {
			continue
		}
		e.guard(x, "recovery of "+f.String(), func() {
			if el := e.scorer.Best(x.page, pool, f); el != nil {
				claimDetected(x, f, el)
			}
		})
	}

	if !x.found(Privacy) {
		e.guard(x, "privacy search", func() {
			if el := FindPrivacyCheckbox(x.page, pool); el != nil {
				claimDetected(x, Privacy, el)
			}
		})
	}

	if !x.found(Email) && x.found(ConfirmEmail) {
		x.result.Fields[Email] = x.result.Fields[ConfirmEmail]
		x.result.Fields[ConfirmEmail] = FieldMatch{}
	}
}
