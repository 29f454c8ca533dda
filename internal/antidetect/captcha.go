// internal/antidetect/captcha.go
package antidetect

import (
	"strings"

	"github.com/valpere/FormScrapexter/internal/dom"
	"github.com/valpere/FormScrapexter/internal/utils"
)

// CaptchaType represents the type of CAPTCHA
type CaptchaType int

const (
	NoCaptcha CaptchaType = iota
	RecaptchaV2
	RecaptchaV3
	HCaptcha
	FunCaptcha
	Turnstile
	ImageCaptcha // Generic image-based CAPTCHA type
	TextCaptcha  // Challenge recognised only by its wording
)

var captchaTypeNames = map[CaptchaType]string{
	NoCaptcha:    "none",
	RecaptchaV2:  "recaptcha_v2",
	RecaptchaV3:  "recaptcha_v3",
	HCaptcha:     "hcaptcha",
	FunCaptcha:   "funcaptcha",
	Turnstile:    "turnstile",
	ImageCaptcha: "image",
	TextCaptcha:  "text",
}

// String returns the metrics label of the CAPTCHA type
func (t CaptchaType) String() string {
	if name, ok := captchaTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Signature selectors, checked in order
var (
	widgetSelectors = []string{
		"iframe[src*='recaptcha']",
		"iframe[src*='hcaptcha']",
		"div.g-recaptcha",
		"div[data-sitekey]",
		"div.h-captcha",
		"[class*='turnstile']",
	}
	imageSelectors = []string{
		"img[src*='captcha']",
		"img[alt*='captcha']",
		"img[id*='captcha']",
		"img[class*='captcha']",
		"div[id*='captcha'] img",
	}
	inputSelectors = []string{
		"input[name*='captcha']",
		"input[id*='captcha']",
		"#captcha",
		".captcha input",
	}
	scriptSelectors = []string{
		"script[src*='recaptcha']",
		"script[src*='hcaptcha']",
		"script[src*='captcha']",
		"script[src*='turnstile']",
	}

	phraseTags = "label, p, span, div"
	phrases    = []string{
		"type the characters",
		"characters you see in the image",
		"enter the text",
		"security code",
		"verification code",
		"anti-spam",
		"i am not a robot",
		"prove you are human",
		"human verification",
	}
	sourceTerms = []string{"recaptcha", "hcaptcha", "captcha challenge", "robot verification"}
)

// CaptchaDetector detects CAPTCHA challenges on a page. Detection is
// advisory: any lookup failure counts as "no CAPTCHA".
type CaptchaDetector struct {
	logger utils.Logger
}

// NewCaptchaDetector creates a new CAPTCHA detector
func NewCaptchaDetector(logger utils.Logger) *CaptchaDetector {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &CaptchaDetector{logger: logger}
}

// HasCaptcha reports whether the page carries any CAPTCHA signature
func (cd *CaptchaDetector) HasCaptcha(page dom.Page) bool {
	found, _ := cd.Inspect(page)
	return found
}

// Inspect reports whether the page carries a CAPTCHA and its best-guess type
func (cd *CaptchaDetector) Inspect(page dom.Page) (found bool, kind CaptchaType) {
	defer func() {
		if r := recover(); r != nil {
			cd.logger.Warnf("CAPTCHA detection failed: %v", r)
			found, kind = false, NoCaptcha
		}
	}()

	source := ""
	if s, err := page.Source(); err == nil {
		source = strings.ToLower(s)
	}
	guess := func(fallback CaptchaType) CaptchaType {
		if t, ok := cd.Detect(source); ok {
			return t
		}
		return fallback
	}

	if cd.anyMatch(page, widgetSelectors) {
		return true, guess(RecaptchaV2)
	}
	if cd.anyMatch(page, imageSelectors) || cd.anyMatch(page, inputSelectors) {
		return true, guess(ImageCaptcha)
	}
	if cd.hasPhrase(page) {
		return true, guess(TextCaptcha)
	}
	if cd.anyMatch(page, scriptSelectors) {
		return true, guess(RecaptchaV3)
	}
	for _, term := range sourceTerms {
		if strings.Contains(source, term) {
			return true, guess(RecaptchaV2)
		}
	}
	return false, NoCaptcha
}

func (cd *CaptchaDetector) anyMatch(page dom.Page, selectors []string) bool {
	for _, sel := range selectors {
		els, err := page.Find(sel, nil)
		if err != nil {
			cd.logger.Debugf("CAPTCHA selector %s failed: %v", sel, err)
			continue
		}
		if len(els) > 0 {
			return true
		}
	}
	return false
}

func (cd *CaptchaDetector) hasPhrase(page dom.Page) bool {
	els, err := page.Find(phraseTags, nil)
	if err != nil {
		return false
	}
	for _, el := range els {
		text, err := page.OwnText(el)
		if err != nil || text == "" {
			continue
		}
		text = strings.ToLower(text)
		for _, phrase := range phrases {
			if strings.Contains(text, phrase) {
				return true
			}
		}
	}
	return false
}

// Detect classifies the CAPTCHA vendor from raw HTML
func (cd *CaptchaDetector) Detect(html string) (CaptchaType, bool) {
	html = strings.ToLower(html)

	if strings.Contains(html, "recaptcha/api.js?render=") {
		return RecaptchaV3, true
	}

	if strings.Contains(html, "g-recaptcha") || strings.Contains(html, "recaptcha") {
		return RecaptchaV2, true
	}

	if strings.Contains(html, "h-captcha") || strings.Contains(html, "hcaptcha") {
		return HCaptcha, true
	}

	if strings.Contains(html, "funcaptcha") || strings.Contains(html, "arkoselabs") {
		return FunCaptcha, true
	}

	if strings.Contains(html, "cf-turnstile") || strings.Contains(html, "challenges.cloudflare.com/turnstile") {
		return Turnstile, true
	}

	return NoCaptcha, false
}
