package translate

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// WhatlangDetector detects languages offline with whatlanggo.
type WhatlangDetector struct{}

func NewWhatlangDetector() *WhatlangDetector {
	return &WhatlangDetector{}
}

func (d *WhatlangDetector) Detect(text string) (code string) {
	defer func() {
		if r := recover(); r != nil {
			code = LanguageAuto
		}
	}()

	if strings.TrimSpace(text) == "" {
		return LanguageAuto
	}
	info := whatlanggo.Detect(text)
	code = info.Lang.Iso6391()
	if code == "" {
		return LanguageAuto
	}
	return code
}

// baseLanguage returns the primary language subtag ("zh" for "zh-TW"), or ""
// for the auto/unknown sentinels.
func baseLanguage(code string) string {
	code = strings.TrimSpace(code)
	switch strings.ToLower(code) {
	case "", LanguageAuto, LanguageUnknown:
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		parts := strings.FieldsFunc(code, func(r rune) bool { return r == '-' || r == '_' })
		if len(parts) == 0 {
			return ""
		}
		return strings.ToLower(parts[0])
	}
	base, _ := tag.Base()
	return base.String()
}

// SameFamily reports whether detected is a variant of target, e.g. zh-TW and
// zh-CN.
func SameFamily(detected, target string) bool {
	b := baseLanguage(detected)
	return b != "" && b == baseLanguage(target)
}

// DisplayName returns the self-name of the language family of code ("中文"
// for zh-CN), falling back to code.
func DisplayName(code string) string {
	base := baseLanguage(code)
	if base == "" {
		return code
	}
	tag, err := language.Parse(base)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}
