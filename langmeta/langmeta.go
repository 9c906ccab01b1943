// Package langmeta knows the target languages accepted by the translation
// services: their canonical codes, native names and emoji flags.
//
// Codes follow DeepL's convention (upper case, "EN-GB", "PT-BR", "ZH-HANT").
// User input such as "pt_br", "en-gb" or "zh-Hant-TW" is normalized with
// golang.org/x/text/language before lookup.
package langmeta

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry contains the supported target languages keyed by canonical code.
var Registry = map[string]Meta{
	"AR":      {Name: "العربية", Flag: "🇸🇦"},
	"BG":      {Name: "Български", Flag: "🇧🇬"},
	"CS":      {Name: "Čeština", Flag: "🇨🇿"},
	"DA":      {Name: "Dansk", Flag: "🇩🇰"},
	"DE":      {Name: "Deutsch", Flag: "🇩🇪"},
	"EL":      {Name: "Ελληνικά", Flag: "🇬🇷"},
	"EN-GB":   {Name: "English (UK)", Flag: "🇬🇧"},
	"EN-US":   {Name: "English (US)", Flag: "🇺🇸"},
	"ES":      {Name: "Español", Flag: "🇪🇸"},
	"ES-419":  {Name: "Español (Latinoamérica)", Flag: "🇲🇽"},
	"ET":      {Name: "Eesti", Flag: "🇪🇪"},
	"FI":      {Name: "Suomi", Flag: "🇫🇮"},
	"FR":      {Name: "Français", Flag: "🇫🇷"},
	"HE":      {Name: "עברית", Flag: "🇮🇱"},
	"HU":      {Name: "Magyar", Flag: "🇭🇺"},
	"ID":      {Name: "Bahasa Indonesia", Flag: "🇮🇩"},
	"IT":      {Name: "Italiano", Flag: "🇮🇹"},
	"JA":      {Name: "日本語", Flag: "🇯🇵"},
	"KO":      {Name: "한국어", Flag: "🇰🇷"},
	"LT":      {Name: "Lietuvių", Flag: "🇱🇹"},
	"LV":      {Name: "Latviešu", Flag: "🇱🇻"},
	"NB":      {Name: "Norsk bokmål", Flag: "🇳🇴"},
	"NL":      {Name: "Nederlands", Flag: "🇳🇱"},
	"PL":      {Name: "Polski", Flag: "🇵🇱"},
	"PT-BR":   {Name: "Português (Brasil)", Flag: "🇧🇷"},
	"PT-PT":   {Name: "Português (Portugal)", Flag: "🇵🇹"},
	"RO":      {Name: "Română", Flag: "🇷🇴"},
	"RU":      {Name: "Русский", Flag: "🇷🇺"},
	"SK":      {Name: "Slovenčina", Flag: "🇸🇰"},
	"SL":      {Name: "Slovenščina", Flag: "🇸🇮"},
	"SV":      {Name: "Svenska", Flag: "🇸🇪"},
	"TH":      {Name: "ไทย", Flag: "🇹🇭"},
	"TR":      {Name: "Türkçe", Flag: "🇹🇷"},
	"UK":      {Name: "Українська", Flag: "🇺🇦"},
	"VI":      {Name: "Tiếng Việt", Flag: "🇻🇳"},
	"ZH":      {Name: "中文", Flag: "🇨🇳"},
	"ZH-HANS": {Name: "简体中文", Flag: "🇨🇳"},
	"ZH-HANT": {Name: "繁體中文", Flag: "🇹🇼"},
}

// defaultVariant maps a base language that is only offered in regional
// variants to the variant used when no region is given.
var defaultVariant = map[string]string{
	"EN": "EN-US",
	"PT": "PT-PT",
}

// Codes returns all registry codes, sorted.
func Codes() []string {
	codes := make([]string, 0, len(Registry))
	for c := range Registry {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Normalize maps a user-supplied language code onto its canonical form.
// It reports known=false for well-formed codes missing from the registry;
// those are returned upper-cased so newly added provider languages still
// work. Malformed codes return an error.
func Normalize(code string) (canonical string, known bool, err error) {
	raw := strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if raw == "" {
		return "", false, fmt.Errorf("empty language code")
	}
	if _, ok := Registry[strings.ToUpper(raw)]; ok {
		return strings.ToUpper(raw), true, nil
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid language code %q: %w", code, err)
	}

	base, _ := tag.Base()
	b := strings.ToUpper(base.String())

	var candidates []string
	if script, conf := tag.Script(); conf == language.Exact {
		candidates = append(candidates, b+"-"+strings.ToUpper(script.String()))
	}
	if region, conf := tag.Region(); conf == language.Exact {
		candidates = append(candidates, b+"-"+strings.ToUpper(region.String()))
	}
	candidates = append(candidates, b)
	if v, ok := defaultVariant[b]; ok {
		candidates = append(candidates, v)
	}

	for _, c := range candidates {
		if _, ok := Registry[c]; ok {
			return c, true, nil
		}
	}
	return strings.ToUpper(raw), false, nil
}

// Resolve returns best-effort language metadata for a code, falling back
// to the base language and finally to the code itself.
func Resolve(code string) Meta {
	if c, known, err := Normalize(code); err == nil && known {
		return Registry[c]
	}
	return Meta{Name: code, Flag: ""}
}

// EnglishName returns the English name of a language code ("German",
// "Brazilian Portuguese"), or the code itself when it cannot be parsed.
func EnglishName(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
