package subtitle

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DetectLanguage returns the language most captions are written in, or
// language.Und when nothing is reliably detected.
func DetectLanguage(captions []Caption) language.Tag {
	if len(captions) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, c := range captions {
		if c.Text == "" {
			continue
		}
		code := whatlanggo.DetectLang(c.Text).Iso6391()
		if code == "" {
			continue
		}
		langMap[code]++
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		// ties resolve alphabetically so the result is stable across runs
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	tag, err := language.Parse(topLang)
	if err != nil {
		return language.Und
	}
	return tag
}
