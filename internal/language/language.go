// Package language guesses the language of cleaned page text.
package language

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"
)

// minLetters is the shortest text worth classifying.
const minLetters = 20

// maxSample bounds the text handed to the detector.
const maxSample = 4000

var supported = []lingua.Language{
	lingua.English, lingua.German, lingua.French, lingua.Spanish, lingua.Italian,
	lingua.Portuguese, lingua.Dutch, lingua.Swedish, lingua.Danish, lingua.Polish,
	lingua.Czech, lingua.Russian, lingua.Ukrainian, lingua.Turkish, lingua.Japanese,
	lingua.Chinese, lingua.Korean, lingua.Arabic, lingua.Hindi, lingua.Indonesian,
}

// Detector implements crawler.LanguageDetector. The underlying models load
// on first use and are shared by all jobs.
type Detector struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

// New returns a lazily initialised Detector.
func New() *Detector {
	return &Detector{}
}

// Detect returns the ISO 639-1 code of the dominant language.
func (d *Detector) Detect(text string) (string, bool) {
	if letters(text) < minLetters {
		return "", false
	}
	if len(text) > maxSample {
		text = text[:maxSample]
		text = strings.ToValidUTF8(text, "")
	}
	d.once.Do(func() {
		d.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(supported...).
			WithLowAccuracyMode().
			Build()
	})
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

func letters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
