// Package grading checks typed answers against a card's back side.
package grading

import (
	"strings"
	"unicode"

	"github.com/vytor/wordflash/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Verdict is the outcome of grading one typed answer.
type Verdict struct {
	Correct  bool
	Quality  models.Quality
	Expected string
}

// Normalize puts s in a form where cosmetic differences vanish: Unicode
// composition, letter case, surrounding punctuation and runs of whitespace.
func Normalize(s string) string {
	s = cases.Fold().String(norm.NFC.String(s))

	words := strings.FieldsFunc(s, unicode.IsSpace)
	out := words[:0]
	for _, w := range words {
		if w = strings.TrimFunc(w, unicode.IsPunct); w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// Grade compares answer with expected after normalization. A match scores
// QualityEasy and anything else QualityAgain; there is no partial credit.
func Grade(answer, expected string) Verdict {
	v := Verdict{Expected: expected, Quality: models.QualityAgain}
	want := Normalize(expected)
	if want != "" && Normalize(answer) == want {
		v.Correct = true
		v.Quality = models.QualityEasy
	}
	return v
}
