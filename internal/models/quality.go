package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidQuality is returned when a rating falls outside 1..5.
var ErrInvalidQuality = errors.New("invalid quality")

// Quality is the user's recall rating. Only 1, 3, 4 and 5 are produced by the
// answer buttons; anything at or below 2 counts as a failure.
type Quality int

const (
	QualityAgain Quality = 1
	QualityHard  Quality = 3
	QualityGood  Quality = 4
	QualityEasy  Quality = 5
)

var qualityNames = map[Quality]string{
	QualityAgain: "again",
	QualityHard:  "hard",
	QualityGood:  "good",
	QualityEasy:  "easy",
}

// Valid reports whether q is within the accepted 1..5 range.
func (q Quality) Valid() bool {
	return q >= 1 && q <= 5
}

// Failed reports whether q resets learning progress.
func (q Quality) Failed() bool {
	return q <= 2
}

func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ParseQuality accepts a button name ("again", "hard", "good", "easy") or a
// number between 1 and 5.
func ParseQuality(s string) (Quality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for q, name := range qualityNames {
		if name == s {
			return q, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || !Quality(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	}
	return Quality(n), nil
}

// UnmarshalJSON accepts either a number or a button name.
func (q *Quality) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidQuality, data)
		}
		s = strconv.Itoa(n)
	}
	parsed, err := ParseQuality(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
