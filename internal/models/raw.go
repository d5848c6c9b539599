package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RawCard is a card record as it arrives from an import or an older export.
// Every field is optional; the legacy SM-2 columns (repetition, efactor,
// interval, dueDate) and the english/russian word columns are read only when
// their modern counterparts are empty.
type RawCard struct {
	ID             LooseString `json:"id"`
	Deck           string      `json:"deck"`
	Front          string      `json:"front"`
	Back           string      `json:"back"`
	Tags           TagList     `json:"tags"`
	State          string      `json:"state"`
	Factor         LooseNumber `json:"factor"`
	Interval       LooseNumber `json:"ivl"`
	Reps           LooseNumber `json:"reps"`
	Lapses         LooseNumber `json:"lapses"`
	StepIndex      LooseNumber `json:"stepIndex"`
	LapseStepIndex LooseNumber `json:"lapseStepIndex"`
	Due            string      `json:"due"`

	English        string      `json:"english"`
	Russian        string      `json:"russian"`
	Phrase         string      `json:"phrase"`
	Repetition     LooseNumber `json:"repetition"`
	EFactor        LooseNumber `json:"efactor"`
	LegacyInterval LooseNumber `json:"interval"`
	DueDate        string      `json:"dueDate"`

	// Card marshals step positions in snake case.
	StepIndexSnake      LooseNumber `json:"step_index"`
	LapseStepIndexSnake LooseNumber `json:"lapse_step_index"`
}

// LooseNumber decodes numbers, numeric strings and blanks.
// Anything unreadable decodes as zero.
type LooseNumber float64

func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = LooseNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = LooseNumber(v)
			return nil
		}
	}
	*n = 0
	return nil
}

// Int truncates toward zero.
func (n LooseNumber) Int() int { return int(n) }

// LooseString decodes strings and numbers alike, so spreadsheet row IDs
// survive either encoding.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = LooseString(strings.TrimSpace(str))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = LooseString(num.String())
		return nil
	}
	*s = ""
	return nil
}

// TagList decodes either a JSON array or a comma separated string.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = cleanTags(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = cleanTags(strings.Split(s, ","))
		return nil
	}
	*t = nil
	return nil
}

func cleanTags(in []string) TagList {
	var out TagList
	for _, tag := range in {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
