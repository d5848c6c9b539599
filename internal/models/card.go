package models

import (
	"encoding/json"
	"slices"
	"time"
)

// State is the scheduling state of a card.
type State string

const (
	StateNew        State = "new"
	StateLearning   State = "learning"
	StateReview     State = "review"
	StateRelearning State = "relearning"
)

// States lists every state in lifecycle order.
var States = []State{StateNew, StateLearning, StateReview, StateRelearning}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	return slices.Contains(States, s)
}

// ParseState returns the state named by s and whether it is known.
func ParseState(s string) (State, bool) {
	st := State(s)
	return st, st.Valid()
}

// Card is the unit of learning. Front and Back are opaque to the scheduler.
type Card struct {
	ID             string     `json:"id"`
	Deck           string     `json:"deck"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	Tags           []string   `json:"tags,omitempty"`
	State          State      `json:"state"`
	Factor         float64    `json:"factor"`
	Interval       int        `json:"ivl"`
	Reps           int        `json:"reps"`
	Lapses         int        `json:"lapses"`
	StepIndex      int        `json:"step_index"`
	LapseStepIndex int        `json:"lapse_step_index"`
	Due            *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Clone returns a copy that shares no memory with c.
func (c Card) Clone() Card {
	out := c
	if c.Tags != nil {
		out.Tags = slices.Clone(c.Tags)
	}
	if c.Due != nil {
		d := *c.Due
		out.Due = &d
	}
	return out
}

// DueString formats Due as YYYY-MM-DD, or "" when absent.
func (c Card) DueString() string {
	if c.Due == nil {
		return ""
	}
	return c.Due.Format(time.DateOnly)
}

// MarshalJSON writes Due with day granularity.
func (c Card) MarshalJSON() ([]byte, error) {
	type plain Card
	var due *string
	if c.Due != nil {
		s := c.DueString()
		due = &s
	}
	return json.Marshal(struct {
		plain
		Due *string `json:"due"`
	}{plain(c), due})
}

// CardFilter narrows card listings.
type CardFilter struct {
	Deck   string
	States []State
	Tag    string
	Limit  int
	Offset int
}

// ReviewEvent is one answered card, kept for history and streaks.
type ReviewEvent struct {
	ID          int64     `json:"id"`
	CardID      string    `json:"card_id"`
	Quality     Quality   `json:"quality"`
	TimeSeconds float64   `json:"time_seconds"`
	ReviewedOn  time.Time `json:"reviewed_on"`
	ReviewedAt  time.Time `json:"reviewed_at"`
}
