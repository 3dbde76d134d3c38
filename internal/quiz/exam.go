package quiz

import (
	"time"

	"rccm-quiz/internal/catalog"
)

type Mode string

const (
	ModeRandom    Mode = "random"
	ModeReview    Mode = "review"
	ModeBookmarks Mode = "bookmarks"
)

type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

type Answer struct {
	Choice  string `json:"c"`
	Elapsed int    `json:"e,omitempty"`
}

// Exam is the per-user progress through one set of questions. It is carried
// in the session cookie, so field names are kept short.
//
// Invariants: len(Answers) == Current, 0 <= Current <= len(Refs), and every
// ref resolves to a question whose category is Category.
type Exam struct {
	ID         string               `json:"id"`
	Department string               `json:"dept"`
	Category   string               `json:"cat"`
	Type       catalog.QuestionType `json:"type"`
	Year       int                  `json:"year,omitempty"`
	Mode       Mode                 `json:"mode"`
	Refs       []Ref                `json:"refs"`
	Current    int                  `json:"cur"`
	Answers    []Answer             `json:"ans,omitempty"`
	StartedAt  int64                `json:"started"`
	ResultID   int64                `json:"rid,omitempty"`
}

func (e *Exam) State() State {
	switch {
	case e == nil || len(e.Refs) == 0:
		return StateNotStarted
	case e.Current >= len(e.Refs):
		return StateCompleted
	default:
		return StateInProgress
	}
}

func (e *Exam) Total() int {
	if e == nil {
		return 0
	}
	return len(e.Refs)
}

// Position is the 1-based number of the question being answered.
func (e *Exam) Position() int {
	return e.Current + 1
}

func (e *Exam) CurrentRef() (Ref, bool) {
	if e.State() != StateInProgress {
		return Ref{}, false
	}
	return e.Refs[e.Current], true
}

func (e *Exam) Started() time.Time {
	return time.Unix(e.StartedAt, 0).UTC()
}

// ElapsedSeconds sums the per-answer times reported by the client.
func (e *Exam) ElapsedSeconds() int {
	total := 0
	for _, answer := range e.Answers {
		total += answer.Elapsed
	}
	return total
}

// valid reports whether the decoded exam is internally consistent.
func (e *Exam) valid() bool {
	if e == nil {
		return false
	}
	return e.Current >= 0 && e.Current <= len(e.Refs) && len(e.Answers) == e.Current
}
